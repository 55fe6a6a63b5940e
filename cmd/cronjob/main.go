package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	opshttp "rigrent-backend/internal/api/http"
	"rigrent-backend/internal/bootstrap"
	"rigrent-backend/internal/config"
	"rigrent-backend/internal/jobs"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/metrics"
	"rigrent-backend/internal/scheduler"
	"rigrent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit ('close-expired-leases', 'seed-machines', 'seed-catalog')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rigrent lifecycle runner...", "log_level", cfg.Log.Level, "storage", cfg.Storage.Type)

	// A memory store would be private to this process and never see the
	// leases the API server creates.
	if cfg.Storage.Type == config.StorageMemory {
		log.Fatalf("storage.type %q is not supported by the cronjob; the API server runs the sweeper itself in that mode", config.StorageMemory)
	}

	// Initialize storage
	store, pinger, closeStore, err := bootstrap.OpenStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStore()

	// Initialize the lease engine the sweeper closes through
	rentalMetrics := metrics.Rental()
	publisher := bootstrap.NewPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	clock := func() time.Time { return time.Now().UTC() }
	leaseService := service.NewLeaseService(store,
		service.WithClock(clock),
		service.WithPublisher(publisher),
		service.WithMetrics(rentalMetrics),
	)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, &jobs.Services{Lease: leaseService}, cfg, rentalMetrics, jobs.WithClock(clock))

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Ops endpoints
	router := mux.NewRouter()
	opshttp.RegisterOpsRoutes(router, opshttp.NewOpsHandler(pinger, prometheus.DefaultGatherer))
	opsServer := &http.Server{
		Addr:              cfg.GetMetricsAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Ops HTTP server listening", "address", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops HTTP server error", "error", err)
		}
	}()

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Lifecycle scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down lifecycle scheduler...")
	cronScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down ops HTTP server", "error", err)
	}
	logger.Info("Lifecycle scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "close-expired-leases":
		jobRunner.CloseExpiredLeases()
	case "seed-machines":
		jobRunner.SeedMachines()
	case "seed-catalog":
		jobRunner.SeedCatalog()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - close-expired-leases\n")
		fmt.Printf("  - seed-machines\n")
		fmt.Printf("  - seed-catalog\n")
		os.Exit(1)
	}
}
