package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	httpapi "rigrent-backend/internal/api/http"
	"rigrent-backend/internal/bootstrap"
	"rigrent-backend/internal/config"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/metrics"
	"rigrent-backend/internal/oracle"
	"rigrent-backend/internal/scheduler"
	"rigrent-backend/internal/security"
	"rigrent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rigrent API server...", "log_level", cfg.Log.Level, "storage", cfg.Storage.Type)

	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("auth.jwt_secret (or JWT_SECRET) is required")
	}

	// Initialize storage
	store, pinger, closeStore, err := bootstrap.OpenStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStore()

	// Initialize shared dependencies
	rentalMetrics := metrics.Rental()
	publisher := bootstrap.NewPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	var prices oracle.PriceOracle = oracle.NewCoinbaseClient(cfg.Oracle.BaseURL, cfg.Oracle.Timeout, rentalMetrics)
	if cfg.Oracle.CacheTTL > 0 {
		prices = oracle.NewCachedOracle(prices, cfg.Oracle.CacheTTL, rentalMetrics)
	}

	// Initialize Services
	clock := func() time.Time { return time.Now().UTC() }
	opts := []service.Option{
		service.WithClock(clock),
		service.WithPublisher(publisher),
		service.WithMetrics(rentalMetrics),
	}
	leaseService := service.NewLeaseService(store, opts...)
	ledgerService := service.NewLedgerService(store, opts...)
	walletService := service.NewWalletService(store, prices, opts...)

	// The in-memory store lives and dies with this process, so the sweeper
	// and the seed data have to live here too.
	var embeddedJobs *scheduler.Scheduler
	if cfg.Storage.Type == config.StorageMemory {
		embeddedJobs, err = bootstrap.StartEmbeddedJobs(cfg, store, leaseService, rentalMetrics, clock)
		if err != nil {
			logger.Error("Failed to start embedded jobs", "error", err)
			log.Fatalf("Failed to start embedded jobs: %v", err)
		}
	}

	// Initialize Handlers
	tokenManager := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	router := mux.NewRouter()
	httpapi.RegisterAPIRoutes(router, httpapi.API{
		Auth:    httpapi.NewAuthMiddleware(tokenManager),
		Leases:  httpapi.NewLeaseHandler(leaseService),
		Ledger:  httpapi.NewLedgerHandler(ledgerService),
		Wallets: httpapi.NewWalletHandler(walletService),
	})
	httpapi.RegisterOpsRoutes(router, httpapi.NewOpsHandler(pinger, prometheus.DefaultGatherer))

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	go func() {
		logger.Info("HTTP API listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to serve HTTP", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down HTTP API...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP API shutdown error", "error", err)
	}
	if embeddedJobs != nil {
		embeddedJobs.Stop()
	}
	logger.Info("HTTP API stopped. Goodbye!")
}
