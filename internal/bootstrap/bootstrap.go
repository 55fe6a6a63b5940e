// Package bootstrap builds the infrastructure shared by the server and
// cronjob processes.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	httpapi "rigrent-backend/internal/api/http"
	"rigrent-backend/internal/config"
	"rigrent-backend/internal/events"
	"rigrent-backend/internal/jobs"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/metrics"
	"rigrent-backend/internal/repository"
	"rigrent-backend/internal/repository/memory"
	"rigrent-backend/internal/repository/postgres"
	"rigrent-backend/internal/scheduler"
	"rigrent-backend/internal/service"
)

const connectTimeout = 10 * time.Second

// OpenStore builds the configured store. The returned pinger is nil for the
// in-memory store; the close function is always safe to call.
func OpenStore(cfg *config.Config) (repository.Store, httpapi.Pinger, func(), error) {
	if cfg.Storage.Type == config.StorageMemory {
		logger.Warn("Using in-memory storage; state is lost on exit")
		return memory.NewStore(), nil, func() {}, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("Database schema verified")
	}

	store := postgres.NewStore(db)
	return store, store, func() { db.Close() }, nil
}

// NewPublisher returns a Kafka publisher when enabled, a no-op one otherwise.
func NewPublisher(cfg *config.Config) events.Publisher {
	if !cfg.Kafka.Enabled {
		return events.NopPublisher{}
	}
	logger.Info("Publishing lifecycle events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// StartEmbeddedJobs seeds a fresh store and runs the expiry sweeper inside
// the calling process. The in-memory store is private to its process, so the
// API server has to host the sweeper itself when it uses one. Callers stop
// the returned scheduler on shutdown.
func StartEmbeddedJobs(cfg *config.Config, store repository.Store, leases service.LeaseService,
	m *metrics.RentalMetrics, clock func() time.Time) (*scheduler.Scheduler, error) {
	runner := jobs.NewJobRunner(store, &jobs.Services{Lease: leases}, cfg, m, jobs.WithClock(clock))
	runner.SeedMachines()
	runner.SeedCatalog()

	s, err := scheduler.NewScheduler(runner)
	if err != nil {
		return nil, fmt.Errorf("embedded scheduler: %w", err)
	}
	s.Start()
	logger.Info("Expiry sweeper running in-process", "schedule", cfg.Scheduler.CloseExpiredLeases)
	return s, nil
}
