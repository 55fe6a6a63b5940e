package jobs

import (
	"context"
	"time"

	"rigrent-backend/internal/config"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/metrics"
	"rigrent-backend/internal/repository"
	"rigrent-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Store
	services *Services
	config   *config.Config
	metrics  *metrics.RentalMetrics
	now      func() time.Time

	// ctx is cancelled by Shutdown; running sweeps stop picking up new leases.
	ctx    context.Context
	cancel context.CancelFunc
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Lease service.LeaseService
}

// Option configures a JobRunner.
type Option func(*JobRunner)

// WithClock sets the clock that decides which leases have expired. Pass the
// same clock the lease engine settles with.
func WithClock(clock func() time.Time) Option {
	return func(jr *JobRunner) { jr.now = clock }
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, services *Services, cfg *config.Config, m *metrics.RentalMetrics, opts ...Option) *JobRunner {
	ctx, cancel := context.WithCancel(context.Background())
	jr := &JobRunner{
		store:    store,
		services: services,
		config:   cfg,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(jr)
	}
	return jr
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// Shutdown cancels the runner context. It does not wait for running jobs.
func (jr *JobRunner) Shutdown() {
	jr.cancel()
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", jobName)
	jobFunc()
	logger.Debug("Job completed", "job", jobName)
}
