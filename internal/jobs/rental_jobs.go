package jobs

import (
	"context"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/logger"

	"github.com/google/uuid"
)

// SweepResult summarises one expiry sweep.
type SweepResult struct {
	RunID      string
	Candidates int
	Closed     int
	Failed     int
	Duration   time.Duration
	// Err is set when the expired leases could not be listed.
	Err error
}

// CloseExpiredLeases settles every OPEN lease whose end time has passed.
func (jr *JobRunner) CloseExpiredLeases() {
	jr.runWithRecovery("CloseExpiredLeases", func() {
		jr.SweepExpiredLeases(jr.ctx)
	})
}

// SweepExpiredLeases runs one sweep cycle. Each lease is closed on its own
// context, detached from ctx and bounded by the sweeper lease timeout, so a
// shutdown never interrupts a settlement halfway. Once ctx is cancelled no
// further leases are picked up. Failed leases stay OPEN for the next cycle.
func (jr *JobRunner) SweepExpiredLeases(ctx context.Context) SweepResult {
	started := time.Now()
	result := SweepResult{RunID: uuid.NewString()}
	log := logger.Get().With("job", "CloseExpiredLeases", "run_id", result.RunID)

	expired, err := jr.store.Repos().Leases.ListByStatusEndingBefore(ctx, domain.LeaseStatusOpen, jr.now())
	if err != nil {
		log.Error("Failed to list expired leases", "error", err)
		result.Err = err
		result.Duration = time.Since(started)
		jr.metrics.ObserveSweep(0, 0, result.Duration)
		return result
	}
	result.Candidates = len(expired)

	for i, lease := range expired {
		if ctx.Err() != nil {
			log.Warn("Sweep interrupted", "remaining", len(expired)-i)
			break
		}
		if err := jr.closeExpiredLease(ctx, lease.ID); err != nil {
			result.Failed++
			log.Error("Failed to close expired lease", "lease_id", lease.ID, "user_id", lease.UserID, "error", err)
			continue
		}
		result.Closed++
	}

	result.Duration = time.Since(started)
	jr.metrics.ObserveSweep(result.Closed, result.Failed, result.Duration)
	if result.Candidates > 0 {
		log.Info("Expiry sweep finished",
			"candidates", result.Candidates, "closed", result.Closed, "failed", result.Failed, "duration", result.Duration)
	}
	return result
}

func (jr *JobRunner) closeExpiredLease(ctx context.Context, leaseID int64) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jr.config.Sweeper.LeaseTimeout)
	defer cancel()
	_, err := jr.services.Lease.CloseLease(ctx, leaseID)
	return err
}
