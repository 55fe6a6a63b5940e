package service

import (
	"context"
	"errors"
	"fmt"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/events"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/repository"
	"rigrent-backend/internal/utils"
)

type leaseService struct {
	store repository.Store
	opts  options
}

func NewLeaseService(store repository.Store, opts ...Option) LeaseService {
	return &leaseService{store: store, opts: buildOptions(opts)}
}

// CreateLease reserves a machine for the plan's tier, charges the user the
// net plan price and opens the lease. The charge and the lease row commit
// together; if they fail the reservation is released.
func (s *leaseService) CreateLease(ctx context.Context, planID int64, userEmail string) (*domain.Lease, error) {
	log := logger.WithService("lease")
	repos := s.store.Repos()

	user, err := repos.Users.GetByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	plan, err := repos.Plans.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("resolve plan: %w", err)
	}
	if err := utils.ValidatePlan(plan); err != nil {
		return nil, err
	}
	tier, err := domain.TierForPlan(plan.Name)
	if err != nil {
		return nil, err
	}

	machine, err := s.reserveMachine(ctx, tier)
	if err != nil {
		s.opts.metrics.ObserveLeaseFailure("create", failureReason(err))
		return nil, err
	}

	now := s.opts.clock()
	pricing := utils.CalculatePlanPricing(plan)
	lease := &domain.Lease{
		UserID:      user.ID,
		MachineID:   machine.ID,
		PlanID:      plan.ID,
		StartTime:   now,
		EndTime:     utils.LeaseEndTime(now, plan.DurationDays),
		PriceToUser: pricing.NetPriceToUser,
		GrossPrice:  pricing.GrossPrice,
		Status:      domain.LeaseStatusOpen,
	}
	if !lease.EndTime.After(lease.StartTime) {
		return nil, s.releaseOnFailure(ctx, machine.ID,
			fmt.Errorf("plan %d duration shorter than one second: %w", plan.ID, domain.ErrInvalidState))
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Leases.Create(ctx, lease); err != nil {
			return fmt.Errorf("persist lease: %w", err)
		}
		if !lease.PriceToUser.IsPositive() {
			return nil
		}
		_, err := postTransaction(ctx, repos, user.ID, domain.TransactionTypeLeasePayment, lease.PriceToUser, &lease.ID, now)
		return err
	})
	if err != nil {
		err = s.releaseOnFailure(ctx, machine.ID, err)
		s.opts.metrics.ObserveLeaseFailure("create", failureReason(err))
		log.Warn("Lease creation failed", "user_id", user.ID, "plan_id", plan.ID, "machine_id", machine.ID, "error", err)
		return nil, err
	}

	s.opts.metrics.ObserveLeaseOpened()
	if lease.PriceToUser.IsPositive() {
		s.opts.metrics.ObserveLedgerPosting(string(domain.TransactionTypeLeasePayment))
	}
	log.Info("Lease opened",
		"lease_id", lease.ID, "user_id", user.ID, "machine_id", machine.ID, "tier", tier,
		logger.Money("price_to_user", lease.PriceToUser), "end_time", lease.EndTime)

	ev := events.NewEvent(events.EventLeaseOpened, user.ID, now)
	ev.LeaseID = lease.ID
	ev.MachineID = machine.ID
	ev.Amount = lease.PriceToUser
	s.opts.publish(ctx, ev)

	return lease, nil
}

func (s *leaseService) reserveMachine(ctx context.Context, tier domain.ResourceTier) (*domain.Machine, error) {
	var machine *domain.Machine
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		m, err := repos.Machines.ReserveAvailable(ctx, tier)
		machine = m
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reserve machine: %w", err)
	}
	return machine, nil
}

// releaseOnFailure returns a reserved machine to the pool. It runs even if
// ctx is already cancelled, since cancellation may be why creation failed.
func (s *leaseService) releaseOnFailure(ctx context.Context, machineID int64, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Machines.UpdateStatus(ctx, machineID, domain.MachineStatusLeased, domain.MachineStatusAvailable)
	})
	if err != nil {
		logger.Error("Failed to release reserved machine", "machine_id", machineID, "error", err, "cause", cause)
		return errors.Join(cause, fmt.Errorf("release machine %d: %w", machineID, err))
	}
	return cause
}

// CloseLease settles an open lease at the current instant. Closing a lease
// that is already closed returns it unchanged.
func (s *leaseService) CloseLease(ctx context.Context, leaseID int64) (*domain.Lease, error) {
	log := logger.WithLease(leaseID)
	now := s.opts.clock()

	var (
		closed        *domain.Lease
		alreadyClosed bool
		settlement    utils.Settlement
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		lease, err := repos.Leases.GetForUpdate(ctx, leaseID)
		if err != nil {
			return err
		}
		if !lease.IsOpen() {
			closed = lease
			alreadyClosed = true
			return nil
		}

		settlement = utils.SettleLease(lease.StartTime, lease.EndTime, lease.PriceToUser, lease.GrossPrice, now)
		lease.Status = domain.LeaseStatusClosed
		lease.EndTime = settlement.EndTime
		lease.Settlement = &domain.LeaseSettlement{
			AmountRefunded:   settlement.AmountRefunded,
			PlatformEarnings: settlement.PlatformEarnings,
			FullTerm:         settlement.FullTerm,
			ClosedAt:         now,
		}
		if err := repos.Leases.Close(ctx, lease); err != nil {
			return err
		}

		if settlement.AmountRefunded.IsPositive() {
			if _, err := postTransaction(ctx, repos, lease.UserID, domain.TransactionTypeLeaseRefund,
				settlement.AmountRefunded, &lease.ID, now); err != nil {
				return err
			}
		}
		if settlement.PlatformEarnings.IsPositive() {
			if _, err := postTransaction(ctx, repos, lease.UserID, domain.TransactionTypeLeaseEarning,
				settlement.PlatformEarnings, &lease.ID, now); err != nil {
				return err
			}
		}

		next := domain.MachineStatusMaintenance
		if settlement.FullTerm {
			next = domain.MachineStatusAvailable
		}
		if err := repos.Machines.UpdateStatus(ctx, lease.MachineID, domain.MachineStatusLeased, next); err != nil {
			return fmt.Errorf("release machine: %w", err)
		}

		closed = lease
		return nil
	})
	if err != nil {
		s.opts.metrics.ObserveLeaseFailure("close", failureReason(err))
		return nil, fmt.Errorf("close lease %d: %w", leaseID, err)
	}
	if alreadyClosed {
		log.Debug("Lease already closed")
		return closed, nil
	}

	s.opts.metrics.ObserveLeaseClosed(settlement.FullTerm)
	if settlement.AmountRefunded.IsPositive() {
		s.opts.metrics.ObserveLedgerPosting(string(domain.TransactionTypeLeaseRefund))
	}
	if settlement.PlatformEarnings.IsPositive() {
		s.opts.metrics.ObserveLedgerPosting(string(domain.TransactionTypeLeaseEarning))
	}
	log.Info("Lease closed",
		"user_id", closed.UserID, "full_term", settlement.FullTerm, "used_fraction", settlement.UsedFraction.String(),
		logger.Money("refunded", settlement.AmountRefunded), logger.Money("earnings", settlement.PlatformEarnings))

	ev := events.NewEvent(events.EventLeaseClosed, closed.UserID, now)
	ev.LeaseID = closed.ID
	ev.MachineID = closed.MachineID
	ev.Amount = settlement.AmountRefunded
	ev.Earnings = settlement.PlatformEarnings
	ev.FullTerm = settlement.FullTerm
	s.opts.publish(ctx, ev)

	return closed, nil
}

func (s *leaseService) GetLease(ctx context.Context, leaseID int64) (*domain.Lease, error) {
	return s.store.Repos().Leases.GetByID(ctx, leaseID)
}

func (s *leaseService) ListLeases(ctx context.Context) ([]domain.Lease, error) {
	return s.store.Repos().Leases.List(ctx)
}

func (s *leaseService) ListActiveLeases(ctx context.Context, userID int64) ([]domain.Lease, error) {
	return s.store.Repos().Leases.ListByUserAndStatus(ctx, userID, domain.LeaseStatusOpen)
}

func (s *leaseService) ListClosedLeases(ctx context.Context, userID int64) ([]domain.Lease, error) {
	return s.store.Repos().Leases.ListByUserAndStatus(ctx, userID, domain.LeaseStatusClosed)
}

func (s *leaseService) PreviewAdmin(ctx context.Context, planID int64) (*domain.AdminPlanPreview, error) {
	plan, err := s.previewPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	p := utils.AdminPreview(plan)
	return &p, nil
}

func (s *leaseService) PreviewUser(ctx context.Context, planID int64) (*domain.UserPlanPreview, error) {
	plan, err := s.previewPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	p := utils.UserPreview(plan)
	return &p, nil
}

func (s *leaseService) PreviewAllAdmin(ctx context.Context) ([]domain.AdminPlanPreview, error) {
	plans, err := s.store.Repos().Plans.List(ctx)
	if err != nil {
		return nil, err
	}
	previews := make([]domain.AdminPlanPreview, 0, len(plans))
	for i := range plans {
		if err := utils.ValidatePlan(&plans[i]); err != nil {
			return nil, err
		}
		previews = append(previews, utils.AdminPreview(&plans[i]))
	}
	return previews, nil
}

func (s *leaseService) PreviewAllUser(ctx context.Context) ([]domain.UserPlanPreview, error) {
	plans, err := s.store.Repos().Plans.List(ctx)
	if err != nil {
		return nil, err
	}
	previews := make([]domain.UserPlanPreview, 0, len(plans))
	for i := range plans {
		if err := utils.ValidatePlan(&plans[i]); err != nil {
			return nil, err
		}
		previews = append(previews, utils.UserPreview(&plans[i]))
	}
	return previews, nil
}

func (s *leaseService) previewPlan(ctx context.Context, planID int64) (*domain.Plan, error) {
	plan, err := s.store.Repos().Plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoCapacity):
		return "no_capacity"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return "dependency_unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	return "internal"
}
