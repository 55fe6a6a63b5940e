package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateLease(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	svc := NewLeaseService(f.store, f.options()...)

	lease, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)

	assert.Equal(t, domain.LeaseStatusOpen, lease.Status)
	assert.Equal(t, f.user.ID, lease.UserID)
	assert.Equal(t, testStart, lease.StartTime)
	assert.Equal(t, testStart.AddDate(0, 0, 5), lease.EndTime)
	assertMoney(t, "54", lease.PriceToUser)
	assertMoney(t, "60", lease.GrossPrice)
	assert.Nil(t, lease.Settlement)

	assert.Equal(t, domain.MachineStatusLeased, f.machineStatus(t, lease.MachineID))
	assertMoney(t, "46", f.balance(t))

	txs, err := NewLedgerService(f.store, f.options()...).GetTransactions(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionTypeLeasePayment, txs[0].Type)
	require.NotNil(t, txs[0].LeaseID)
	assert.Equal(t, lease.ID, *txs[0].LeaseID)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev events.Event) bool {
		return ev.Type == events.EventLeaseOpened && ev.LeaseID == lease.ID && ev.MachineID == lease.MachineID
	}))
}

func TestCreateLease_NoCapacity(t *testing.T) {
	f := newFixture(t, 0)
	f.topUp(t, "100")
	svc := NewLeaseService(f.store, f.options()...)

	_, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)

	leases, err := svc.ListLeases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leases)
	assertMoney(t, "100", f.balance(t))
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev events.Event) bool {
		return ev.Type == events.EventLeaseOpened
	}))
}

func TestCreateLease_PoolExhausted(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "200")
	svc := NewLeaseService(f.store, f.options()...)

	_, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)

	_, err = svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)
	assertMoney(t, "146", f.balance(t))
}

func TestCreateLease_InsufficientFunds(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "50")
	svc := NewLeaseService(f.store, f.options()...)

	_, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	leases, err := svc.ListLeases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leases)
	assert.Equal(t, domain.MachineStatusAvailable, f.machineStatus(t, 1))
	assertMoney(t, "50", f.balance(t))

	txs, err := NewLedgerService(f.store, f.options()...).GetTransactions(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "only the top-up is recorded")
}

func TestCreateLease_PersistFailureReleasesMachine(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	boom := errors.New("disk full")
	svc := NewLeaseService(failingLeaseStore{Store: f.store, err: boom}, f.options()...)

	_, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, domain.MachineStatusAvailable, f.machineStatus(t, 1))
	assertMoney(t, "100", f.balance(t))
}

func TestCreateLease_UnknownUserOrPlan(t *testing.T) {
	f := newFixture(t, 1)
	svc := NewLeaseService(f.store, f.options()...)

	_, err := svc.CreateLease(context.Background(), f.plan.ID, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CreateLease(context.Background(), 999, f.user.Email)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, domain.MachineStatusAvailable, f.machineStatus(t, 1))
}

func TestCreateLease_PublishFailureIsIgnored(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc := NewLeaseService(f.store, WithClock(f.clock.Now), WithPublisher(publisher))

	lease, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)
	assert.Equal(t, domain.LeaseStatusOpen, lease.Status)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCloseLease_FullTerm(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	svc := NewLeaseService(f.store, f.options()...)

	lease, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)

	f.clock.Advance(5*24*time.Hour + time.Minute)
	closed, err := svc.CloseLease(context.Background(), lease.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.LeaseStatusClosed, closed.Status)
	assert.Equal(t, lease.EndTime, closed.EndTime, "full term keeps the scheduled end")
	require.NotNil(t, closed.Settlement)
	assert.True(t, closed.Settlement.FullTerm)
	assertMoney(t, "0", closed.Settlement.AmountRefunded)
	assertMoney(t, "60", closed.Settlement.PlatformEarnings)

	assertMoney(t, "106", f.balance(t))
	assert.Equal(t, domain.MachineStatusAvailable, f.machineStatus(t, lease.MachineID))

	txs, err := NewLedgerService(f.store, f.options()...).GetTransactions(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, domain.TransactionTypeLeaseEarning, txs[0].Type)
	assertMoney(t, "60", txs[0].Amount)
}

func TestCloseLease_Early(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	svc := NewLeaseService(f.store, f.options()...)

	lease, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)

	f.clock.Advance(60 * time.Hour)
	closed, err := svc.CloseLease(context.Background(), lease.ID)
	require.NoError(t, err)

	require.NotNil(t, closed.Settlement)
	assert.False(t, closed.Settlement.FullTerm)
	assert.Equal(t, testStart.Add(60*time.Hour), closed.EndTime)
	assertMoney(t, "27", closed.Settlement.AmountRefunded)
	assertMoney(t, "3", closed.Settlement.PlatformEarnings)

	assertMoney(t, "76", f.balance(t))
	assert.Equal(t, domain.MachineStatusMaintenance, f.machineStatus(t, lease.MachineID))

	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(ev events.Event) bool {
		return ev.Type == events.EventLeaseClosed && ev.LeaseID == lease.ID && !ev.FullTerm
	}))
}

func TestCloseLease_Idempotent(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	svc := NewLeaseService(f.store, f.options()...)

	lease, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)
	f.clock.Advance(60 * time.Hour)

	first, err := svc.CloseLease(context.Background(), lease.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := svc.CloseLease(context.Background(), lease.ID)
	require.NoError(t, err)

	assert.Equal(t, first.EndTime, second.EndTime)
	assert.True(t, first.Settlement.AmountRefunded.Equal(second.Settlement.AmountRefunded))
	assertMoney(t, "76", f.balance(t))

	txs, err := NewLedgerService(f.store, f.options()...).GetTransactions(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 4)
}

func TestCloseLease_Concurrent(t *testing.T) {
	f := newFixture(t, 1)
	f.topUp(t, "100")
	svc := NewLeaseService(f.store, f.options()...)

	lease, err := svc.CreateLease(context.Background(), f.plan.ID, f.user.Email)
	require.NoError(t, err)
	f.clock.Advance(60 * time.Hour)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CloseLease(context.Background(), lease.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assertMoney(t, "76", f.balance(t))
	txs, err := NewLedgerService(f.store, f.options()...).GetTransactions(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 4, "top-up, payment, one refund and one earning")
}

func TestCloseLease_NotFound(t *testing.T) {
	f := newFixture(t, 0)
	svc := NewLeaseService(f.store, f.options()...)

	_, err := svc.CloseLease(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListLeasesByStatus(t *testing.T) {
	f := newFixture(t, 2)
	f.topUp(t, "200")
	svc := NewLeaseService(f.store, f.options()...)
	ctx := context.Background()

	first, err := svc.CreateLease(ctx, f.plan.ID, f.user.Email)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	second, err := svc.CreateLease(ctx, f.plan.ID, f.user.Email)
	require.NoError(t, err)

	_, err = svc.CloseLease(ctx, first.ID)
	require.NoError(t, err)

	active, err := svc.ListActiveLeases(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	closed, err := svc.ListClosedLeases(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, first.ID, closed[0].ID)

	all, err := svc.ListLeases(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := svc.GetLease(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeaseStatusOpen, got.Status)
}

func TestPreviews(t *testing.T) {
	f := newFixture(t, 0)
	svc := NewLeaseService(f.store, f.options()...)
	ctx := context.Background()

	user, err := svc.PreviewUser(ctx, f.plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "GOLD", user.PlanName)
	assertMoney(t, "12", user.AverageDailyYield)
	assertMoney(t, "60", user.GrossPrice)
	assertMoney(t, "54", user.NetPriceToUser)
	assertMoney(t, "16", user.UserMaxProfit)

	admin, err := svc.PreviewAdmin(ctx, f.plan.ID)
	require.NoError(t, err)
	assertMoney(t, "54", admin.PlatformRevenue)
	assertMoney(t, "54", admin.NetPriceToUser)

	all, err := svc.PreviewAllUser(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	allAdmin, err := svc.PreviewAllAdmin(ctx)
	require.NoError(t, err)
	assert.Len(t, allAdmin, 1)

	_, err = svc.PreviewUser(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "no_capacity", failureReason(domain.ErrNoCapacity))
	assert.Equal(t, "insufficient_funds", failureReason(errors.Join(domain.ErrInsufficientFunds, errors.New("x"))))
	assert.Equal(t, "timeout", failureReason(context.DeadlineExceeded))
	assert.Equal(t, "internal", failureReason(errors.New("boom")))
}
