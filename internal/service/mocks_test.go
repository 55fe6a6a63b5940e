package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/events"
	"rigrent-backend/internal/repository"
	"rigrent-backend/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockOracle is a mock implementation of oracle.PriceOracle
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) SpotPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingLeaseStore fails every lease insert made inside a transaction.
type failingLeaseStore struct {
	*memory.Store
	err error
}

func (s failingLeaseStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		repos.Leases = failingLeases{LeaseRepository: repos.Leases, err: s.err}
		return fn(ctx, repos)
	})
}

type failingLeases struct {
	repository.LeaseRepository
	err error
}

func (f failingLeases) Create(context.Context, *domain.Lease) error {
	return f.err
}

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	publisher *MockPublisher
	user      *domain.User
	plan      *domain.Plan
}

// newFixture seeds one user, the GOLD plan (10..14 per day over 5 days) and
// the given number of MEDIUM machines.
func newFixture(t *testing.T, machines int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	repos := store.Repos()

	user := &domain.User{Email: "alice@example.com", Name: "Alice", CreatedAt: testStart}
	require.NoError(t, repos.Users.Create(ctx, user))

	plan := &domain.Plan{
		Name:          "GOLD",
		MinDailyYield: decimal.NewFromInt(10),
		MaxDailyYield: decimal.NewFromInt(14),
		DurationDays:  decimal.NewFromInt(5),
	}
	require.NoError(t, repos.Plans.Create(ctx, plan))

	for i := 0; i < machines; i++ {
		m := &domain.Machine{
			Serial: fmt.Sprintf("MED-%02d", i),
			Tier:   domain.ResourceTierMedium,
			Status: domain.MachineStatusAvailable,
		}
		require.NoError(t, repos.Machines.Create(ctx, m))
	}

	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	return &fixture{
		store:     store,
		clock:     &fakeClock{now: testStart},
		publisher: publisher,
		user:      user,
		plan:      plan,
	}
}

func (f *fixture) options() []Option {
	return []Option{WithClock(f.clock.Now), WithPublisher(f.publisher)}
}

func (f *fixture) topUp(t *testing.T, amount string) {
	t.Helper()
	_, err := NewLedgerService(f.store, f.options()...).TopUp(context.Background(), f.user.ID, decimal.RequireFromString(amount))
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	acct, err := NewLedgerService(f.store, f.options()...).GetAccount(context.Background(), f.user.ID)
	require.NoError(t, err)
	return acct.Balance
}

func (f *fixture) machineStatus(t *testing.T, id int64) domain.MachineStatus {
	t.Helper()
	m, err := f.store.Repos().Machines.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m.Status
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
