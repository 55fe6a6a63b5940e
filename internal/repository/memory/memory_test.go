package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var openedAt = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func seedMachines(t *testing.T, s *Store, tier domain.ResourceTier, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		m := &domain.Machine{Serial: string(tier) + "-" + string(rune('A'+i)), Tier: tier, Status: domain.MachineStatusAvailable}
		require.NoError(t, s.Repos().Machines.Create(context.Background(), m))
	}
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedMachines(t, s, domain.ResourceTierLow, 1)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		_, err := repos.Machines.ReserveAvailable(ctx, domain.ResourceTierLow)
		require.NoError(t, err)
		acct, err := repos.Ledger.GetAccountForUpdate(ctx, 1, openedAt)
		require.NoError(t, err)
		require.NoError(t, repos.Ledger.UpdateBalance(ctx, acct.ID, decimal.NewFromInt(10)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	m, err := s.Repos().Machines.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.MachineStatusAvailable, m.Status)

	_, err = s.Repos().Ledger.GetAccount(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_WithinTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		acct, err := repos.Ledger.GetAccountForUpdate(ctx, 1, openedAt)
		if err != nil {
			return err
		}
		return repos.Ledger.UpdateBalance(ctx, acct.ID, decimal.NewFromInt(10))
	})
	require.NoError(t, err)

	acct, err := s.Repos().Ledger.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(10)))
}

func TestStore_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Repos().Plans.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMachineRepository_ReserveAvailable(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedMachines(t, s, domain.ResourceTierLow, 2)
	seedMachines(t, s, domain.ResourceTierHigh, 1)

	m, err := s.Repos().Machines.ReserveAvailable(ctx, domain.ResourceTierHigh)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.ID)
	assert.Equal(t, domain.MachineStatusLeased, m.Status)

	_, err = s.Repos().Machines.ReserveAvailable(ctx, domain.ResourceTierHigh)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)

	_, err = s.Repos().Machines.ReserveAvailable(ctx, domain.ResourceTierSuperior)
	assert.ErrorIs(t, err, domain.ErrNoCapacity)

	err = s.Repos().Machines.UpdateStatus(ctx, 1, domain.MachineStatusLeased, domain.MachineStatusMaintenance)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestMachineRepository_ConcurrentReservations(t *testing.T) {
	s := NewStore()
	seedMachines(t, s, domain.ResourceTierMedium, 5)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		got     = map[int64]bool{}
		noCapac int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := s.Repos().Machines.ReserveAvailable(context.Background(), domain.ResourceTierMedium)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				noCapac++
				return
			}
			assert.False(t, got[m.ID], "machine %d reserved twice", m.ID)
			got[m.ID] = true
		}()
	}
	wg.Wait()

	assert.Len(t, got, 5)
	assert.Equal(t, 15, noCapac)
}

func TestLeaseRepository(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repos := s.Repos()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	open := func(machineID int64, start time.Time, end time.Time) *domain.Lease {
		l := &domain.Lease{UserID: 1, MachineID: machineID, PlanID: 1, StartTime: start, EndTime: end,
			PriceToUser: decimal.NewFromInt(9), GrossPrice: decimal.NewFromInt(10), Status: domain.LeaseStatusOpen}
		require.NoError(t, repos.Leases.Create(ctx, l))
		return l
	}
	a := open(1, t0, t0.Add(2*time.Hour))
	b := open(2, t0.Add(time.Hour), t0.Add(time.Hour+30*time.Minute))
	open(3, t0.Add(2*time.Hour), t0.Add(10*time.Hour))

	t.Run("One open lease per machine", func(t *testing.T) {
		dup := &domain.Lease{MachineID: 1, Status: domain.LeaseStatusOpen}
		assert.ErrorIs(t, repos.Leases.Create(ctx, dup), domain.ErrInvalidState)
	})

	t.Run("Expired ordered by end time", func(t *testing.T) {
		leases, err := repos.Leases.ListByStatusEndingBefore(ctx, domain.LeaseStatusOpen, t0.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, leases, 2)
		assert.Equal(t, b.ID, leases[0].ID)
		assert.Equal(t, a.ID, leases[1].ID)
	})

	t.Run("Close once", func(t *testing.T) {
		a.Status = domain.LeaseStatusClosed
		a.Settlement = &domain.LeaseSettlement{AmountRefunded: decimal.NewFromInt(4), ClosedAt: t0.Add(time.Hour)}
		a.EndTime = t0.Add(time.Hour)
		require.NoError(t, repos.Leases.Close(ctx, a))
		assert.ErrorIs(t, repos.Leases.Close(ctx, a), domain.ErrInvalidState)

		stored, err := repos.Leases.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LeaseStatusClosed, stored.Status)
		require.NotNil(t, stored.Settlement)
		assert.True(t, stored.Settlement.AmountRefunded.Equal(decimal.NewFromInt(4)))

		a.Settlement.AmountRefunded = decimal.NewFromInt(99)
		again, err := repos.Leases.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, again.Settlement.AmountRefunded.Equal(decimal.NewFromInt(4)))
	})

	t.Run("By user and status newest first", func(t *testing.T) {
		openLeases, err := repos.Leases.ListByUserAndStatus(ctx, 1, domain.LeaseStatusOpen)
		require.NoError(t, err)
		require.Len(t, openLeases, 2)
		assert.True(t, openLeases[0].StartTime.After(openLeases[1].StartTime))

		closed, err := repos.Leases.ListByUserAndStatus(ctx, 1, domain.LeaseStatusClosed)
		require.NoError(t, err)
		assert.Len(t, closed, 1)
	})
}

func TestLedgerRepository_History(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repos := s.Repos()

	acct, err := repos.Ledger.GetAccountForUpdate(ctx, 5, openedAt)
	require.NoError(t, err)
	again, err := repos.Ledger.GetAccountForUpdate(ctx, 5, openedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, acct.ID, again.ID)
	assert.True(t, acct.Balance.IsZero())
	assert.True(t, again.CreatedAt.Equal(openedAt), "opening time is kept from the first lock")

	for i := 1; i <= 3; i++ {
		require.NoError(t, repos.Ledger.CreateTransaction(ctx, &domain.LedgerTransaction{
			AccountID: acct.ID, Type: domain.TransactionTypeTopUp,
			Amount: decimal.NewFromInt(int64(i)), BalanceAfter: decimal.NewFromInt(int64(i)),
		}))
	}
	txs, err := repos.Ledger.ListTransactions(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(3)))

	assert.ErrorIs(t, repos.Ledger.UpdateBalance(ctx, acct.ID, decimal.NewFromInt(-1)), domain.ErrInvalidState)
}

func TestWalletRepository_Ownership(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repos := s.Repos()

	w := &domain.Wallet{UserID: 1, Alias: "main", Currency: domain.CurrencyBTC, Balance: decimal.Zero}
	require.NoError(t, repos.Wallets.Create(ctx, w))

	_, err := repos.Wallets.GetByIDAndUser(ctx, w.ID, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repos.Wallets.GetForUpdate(ctx, w.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "main", got.Alias)

	wallets, err := repos.Wallets.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, wallets)
}
