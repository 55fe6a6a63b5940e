package postgres_test

import (
	"context"
	"testing"

	"rigrent-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineRepository_ReserveAvailable(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	cols := []string{"id", "serial", "tier", "status", "specs"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE machines SET status = \$1\s+WHERE id = \(\s+SELECT id FROM machines WHERE tier = \$2 AND status = \$3\s+ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED`).
			WithArgs(domain.MachineStatusLeased, domain.ResourceTierHigh, domain.MachineStatusAvailable).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(9, "HIGH-1", "HIGH", "LEASED", "16 vCPU"))

		m, err := store.Repos().Machines.ReserveAvailable(ctx, domain.ResourceTierHigh)
		require.NoError(t, err)
		assert.Equal(t, int64(9), m.ID)
		assert.Equal(t, domain.MachineStatusLeased, m.Status)
		assert.Equal(t, domain.ResourceTierHigh, m.Tier)
	})

	t.Run("No capacity", func(t *testing.T) {
		mock.ExpectQuery("UPDATE machines SET status").
			WithArgs(domain.MachineStatusLeased, domain.ResourceTierLow, domain.MachineStatusAvailable).
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := store.Repos().Machines.ReserveAvailable(ctx, domain.ResourceTierLow)
		assert.ErrorIs(t, err, domain.ErrNoCapacity)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMachineRepository_UpdateStatus(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE machines SET status = \\$1 WHERE id = \\$2 AND status = \\$3").
		WithArgs(domain.MachineStatusMaintenance, int64(2), domain.MachineStatusLeased).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Repos().Machines.UpdateStatus(ctx, 2, domain.MachineStatusLeased, domain.MachineStatusMaintenance)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))
	n, err := store.Repos().Machines.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	mock.ExpectQuery("INSERT INTO machines").
		WithArgs("LOW-1", domain.ResourceTierLow, domain.MachineStatusAvailable, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	m := &domain.Machine{Serial: "LOW-1", Tier: domain.ResourceTierLow, Status: domain.MachineStatusAvailable}
	require.NoError(t, store.Repos().Machines.Create(ctx, m))
	assert.Equal(t, int64(1), m.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
