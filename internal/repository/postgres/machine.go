package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/repository"
)

type machineRepository struct {
	db DBTX
}

func NewMachineRepository(db DBTX) repository.MachineRepository {
	return &machineRepository{db: db}
}

func (r *machineRepository) Create(ctx context.Context, m *domain.Machine) error {
	query := `INSERT INTO machines (serial, tier, status, specs) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowContext(ctx, query, m.Serial, m.Tier, m.Status, m.Specs).Scan(&m.ID)
}

func (r *machineRepository) GetByID(ctx context.Context, id int64) (*domain.Machine, error) {
	query := `SELECT id, serial, tier, status, specs FROM machines WHERE id = $1`
	var m domain.Machine
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Serial, &m.Tier, &m.Status, &m.Specs)
	if err != nil {
		return nil, notFound(err, "machine", id)
	}
	return &m, nil
}

func (r *machineRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM machines`).Scan(&n)
	return n, err
}

// ReserveAvailable skips rows locked by concurrent reservations so two
// callers never receive the same machine.
func (r *machineRepository) ReserveAvailable(ctx context.Context, tier domain.ResourceTier) (*domain.Machine, error) {
	query := `UPDATE machines SET status = $1
	          WHERE id = (
	              SELECT id FROM machines WHERE tier = $2 AND status = $3
	              ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED
	          )
	          RETURNING id, serial, tier, status, specs`
	logger.DatabaseCall("UPDATE", "machines reserve", "tier", tier)

	var m domain.Machine
	err := r.db.QueryRowContext(ctx, query, domain.MachineStatusLeased, tier, domain.MachineStatusAvailable).
		Scan(&m.ID, &m.Serial, &m.Tier, &m.Status, &m.Specs)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("UPDATE", 0, nil, "tier", tier)
		return nil, fmt.Errorf("tier %s: %w", tier, domain.ErrNoCapacity)
	}
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "tier", tier)
		return nil, err
	}
	logger.DatabaseResult("UPDATE", 1, nil, "tier", tier, "machineID", m.ID)
	return &m, nil
}

func (r *machineRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.MachineStatus) error {
	query := `UPDATE machines SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("machine %d is not %s: %w", id, from, domain.ErrInvalidState)
	}
	return nil
}
