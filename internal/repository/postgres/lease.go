package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

const leaseColumns = `id, user_id, machine_id, plan_id, start_time, end_time, price_to_user, gross_price, status,
	amount_refunded, platform_earnings, full_term, closed_at`

type leaseRepository struct {
	db DBTX
}

func NewLeaseRepository(db DBTX) repository.LeaseRepository {
	return &leaseRepository{db: db}
}

func scanLease(row rowScanner) (*domain.Lease, error) {
	var (
		l        domain.Lease
		refunded decimal.NullDecimal
		earnings decimal.NullDecimal
		fullTerm sql.NullBool
		closedAt sql.NullTime
	)
	err := row.Scan(&l.ID, &l.UserID, &l.MachineID, &l.PlanID, &l.StartTime, &l.EndTime,
		&l.PriceToUser, &l.GrossPrice, &l.Status, &refunded, &earnings, &fullTerm, &closedAt)
	if err != nil {
		return nil, err
	}
	if l.Status == domain.LeaseStatusClosed {
		l.Settlement = &domain.LeaseSettlement{
			AmountRefunded:   refunded.Decimal,
			PlatformEarnings: earnings.Decimal,
			FullTerm:         fullTerm.Bool,
			ClosedAt:         closedAt.Time,
		}
	}
	return &l, nil
}

func (r *leaseRepository) Create(ctx context.Context, l *domain.Lease) error {
	query := `INSERT INTO leases (user_id, machine_id, plan_id, start_time, end_time, price_to_user, gross_price, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	return r.db.QueryRowContext(ctx, query, l.UserID, l.MachineID, l.PlanID, l.StartTime, l.EndTime,
		l.PriceToUser, l.GrossPrice, l.Status).Scan(&l.ID)
}

func (r *leaseRepository) GetByID(ctx context.Context, id int64) (*domain.Lease, error) {
	l, err := scanLease(r.db.QueryRowContext(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "lease", id)
	}
	return l, nil
}

func (r *leaseRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Lease, error) {
	l, err := scanLease(r.db.QueryRowContext(ctx, `SELECT `+leaseColumns+` FROM leases WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "lease", id)
	}
	return l, nil
}

func (r *leaseRepository) Close(ctx context.Context, l *domain.Lease) error {
	if l.Settlement == nil {
		return fmt.Errorf("lease %d has no settlement: %w", l.ID, domain.ErrInvalidState)
	}
	query := `UPDATE leases SET status = $1, end_time = $2, amount_refunded = $3, platform_earnings = $4,
	          full_term = $5, closed_at = $6
	          WHERE id = $7 AND status = $8`
	res, err := r.db.ExecContext(ctx, query, domain.LeaseStatusClosed, l.EndTime, l.Settlement.AmountRefunded,
		l.Settlement.PlatformEarnings, l.Settlement.FullTerm, l.Settlement.ClosedAt, l.ID, domain.LeaseStatusOpen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("lease %d is not open: %w", l.ID, domain.ErrInvalidState)
	}
	return nil
}

func (r *leaseRepository) List(ctx context.Context) ([]domain.Lease, error) {
	return r.query(ctx, `SELECT `+leaseColumns+` FROM leases ORDER BY id`)
}

func (r *leaseRepository) ListByUserAndStatus(ctx context.Context, userID int64, status domain.LeaseStatus) ([]domain.Lease, error) {
	return r.query(ctx, `SELECT `+leaseColumns+` FROM leases WHERE user_id = $1 AND status = $2 ORDER BY start_time DESC`, userID, status)
}

func (r *leaseRepository) ListByStatusEndingBefore(ctx context.Context, status domain.LeaseStatus, before time.Time) ([]domain.Lease, error) {
	return r.query(ctx, `SELECT `+leaseColumns+` FROM leases WHERE status = $1 AND end_time < $2 ORDER BY end_time`, status, before)
}

func (r *leaseRepository) query(ctx context.Context, query string, args ...any) ([]domain.Lease, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leases []domain.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, *l)
	}
	return leases, rows.Err()
}
