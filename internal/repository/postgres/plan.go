package postgres

import (
	"context"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/repository"
)

type planRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) repository.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	query := `INSERT INTO plans (name, min_daily_yield, max_daily_yield, duration_days) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowContext(ctx, query, plan.Name, plan.MinDailyYield, plan.MaxDailyYield, plan.DurationDays).Scan(&plan.ID)
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	query := `SELECT id, name, min_daily_yield, max_daily_yield, duration_days FROM plans WHERE id = $1`
	var p domain.Plan
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.MinDailyYield, &p.MaxDailyYield, &p.DurationDays)
	if err != nil {
		return nil, notFound(err, "plan", id)
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context) ([]domain.Plan, error) {
	query := `SELECT id, name, min_daily_yield, max_daily_yield, duration_days FROM plans ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.MinDailyYield, &p.MaxDailyYield, &p.DurationDays); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}
