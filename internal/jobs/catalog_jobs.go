package jobs

import (
	"context"
	"errors"
	"fmt"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

// Accounts created by SeedCatalog. Tokens for them are issued by the
// identity service like for any other user.
const (
	DemoUserEmail  = "demo@rigrent.local"
	AdminUserEmail = "admin@rigrent.local"
)

// demoPlans is one plan per machine tier.
var demoPlans = []struct {
	name         string
	minDaily     string
	maxDaily     string
	durationDays string
}{
	{"BASIC", "1", "3", "7"},
	{"GOLD", "10", "14", "5"},
	{"PREMIUM", "25", "35", "10"},
	{"VIP", "60", "80", "15"},
}

// SeedCatalog creates the demo plans when no plan exists, plus the demo and
// admin users when they are missing.
func (jr *JobRunner) SeedCatalog() {
	jr.runWithRecovery("SeedCatalog", func() {
		plans, users, err := jr.seedCatalog(jr.ctx)
		if err != nil {
			logger.Error("Failed to seed catalog", "error", err)
			return
		}
		logger.Info("Catalog seeded", "plans_created", plans, "users_created", users)
	})
}

func (jr *JobRunner) seedCatalog(ctx context.Context) (plans, users int, err error) {
	now := jr.now()
	err = jr.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		plans, users = 0, 0

		existing, err := repos.Plans.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for _, p := range demoPlans {
				plan := &domain.Plan{
					Name:          p.name,
					MinDailyYield: decimal.RequireFromString(p.minDaily),
					MaxDailyYield: decimal.RequireFromString(p.maxDaily),
					DurationDays:  decimal.RequireFromString(p.durationDays),
				}
				if err := repos.Plans.Create(ctx, plan); err != nil {
					return fmt.Errorf("create plan %s: %w", p.name, err)
				}
				plans++
			}
		}

		for _, u := range []domain.User{
			{Email: DemoUserEmail, Name: "Demo"},
			{Email: AdminUserEmail, Name: "Administrator"},
		} {
			_, err := repos.Users.GetByEmail(ctx, u.Email)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			u.CreatedAt = now
			if err := repos.Users.Create(ctx, &u); err != nil {
				return fmt.Errorf("create user %s: %w", u.Email, err)
			}
			users++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return plans, users, nil
}
