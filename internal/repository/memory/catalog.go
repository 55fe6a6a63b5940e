package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"rigrent-backend/internal/domain"
)

type userRepository struct{ v *view }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.v.do(ctx, func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, user.Email) {
				return fmt.Errorf("user %s already exists: %w", user.Email, domain.ErrInvalidState)
			}
		}
		user.ID = d.nextID("user")
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out domain.User
	err := r.v.do(ctx, func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	})
	return out, err
}

type planRepository struct{ v *view }

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	return r.v.do(ctx, func(d *dataset) error {
		plan.ID = d.nextID("plan")
		d.plans[plan.ID] = *plan
		return nil
	})
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	var out domain.Plan
	err := r.v.do(ctx, func(d *dataset) error {
		p, ok := d.plans[id]
		if !ok {
			return fmt.Errorf("plan %d: %w", id, domain.ErrNotFound)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *planRepository) List(ctx context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	err := r.v.do(ctx, func(d *dataset) error {
		for _, id := range sortedKeys(d.plans) {
			out = append(out, d.plans[id])
		}
		return nil
	})
	return out, err
}

type machineRepository struct{ v *view }

func (r *machineRepository) Create(ctx context.Context, m *domain.Machine) error {
	return r.v.do(ctx, func(d *dataset) error {
		for _, existing := range d.machines {
			if existing.Serial == m.Serial {
				return fmt.Errorf("machine serial %s already exists: %w", m.Serial, domain.ErrInvalidState)
			}
		}
		m.ID = d.nextID("machine")
		d.machines[m.ID] = *m
		return nil
	})
}

func (r *machineRepository) GetByID(ctx context.Context, id int64) (*domain.Machine, error) {
	var out domain.Machine
	err := r.v.do(ctx, func(d *dataset) error {
		m, ok := d.machines[id]
		if !ok {
			return fmt.Errorf("machine %d: %w", id, domain.ErrNotFound)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *machineRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.v.do(ctx, func(d *dataset) error {
		n = int64(len(d.machines))
		return nil
	})
	return n, err
}

func (r *machineRepository) ReserveAvailable(ctx context.Context, tier domain.ResourceTier) (*domain.Machine, error) {
	var out *domain.Machine
	err := r.v.do(ctx, func(d *dataset) error {
		for _, id := range sortedKeys(d.machines) {
			m := d.machines[id]
			if m.Tier == tier && m.Status == domain.MachineStatusAvailable {
				m.Status = domain.MachineStatusLeased
				d.machines[id] = m
				out = &m
				return nil
			}
		}
		return fmt.Errorf("tier %s: %w", tier, domain.ErrNoCapacity)
	})
	return out, err
}

func (r *machineRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.MachineStatus) error {
	return r.v.do(ctx, func(d *dataset) error {
		m, ok := d.machines[id]
		if !ok {
			return fmt.Errorf("machine %d: %w", id, domain.ErrNotFound)
		}
		if m.Status != from {
			return fmt.Errorf("machine %d is %s, not %s: %w", id, m.Status, from, domain.ErrInvalidState)
		}
		m.Status = to
		d.machines[id] = m
		return nil
	})
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
