package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"rigrent-backend/internal/domain"
)

type leaseRepository struct{ v *view }

func copyLease(l domain.Lease) domain.Lease {
	if l.Settlement != nil {
		s := *l.Settlement
		l.Settlement = &s
	}
	return l
}

func (r *leaseRepository) Create(ctx context.Context, l *domain.Lease) error {
	return r.v.do(ctx, func(d *dataset) error {
		if l.Status == domain.LeaseStatusOpen {
			for _, other := range d.leases {
				if other.MachineID == l.MachineID && other.Status == domain.LeaseStatusOpen {
					return fmt.Errorf("machine %d already has open lease %d: %w", l.MachineID, other.ID, domain.ErrInvalidState)
				}
			}
		}
		l.ID = d.nextID("lease")
		d.leases[l.ID] = copyLease(*l)
		return nil
	})
}

func (r *leaseRepository) GetByID(ctx context.Context, id int64) (*domain.Lease, error) {
	var out domain.Lease
	err := r.v.do(ctx, func(d *dataset) error {
		l, ok := d.leases[id]
		if !ok {
			return fmt.Errorf("lease %d: %w", id, domain.ErrNotFound)
		}
		out = copyLease(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate needs no extra locking here: a transaction already holds the
// store mutex.
func (r *leaseRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Lease, error) {
	return r.GetByID(ctx, id)
}

func (r *leaseRepository) Close(ctx context.Context, l *domain.Lease) error {
	if l.Settlement == nil {
		return fmt.Errorf("lease %d has no settlement: %w", l.ID, domain.ErrInvalidState)
	}
	return r.v.do(ctx, func(d *dataset) error {
		current, ok := d.leases[l.ID]
		if !ok {
			return fmt.Errorf("lease %d: %w", l.ID, domain.ErrNotFound)
		}
		if current.Status != domain.LeaseStatusOpen {
			return fmt.Errorf("lease %d is not open: %w", l.ID, domain.ErrInvalidState)
		}
		current.Status = domain.LeaseStatusClosed
		current.EndTime = l.EndTime
		current.Settlement = l.Settlement
		d.leases[l.ID] = copyLease(current)
		return nil
	})
}

func (r *leaseRepository) List(ctx context.Context) ([]domain.Lease, error) {
	return r.filter(ctx, func(domain.Lease) bool { return true }, func(a, b domain.Lease) int {
		return cmpInt64(a.ID, b.ID)
	})
}

func (r *leaseRepository) ListByUserAndStatus(ctx context.Context, userID int64, status domain.LeaseStatus) ([]domain.Lease, error) {
	return r.filter(ctx, func(l domain.Lease) bool {
		return l.UserID == userID && l.Status == status
	}, func(a, b domain.Lease) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return cmpInt64(b.ID, a.ID)
	})
}

func (r *leaseRepository) ListByStatusEndingBefore(ctx context.Context, status domain.LeaseStatus, before time.Time) ([]domain.Lease, error) {
	return r.filter(ctx, func(l domain.Lease) bool {
		return l.Status == status && l.EndTime.Before(before)
	}, func(a, b domain.Lease) int {
		if c := a.EndTime.Compare(b.EndTime); c != 0 {
			return c
		}
		return cmpInt64(a.ID, b.ID)
	})
}

func (r *leaseRepository) filter(ctx context.Context, keep func(domain.Lease) bool, cmp func(a, b domain.Lease) int) ([]domain.Lease, error) {
	var out []domain.Lease
	err := r.v.do(ctx, func(d *dataset) error {
		for _, l := range d.leases {
			if keep(l) {
				out = append(out, copyLease(l))
			}
		}
		return nil
	})
	slices.SortFunc(out, cmp)
	return out, err
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
