package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"rigrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type ledgerRepository struct{ v *view }

func (r *ledgerRepository) GetAccount(ctx context.Context, userID int64) (*domain.LedgerAccount, error) {
	var out domain.LedgerAccount
	err := r.v.do(ctx, func(d *dataset) error {
		a, ok := d.accounts[userID]
		if !ok {
			return fmt.Errorf("ledger account for user %d: %w", userID, domain.ErrNotFound)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ledgerRepository) GetAccountForUpdate(ctx context.Context, userID int64, openedAt time.Time) (*domain.LedgerAccount, error) {
	var out domain.LedgerAccount
	err := r.v.do(ctx, func(d *dataset) error {
		a, ok := d.accounts[userID]
		if !ok {
			a = domain.LedgerAccount{
				ID:        d.nextID("account"),
				UserID:    userID,
				Balance:   decimal.Zero,
				CreatedAt: openedAt.UTC(),
			}
			d.accounts[userID] = a
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ledgerRepository) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	return r.v.do(ctx, func(d *dataset) error {
		for userID, a := range d.accounts {
			if a.ID == accountID {
				if balance.IsNegative() {
					return fmt.Errorf("ledger account %d: negative balance: %w", accountID, domain.ErrInvalidState)
				}
				a.Balance = balance
				d.accounts[userID] = a
				return nil
			}
		}
		return fmt.Errorf("ledger account %d: %w", accountID, domain.ErrNotFound)
	})
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, tx *domain.LedgerTransaction) error {
	return r.v.do(ctx, func(d *dataset) error {
		tx.ID = d.nextID("ledger_tx")
		rec := *tx
		if tx.LeaseID != nil {
			id := *tx.LeaseID
			rec.LeaseID = &id
		}
		d.ledgerTxs = append(d.ledgerTxs, rec)
		return nil
	})
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, accountID int64) ([]domain.LedgerTransaction, error) {
	var out []domain.LedgerTransaction
	err := r.v.do(ctx, func(d *dataset) error {
		for _, tx := range d.ledgerTxs {
			if tx.AccountID == accountID {
				out = append(out, tx)
			}
		}
		return nil
	})
	slices.Reverse(out)
	return out, err
}
