package memory

import (
	"context"
	"fmt"
	"slices"

	"rigrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type walletRepository struct{ v *view }

func (r *walletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	return r.v.do(ctx, func(d *dataset) error {
		w.ID = d.nextID("wallet")
		d.wallets[w.ID] = *w
		return nil
	})
}

func (r *walletRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Wallet, error) {
	var out domain.Wallet
	err := r.v.do(ctx, func(d *dataset) error {
		w, ok := d.wallets[id]
		if !ok || w.UserID != userID {
			return fmt.Errorf("wallet %d: %w", id, domain.ErrNotFound)
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *walletRepository) GetForUpdate(ctx context.Context, id, userID int64) (*domain.Wallet, error) {
	return r.GetByIDAndUser(ctx, id, userID)
}

func (r *walletRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Wallet, error) {
	var out []domain.Wallet
	err := r.v.do(ctx, func(d *dataset) error {
		for _, id := range sortedKeys(d.wallets) {
			if w := d.wallets[id]; w.UserID == userID {
				out = append(out, w)
			}
		}
		return nil
	})
	return out, err
}

func (r *walletRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	return r.v.do(ctx, func(d *dataset) error {
		w, ok := d.wallets[id]
		if !ok {
			return fmt.Errorf("wallet %d: %w", id, domain.ErrNotFound)
		}
		if balance.IsNegative() {
			return fmt.Errorf("wallet %d: negative balance: %w", id, domain.ErrInvalidState)
		}
		w.Balance = balance
		d.wallets[id] = w
		return nil
	})
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	return r.v.do(ctx, func(d *dataset) error {
		tx.ID = d.nextID("wallet_tx")
		d.walletTxs = append(d.walletTxs, *tx)
		return nil
	})
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID int64) ([]domain.WalletTransaction, error) {
	var out []domain.WalletTransaction
	err := r.v.do(ctx, func(d *dataset) error {
		for _, tx := range d.walletTxs {
			if tx.WalletID == walletID {
				out = append(out, tx)
			}
		}
		return nil
	})
	slices.Reverse(out)
	return out, err
}
