package postgres

import (
	"context"
	"fmt"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, alias, currency, balance, created_at`

type walletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) repository.WalletRepository {
	return &walletRepository{db: db}
}

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Alias, &w.Currency, &w.Balance, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *walletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (user_id, alias, currency, balance, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.db.QueryRowContext(ctx, query, w.UserID, w.Alias, w.Currency, w.Balance, w.CreatedAt).Scan(&w.ID)
}

func (r *walletRepository) GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Wallet, error) {
	w, err := scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, notFound(err, "wallet", id)
	}
	return w, nil
}

func (r *walletRepository) GetForUpdate(ctx context.Context, id, userID int64) (*domain.Wallet, error) {
	w, err := scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID))
	if err != nil {
		return nil, notFound(err, "wallet", id)
	}
	return w, nil
}

func (r *walletRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Wallet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

func (r *walletRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("wallet %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (wallet_id, type, crypto_amount, usd_amount, spot_rate, balance_after, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	return r.db.QueryRowContext(ctx, query, tx.WalletID, tx.Type, tx.CryptoAmount, tx.USDAmount, tx.SpotRate,
		tx.BalanceAfter, tx.CreatedAt).Scan(&tx.ID)
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID int64) ([]domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, type, crypto_amount, usd_amount, spot_rate, balance_after, created_at
	          FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		if err := rows.Scan(&tx.ID, &tx.WalletID, &tx.Type, &tx.CryptoAmount, &tx.USDAmount, &tx.SpotRate,
			&tx.BalanceAfter, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
