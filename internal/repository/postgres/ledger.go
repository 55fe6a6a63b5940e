package postgres

import (
	"context"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type ledgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetAccount(ctx context.Context, userID int64) (*domain.LedgerAccount, error) {
	query := `SELECT id, user_id, balance, created_at FROM ledger_accounts WHERE user_id = $1`
	var a domain.LedgerAccount
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&a.ID, &a.UserID, &a.Balance, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err, "ledger account for user", userID)
	}
	return &a, nil
}

// GetAccountForUpdate must run inside a transaction for the lock to matter.
// Concurrent first postings race on the insert; ON CONFLICT keeps one row.
func (r *ledgerRepository) GetAccountForUpdate(ctx context.Context, userID int64, openedAt time.Time) (*domain.LedgerAccount, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "ledger_accounts", "userID", userID)

	insert := `INSERT INTO ledger_accounts (user_id, balance, created_at) VALUES ($1, 0, $2) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID, openedAt.UTC()); err != nil {
		logger.DatabaseResult("INSERT", 0, err, "userID", userID)
		return nil, err
	}

	query := `SELECT id, user_id, balance, created_at FROM ledger_accounts WHERE user_id = $1 FOR UPDATE`
	var a domain.LedgerAccount
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&a.ID, &a.UserID, &a.Balance, &a.CreatedAt); err != nil {
		logger.DatabaseResult("SELECT FOR UPDATE", 0, err, "userID", userID)
		return nil, notFound(err, "ledger account for user", userID)
	}
	return &a, nil
}

func (r *ledgerRepository) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `UPDATE ledger_accounts SET balance = $1 WHERE id = $2`, balance, accountID)
	return err
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, tx *domain.LedgerTransaction) error {
	query := `INSERT INTO ledger_transactions (account_id, type, amount, balance_after, lease_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	return r.db.QueryRowContext(ctx, query, tx.AccountID, tx.Type, tx.Amount, tx.BalanceAfter, tx.LeaseID, tx.CreatedAt).Scan(&tx.ID)
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, accountID int64) ([]domain.LedgerTransaction, error) {
	query := `SELECT id, account_id, type, amount, balance_after, lease_id, created_at
	          FROM ledger_transactions WHERE account_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.LedgerTransaction
	for rows.Next() {
		var tx domain.LedgerTransaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Type, &tx.Amount, &tx.BalanceAfter, &tx.LeaseID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
