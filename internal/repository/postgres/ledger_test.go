package postgres_test

import (
	"context"
	"testing"

	"rigrent-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository_GetAccountForUpdate(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO ledger_accounts (.+) ON CONFLICT \\(user_id\\) DO NOTHING").
		WithArgs(int64(7), t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, user_id, balance, created_at FROM ledger_accounts WHERE user_id = \\$1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at"}).AddRow(3, 7, "125.5", t0))

	acct, err := store.Repos().Ledger.GetAccountForUpdate(ctx, 7, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), acct.ID)
	assert.True(t, acct.Balance.Equal(dec("125.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_GetAccount(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("FROM ledger_accounts WHERE user_id").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at"}))

	_, err := store.Repos().Ledger.GetAccount(context.Background(), 8)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Transactions(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	leaseID := int64(11)

	tx := &domain.LedgerTransaction{
		AccountID: 3, Type: domain.TransactionTypeLeaseRefund,
		Amount: dec("27"), BalanceAfter: dec("73"), LeaseID: &leaseID, CreatedAt: t0,
	}
	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(int64(3), domain.TransactionTypeLeaseRefund, sqlmock.AnyArg(), sqlmock.AnyArg(), int64(11), t0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	require.NoError(t, store.Repos().Ledger.CreateTransaction(ctx, tx))
	assert.Equal(t, int64(1), tx.ID)

	mock.ExpectQuery("FROM ledger_transactions WHERE account_id = \\$1 ORDER BY created_at DESC").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "type", "amount", "balance_after", "lease_id", "created_at"}).
			AddRow(2, 3, "LEASE_EARNING", "3", "76", 11, t0).
			AddRow(1, 3, "LEASE_REFUND", "27", "73", nil, t0))

	txs, err := store.Repos().Ledger.ListTransactions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionTypeLeaseEarning, txs[0].Type)
	require.NotNil(t, txs[0].LeaseID)
	assert.Equal(t, int64(11), *txs[0].LeaseID)
	assert.Nil(t, txs[1].LeaseID)
	assert.True(t, txs[0].BalanceAfter.Equal(dec("76")))

	mock.ExpectExec("UPDATE ledger_accounts SET balance").
		WithArgs(sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Repos().Ledger.UpdateBalance(ctx, 3, dec("76")))

	assert.NoError(t, mock.ExpectationsWereMet())
}
