package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type ledgerService struct {
	store repository.Store
	opts  options
}

func NewLedgerService(store repository.Store, opts ...Option) LedgerService {
	return &ledgerService{store: store, opts: buildOptions(opts)}
}

// postTransaction applies one posting through repos, which must belong to an
// open transaction: the account row stays locked until it ends.
func postTransaction(ctx context.Context, repos repository.Repositories, userID int64, txType domain.TransactionType,
	amount decimal.Decimal, leaseID *int64, at time.Time) (*domain.LedgerTransaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("unknown transaction type %q: %w", txType, domain.ErrInvalidState)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s amount must be positive, got %s: %w", txType, amount, domain.ErrInvalidState)
	}

	acct, err := repos.Ledger.GetAccountForUpdate(ctx, userID, at)
	if err != nil {
		return nil, fmt.Errorf("lock ledger account: %w", err)
	}

	balance := acct.Balance
	if txType.IsDebit() {
		if balance.LessThan(amount) {
			return nil, fmt.Errorf("account %d has %s, %s needs %s: %w", acct.ID, balance, txType, amount, domain.ErrInsufficientFunds)
		}
		balance = balance.Sub(amount)
	} else {
		balance = balance.Add(amount)
	}

	if err := repos.Ledger.UpdateBalance(ctx, acct.ID, balance); err != nil {
		return nil, fmt.Errorf("update ledger balance: %w", err)
	}

	tx := &domain.LedgerTransaction{
		AccountID:    acct.ID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: balance,
		LeaseID:      leaseID,
		CreatedAt:    at,
	}
	if err := repos.Ledger.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("record ledger transaction: %w", err)
	}
	return tx, nil
}

func (s *ledgerService) Post(ctx context.Context, userID int64, txType domain.TransactionType, amount decimal.Decimal) (*domain.LedgerTransaction, error) {
	now := s.opts.clock()

	var posted *domain.LedgerTransaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return fmt.Errorf("resolve account owner: %w", err)
		}
		tx, err := postTransaction(ctx, repos, userID, txType, amount, nil, now)
		posted = tx
		return err
	})
	if err != nil {
		return nil, err
	}

	s.opts.metrics.ObserveLedgerPosting(string(txType))
	logger.Info("Ledger transaction posted",
		"user_id", userID, "type", txType, logger.Money("amount", amount), logger.Money("balance_after", posted.BalanceAfter))
	return posted, nil
}

func (s *ledgerService) TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.LedgerTransaction, error) {
	return s.Post(ctx, userID, domain.TransactionTypeTopUp, amount)
}

// GetAccount returns the user's account. A user who has never been posted
// to gets an unsaved zero-balance view; the first posting opens the account.
func (s *ledgerService) GetAccount(ctx context.Context, userID int64) (*domain.LedgerAccount, error) {
	repos := s.store.Repos()
	acct, err := repos.Ledger.GetAccount(ctx, userID)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return acct, err
	}
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return &domain.LedgerAccount{UserID: userID, Balance: decimal.Zero}, nil
}

func (s *ledgerService) GetTransactions(ctx context.Context, userID int64) ([]domain.LedgerTransaction, error) {
	repos := s.store.Repos()
	acct, err := repos.Ledger.GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.LedgerTransaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	return repos.Ledger.ListTransactions(ctx, acct.ID)
}
