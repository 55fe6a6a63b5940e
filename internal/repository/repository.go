package repository

import (
	"context"
	"time"

	"rigrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Lookups that find no row return an error wrapping domain.ErrNotFound.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetByID(ctx context.Context, id int64) (*domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
}

type MachineRepository interface {
	Create(ctx context.Context, machine *domain.Machine) error
	GetByID(ctx context.Context, id int64) (*domain.Machine, error)
	Count(ctx context.Context) (int64, error)
	// ReserveAvailable atomically moves the first AVAILABLE machine of the tier
	// to LEASED. It returns domain.ErrNoCapacity when none is free.
	ReserveAvailable(ctx context.Context, tier domain.ResourceTier) (*domain.Machine, error)
	// UpdateStatus moves a machine from one status to another. It fails with
	// domain.ErrInvalidState when the machine is not in the expected status.
	UpdateStatus(ctx context.Context, id int64, from, to domain.MachineStatus) error
}

type LeaseRepository interface {
	Create(ctx context.Context, lease *domain.Lease) error
	GetByID(ctx context.Context, id int64) (*domain.Lease, error)
	// GetForUpdate reads a lease and holds it against concurrent settlement
	// until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Lease, error)
	// Close persists the settled state of an OPEN lease. It fails with
	// domain.ErrInvalidState if the lease is no longer OPEN.
	Close(ctx context.Context, lease *domain.Lease) error
	List(ctx context.Context) ([]domain.Lease, error)
	ListByUserAndStatus(ctx context.Context, userID int64, status domain.LeaseStatus) ([]domain.Lease, error)
	ListByStatusEndingBefore(ctx context.Context, status domain.LeaseStatus, before time.Time) ([]domain.Lease, error)
}

type LedgerRepository interface {
	GetAccount(ctx context.Context, userID int64) (*domain.LedgerAccount, error)
	// GetAccountForUpdate locks the user's account, creating it with a zero
	// balance and the given opening time on first use.
	GetAccountForUpdate(ctx context.Context, userID int64, openedAt time.Time) (*domain.LedgerAccount, error)
	UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, tx *domain.LedgerTransaction) error
	// ListTransactions returns an account's postings, newest first.
	ListTransactions(ctx context.Context, accountID int64) ([]domain.LedgerTransaction, error)
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByIDAndUser(ctx context.Context, id, userID int64) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, id, userID int64) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Wallet, error)
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	// ListTransactions returns a wallet's movements, newest first.
	ListTransactions(ctx context.Context, walletID int64) ([]domain.WalletTransaction, error)
}

// Repositories groups every repository bound to the same connection or transaction.
type Repositories struct {
	Users    UserRepository
	Plans    PlanRepository
	Machines MachineRepository
	Leases   LeaseRepository
	Ledger   LedgerRepository
	Wallets  WalletRepository
}

// Store exposes auto-commit repositories and a way to run several operations
// atomically. When fn returns an error every write made through its
// Repositories is rolled back.
type Store interface {
	Repos() Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
