package service

import (
	"context"
	"time"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/events"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/metrics"

	"github.com/shopspring/decimal"
)

type LeaseService interface {
	CreateLease(ctx context.Context, planID int64, userEmail string) (*domain.Lease, error)
	CloseLease(ctx context.Context, leaseID int64) (*domain.Lease, error)
	GetLease(ctx context.Context, leaseID int64) (*domain.Lease, error)
	ListLeases(ctx context.Context) ([]domain.Lease, error)
	ListActiveLeases(ctx context.Context, userID int64) ([]domain.Lease, error)
	ListClosedLeases(ctx context.Context, userID int64) ([]domain.Lease, error)
	PreviewAdmin(ctx context.Context, planID int64) (*domain.AdminPlanPreview, error)
	PreviewUser(ctx context.Context, planID int64) (*domain.UserPlanPreview, error)
	PreviewAllAdmin(ctx context.Context) ([]domain.AdminPlanPreview, error)
	PreviewAllUser(ctx context.Context) ([]domain.UserPlanPreview, error)
}

type LedgerService interface {
	Post(ctx context.Context, userID int64, txType domain.TransactionType, amount decimal.Decimal) (*domain.LedgerTransaction, error)
	TopUp(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.LedgerTransaction, error)
	GetAccount(ctx context.Context, userID int64) (*domain.LedgerAccount, error)
	GetTransactions(ctx context.Context, userID int64) ([]domain.LedgerTransaction, error)
}

type WalletService interface {
	CreateWallet(ctx context.Context, userID int64, alias string, currency domain.Currency) (*domain.Wallet, error)
	ListWallets(ctx context.Context, userID int64) ([]domain.Wallet, error)
	MoveFunds(ctx context.Context, userID, walletID int64, move domain.WalletMove) (*domain.WalletTransaction, error)
	GetHistory(ctx context.Context, userID, walletID int64) ([]domain.WalletTransaction, error)
}

const (
	publishTimeout = 5 * time.Second
	releaseTimeout = 10 * time.Second
)

type options struct {
	clock     func() time.Time
	publisher events.Publisher
	metrics   *metrics.RentalMetrics
}

// Option configures the shared dependencies of the engines.
type Option func(*options)

// WithClock replaces the wall clock. Each operation reads it once.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithMetrics(m *metrics.RentalMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:     func() time.Time { return time.Now().UTC() },
		publisher: events.NopPublisher{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish runs after commit; a failed delivery is logged and otherwise ignored.
func (o options) publish(ctx context.Context, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := o.publisher.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "type", ev.Type, "event_id", ev.ID, "error", err)
	}
}
