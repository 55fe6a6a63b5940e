package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"rigrent-backend/internal/domain"
	"rigrent-backend/internal/events"
	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/oracle"
	"rigrent-backend/internal/repository"
	"rigrent-backend/internal/utils"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

type walletService struct {
	store  repository.Store
	oracle oracle.PriceOracle
	opts   options
}

func NewWalletService(store repository.Store, prices oracle.PriceOracle, opts ...Option) WalletService {
	return &walletService{store: store, oracle: prices, opts: buildOptions(opts)}
}

func (s *walletService) CreateWallet(ctx context.Context, userID int64, alias string, currency domain.Currency) (*domain.Wallet, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, fmt.Errorf("wallet alias is required: %w", domain.ErrInvalidState)
	}
	code := domain.Currency(strings.ToUpper(strings.TrimSpace(string(currency))))
	if !currencyPattern.MatchString(string(code)) {
		return nil, fmt.Errorf("invalid currency %q: %w", currency, domain.ErrInvalidState)
	}

	repos := s.store.Repos()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	w := &domain.Wallet{
		UserID:    userID,
		Alias:     alias,
		Currency:  code,
		Balance:   decimal.Zero,
		CreatedAt: s.opts.clock(),
	}
	if err := repos.Wallets.Create(ctx, w); err != nil {
		return nil, err
	}
	logger.Info("Wallet created", "wallet_id", w.ID, "user_id", userID, "currency", code)
	return w, nil
}

func (s *walletService) ListWallets(ctx context.Context, userID int64) ([]domain.Wallet, error) {
	return s.store.Repos().Wallets.ListByUser(ctx, userID)
}

// MoveFunds converts between the user's USD ledger balance and a crypto
// wallet at the current spot price. The oracle is consulted before the
// transaction starts so no row lock is held across the network call; the
// ledger posting, the wallet balance and the movement record commit together.
func (s *walletService) MoveFunds(ctx context.Context, userID, walletID int64, move domain.WalletMove) (*domain.WalletTransaction, error) {
	log := logger.WithService("wallet")

	switch move.Type {
	case domain.WalletTransactionFundFromLedger:
		if !move.USDAmount.IsPositive() {
			return nil, fmt.Errorf("usd amount must be positive: %w", domain.ErrInvalidState)
		}
	case domain.WalletTransactionCashToLedger:
		if !move.CryptoAmount.IsPositive() {
			return nil, fmt.Errorf("crypto amount must be positive: %w", domain.ErrInvalidState)
		}
	default:
		return nil, fmt.Errorf("unknown wallet movement %q: %w", move.Type, domain.ErrInvalidState)
	}

	wallet, err := s.store.Repos().Wallets.GetByIDAndUser(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}

	spot, err := s.oracle.SpotPrice(ctx, string(wallet.Currency))
	if err != nil {
		if !errors.Is(err, domain.ErrDependencyUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrDependencyUnavailable, err)
		}
		return nil, fmt.Errorf("spot price for %s: %w", wallet.Currency, err)
	}
	if !spot.IsPositive() {
		return nil, fmt.Errorf("spot price for %s is %s: %w", wallet.Currency, spot, domain.ErrDependencyUnavailable)
	}

	now := s.opts.clock()
	var (
		record *domain.WalletTransaction
		ledger domain.TransactionType
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		w, err := repos.Wallets.GetForUpdate(ctx, walletID, userID)
		if err != nil {
			return err
		}

		var crypto, usd, balance decimal.Decimal
		switch move.Type {
		case domain.WalletTransactionFundFromLedger:
			usd = move.USDAmount.Round(utils.MoneyPlaces)
			crypto = usd.DivRound(spot, domain.WalletPrecision)
			if !crypto.IsPositive() {
				return fmt.Errorf("%s USD is below the smallest %s unit: %w", usd, w.Currency, domain.ErrInvalidState)
			}
			ledger = domain.TransactionTypeWalletWithdrawal
			if _, err := postTransaction(ctx, repos, userID, ledger, usd, nil, now); err != nil {
				return err
			}
			balance = w.Balance.Add(crypto)

		case domain.WalletTransactionCashToLedger:
			crypto = move.CryptoAmount.Round(domain.WalletPrecision)
			if w.Balance.LessThan(crypto) {
				return fmt.Errorf("wallet %d has %s %s, needs %s: %w", w.ID, w.Balance, w.Currency, crypto, domain.ErrInsufficientFunds)
			}
			usd = crypto.Mul(spot).Round(utils.MoneyPlaces)
			if !usd.IsPositive() {
				return fmt.Errorf("%s %s is worth less than 0.0001 USD: %w", crypto, w.Currency, domain.ErrInvalidState)
			}
			balance = w.Balance.Sub(crypto)
			ledger = domain.TransactionTypeWalletDepositCredit
			if _, err := postTransaction(ctx, repos, userID, ledger, usd, nil, now); err != nil {
				return err
			}
		}

		if err := repos.Wallets.UpdateBalance(ctx, w.ID, balance); err != nil {
			return err
		}
		record = &domain.WalletTransaction{
			WalletID:     w.ID,
			Type:         move.Type,
			CryptoAmount: crypto,
			USDAmount:    usd,
			SpotRate:     spot,
			BalanceAfter: balance,
			CreatedAt:    now,
		}
		return repos.Wallets.CreateTransaction(ctx, record)
	})
	if err != nil {
		log.Warn("Wallet movement failed", "wallet_id", walletID, "user_id", userID, "type", move.Type, "error", err)
		return nil, err
	}

	s.opts.metrics.ObserveLedgerPosting(string(ledger))
	s.opts.metrics.ObserveWalletMove(string(move.Type), string(wallet.Currency))
	log.Info("Wallet movement applied",
		"wallet_id", walletID, "user_id", userID, "type", move.Type,
		logger.Money("crypto", record.CryptoAmount), logger.Money("usd", record.USDAmount), logger.Money("spot", spot))

	ev := events.NewEvent(events.EventWalletMoved, userID, now)
	ev.WalletID = walletID
	ev.Amount = record.USDAmount
	ev.CryptoAmount = record.CryptoAmount
	ev.Currency = string(wallet.Currency)
	s.opts.publish(ctx, ev)

	return record, nil
}

func (s *walletService) GetHistory(ctx context.Context, userID, walletID int64) ([]domain.WalletTransaction, error) {
	repos := s.store.Repos()
	if _, err := repos.Wallets.GetByIDAndUser(ctx, walletID, userID); err != nil {
		return nil, err
	}
	return repos.Wallets.ListTransactions(ctx, walletID)
}
