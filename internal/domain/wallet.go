package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletPrecision is the number of fractional digits kept on crypto amounts.
const WalletPrecision int32 = 8

// Currency is an upper-case crypto code understood by the price oracle.
type Currency string

const (
	CurrencyBTC Currency = "BTC"
	CurrencyETH Currency = "ETH"
)

type WalletTransactionType string

const (
	WalletTransactionFundFromLedger WalletTransactionType = "FUND_FROM_LEDGER"
	WalletTransactionCashToLedger   WalletTransactionType = "CASH_TO_LEDGER"
)

type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Alias     string          `json:"alias"`
	Currency  Currency        `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

type WalletTransaction struct {
	ID           int64                 `json:"id"`
	WalletID     int64                 `json:"wallet_id"`
	Type         WalletTransactionType `json:"type"`
	CryptoAmount decimal.Decimal       `json:"crypto_amount"`
	USDAmount    decimal.Decimal       `json:"usd_amount"`
	SpotRate     decimal.Decimal       `json:"spot_rate"`
	BalanceAfter decimal.Decimal       `json:"balance_after"`
	CreatedAt    time.Time             `json:"created_at"`
}

// WalletMove requests a transfer between the ledger and a wallet.
// FUND_FROM_LEDGER reads USDAmount, CASH_TO_LEDGER reads CryptoAmount.
type WalletMove struct {
	Type         WalletTransactionType `json:"type"`
	USDAmount    decimal.Decimal       `json:"usd_amount"`
	CryptoAmount decimal.Decimal       `json:"crypto_amount"`
}
