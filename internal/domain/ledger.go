package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTopUp               TransactionType = "TOP_UP"
	TransactionTypeLeasePayment        TransactionType = "LEASE_PAYMENT"
	TransactionTypeLeaseEarning        TransactionType = "LEASE_EARNING"
	TransactionTypeLeaseRefund         TransactionType = "LEASE_REFUND"
	TransactionTypeWalletWithdrawal    TransactionType = "WALLET_WITHDRAWAL"
	TransactionTypeWalletDepositCredit TransactionType = "WALLET_DEPOSIT_CREDIT"
)

// IsDebit reports whether the transaction type removes funds from the account.
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeLeasePayment || t == TransactionTypeWalletWithdrawal
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeTopUp, TransactionTypeLeasePayment, TransactionTypeLeaseEarning,
		TransactionTypeLeaseRefund, TransactionTypeWalletWithdrawal, TransactionTypeWalletDepositCredit:
		return true
	}
	return false
}

// LedgerAccount holds a user's USD custodial balance. Balance never goes negative.
type LedgerAccount struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// LedgerTransaction is an append-only posting. Amount is always positive;
// the direction follows from Type.
type LedgerTransaction struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	LeaseID      *int64          `json:"lease_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
