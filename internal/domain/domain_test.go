package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierForPlan(t *testing.T) {
	tests := []struct {
		name string
		want ResourceTier
	}{
		{"BASIC", ResourceTierLow},
		{"gold", ResourceTierMedium},
		{"Premium", ResourceTierHigh},
		{" vip ", ResourceTierSuperior},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, err := TierForPlan(tt.name)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, tier)
		})
	}

	_, err := TierForPlan("PLATINUM")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTransactionType(t *testing.T) {
	assert.True(t, TransactionTypeLeasePayment.IsDebit())
	assert.True(t, TransactionTypeWalletWithdrawal.IsDebit())
	assert.False(t, TransactionTypeTopUp.IsDebit())
	assert.False(t, TransactionTypeLeaseRefund.IsDebit())
	assert.False(t, TransactionTypeLeaseEarning.IsDebit())
	assert.False(t, TransactionTypeWalletDepositCredit.IsDebit())

	assert.True(t, TransactionTypeLeaseRefund.Valid())
	assert.False(t, TransactionType("ADJUSTMENT").Valid())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("spot price: %w", ErrDependencyUnavailable)))
	assert.False(t, IsRetryable(ErrInsufficientFunds))
	assert.False(t, IsRetryable(errors.New("boom")))
}
