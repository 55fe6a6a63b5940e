package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// FractionPlaces is the precision of the used-time fraction.
const FractionPlaces int32 = 8

const secondsPerDay = 86400

// LeaseEndTime adds a possibly fractional number of days to start. The
// fractional part is converted to whole seconds, truncating the remainder.
func LeaseEndTime(start time.Time, durationDays decimal.Decimal) time.Time {
	whole := durationDays.Truncate(0)
	seconds := durationDays.Sub(whole).Mul(decimal.NewFromInt(secondsPerDay)).IntPart()
	return start.AddDate(0, 0, int(whole.IntPart())).Add(time.Duration(seconds) * time.Second)
}

// UsedFraction returns the share of the lease window consumed at now, in [0, 1].
// Elapsed and total time are measured in whole seconds.
func UsedFraction(start, end, now time.Time) decimal.Decimal {
	if !now.Before(end) {
		return decimal.NewFromInt(1)
	}
	elapsed := int64(now.Sub(start) / time.Second)
	if elapsed <= 0 {
		return decimal.Zero
	}
	total := int64(end.Sub(start) / time.Second)
	if total <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(elapsed).DivRound(decimal.NewFromInt(total), FractionPlaces)
}

// Settlement is the outcome of closing a lease at a given instant.
type Settlement struct {
	FullTerm     bool
	UsedFraction decimal.Decimal
	// AmountRefunded goes back to the lessee as LEASE_REFUND.
	AmountRefunded decimal.Decimal
	// PlatformEarnings is the yield credited to the lessee as LEASE_EARNING.
	PlatformEarnings decimal.Decimal
	EndTime          time.Time
}

// SettleLease reconciles what the user paid against what was consumed.
// At or past the scheduled end the full gross price is earned and nothing is
// refunded. Before it, the unused share of the price is refunded and the
// earned share of the commission spread is credited.
func SettleLease(start, end time.Time, priceToUser, grossPrice decimal.Decimal, now time.Time) Settlement {
	if !now.Before(end) {
		return Settlement{
			FullTerm:         true,
			UsedFraction:     decimal.NewFromInt(1),
			AmountRefunded:   decimal.Zero,
			PlatformEarnings: grossPrice.Round(MoneyPlaces),
			EndTime:          end,
		}
	}

	f := UsedFraction(start, end, now)
	extraEarned := grossPrice.Sub(priceToUser).Mul(f).Round(MoneyPlaces)
	paidUsed := priceToUser.Mul(f).Round(MoneyPlaces)
	refunded := priceToUser.Sub(paidUsed).Round(MoneyPlaces)
	if refunded.IsNegative() {
		refunded = decimal.Zero
	}
	if extraEarned.IsNegative() {
		extraEarned = decimal.Zero
	}

	return Settlement{
		UsedFraction:     f,
		AmountRefunded:   refunded,
		PlatformEarnings: extraEarned,
		EndTime:          now,
	}
}
