// Package oracle looks up crypto spot prices in USD.
package oracle

import (
	"context"
	"fmt"

	"rigrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned for any failed lookup: transport errors,
// timeouts, bad responses and non-positive prices. It matches
// domain.ErrDependencyUnavailable.
var ErrPriceUnavailable = fmt.Errorf("spot price unavailable: %w", domain.ErrDependencyUnavailable)

// PriceOracle returns the USD price of one unit of currency.
type PriceOracle interface {
	SpotPrice(ctx context.Context, currency string) (decimal.Decimal, error)
}
