package utils

import (
	"fmt"

	"rigrent-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept on USD amounts.
const MoneyPlaces int32 = 4

// CommissionRate is the platform's cut taken from the gross plan price.
var CommissionRate = decimal.RequireFromString("0.10")

var two = decimal.NewFromInt(2)

// ValidatePlan checks the catalog invariants the pricing math relies on.
func ValidatePlan(plan *domain.Plan) error {
	if plan.MinDailyYield.IsNegative() {
		return fmt.Errorf("plan %d: negative minimum daily yield: %w", plan.ID, domain.ErrInvalidState)
	}
	if plan.MinDailyYield.GreaterThan(plan.MaxDailyYield) {
		return fmt.Errorf("plan %d: minimum daily yield exceeds maximum: %w", plan.ID, domain.ErrInvalidState)
	}
	if !plan.DurationDays.IsPositive() {
		return fmt.Errorf("plan %d: duration must be positive: %w", plan.ID, domain.ErrInvalidState)
	}
	return nil
}

// CalculatePlanPricing quotes a plan. The user pays the gross price of the
// average yield minus commission; rounding is half-up to MoneyPlaces.
func CalculatePlanPricing(plan *domain.Plan) domain.PlanPricing {
	avg := plan.MinDailyYield.Add(plan.MaxDailyYield).Div(two)
	gross := avg.Mul(plan.DurationDays)
	net := gross.Mul(decimal.NewFromInt(1).Sub(CommissionRate)).Round(MoneyPlaces)
	userGrossIfMax := plan.MaxDailyYield.Mul(plan.DurationDays)

	return domain.PlanPricing{
		AverageDailyYield: avg,
		GrossPrice:        gross,
		NetPriceToUser:    net,
		UserMaxProfit:     userGrossIfMax.Sub(net).Round(MoneyPlaces),
		PlatformRevenue:   net,
	}
}

// UserPreview builds the customer-facing quote for a plan.
func UserPreview(plan *domain.Plan) domain.UserPlanPreview {
	p := CalculatePlanPricing(plan)
	return domain.UserPlanPreview{
		PlanID:            plan.ID,
		PlanName:          plan.Name,
		DurationDays:      plan.DurationDays,
		AverageDailyYield: p.AverageDailyYield,
		GrossPrice:        p.GrossPrice,
		NetPriceToUser:    p.NetPriceToUser,
		UserMaxProfit:     p.UserMaxProfit,
	}
}

// AdminPreview builds the operator quote, which also exposes platform revenue.
func AdminPreview(plan *domain.Plan) domain.AdminPlanPreview {
	p := CalculatePlanPricing(plan)
	return domain.AdminPlanPreview{
		UserPlanPreview: UserPreview(plan),
		PlatformRevenue: p.PlatformRevenue,
	}
}
