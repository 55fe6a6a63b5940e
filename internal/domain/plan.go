package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Plan is a catalog entry describing a rental offer. Duration may be fractional.
type Plan struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	MinDailyYield decimal.Decimal `json:"min_daily_yield"`
	MaxDailyYield decimal.Decimal `json:"max_daily_yield"`
	DurationDays  decimal.Decimal `json:"duration_days"`
}

type ResourceTier string

const (
	ResourceTierLow      ResourceTier = "LOW"
	ResourceTierMedium   ResourceTier = "MEDIUM"
	ResourceTierHigh     ResourceTier = "HIGH"
	ResourceTierSuperior ResourceTier = "SUPERIOR"
)

var planTiers = map[string]ResourceTier{
	"BASIC":   ResourceTierLow,
	"GOLD":    ResourceTierMedium,
	"PREMIUM": ResourceTierHigh,
	"VIP":     ResourceTierSuperior,
}

// TierForPlan resolves the machine tier served by a plan name, ignoring case.
func TierForPlan(planName string) (ResourceTier, error) {
	tier, ok := planTiers[strings.ToUpper(strings.TrimSpace(planName))]
	if !ok {
		return "", fmt.Errorf("unrecognized plan %q: %w", planName, ErrInvalidState)
	}
	return tier, nil
}

// PlanPricing is the quote computed for a plan.
type PlanPricing struct {
	AverageDailyYield decimal.Decimal `json:"average_daily_yield"`
	GrossPrice        decimal.Decimal `json:"gross_price"`
	NetPriceToUser    decimal.Decimal `json:"net_price_to_user"`
	UserMaxProfit     decimal.Decimal `json:"user_max_profit"`
	PlatformRevenue   decimal.Decimal `json:"platform_revenue"`
}

// UserPlanPreview is the quote shown to customers.
type UserPlanPreview struct {
	PlanID            int64           `json:"plan_id"`
	PlanName          string          `json:"plan_name"`
	DurationDays      decimal.Decimal `json:"duration_days"`
	AverageDailyYield decimal.Decimal `json:"average_daily_yield"`
	GrossPrice        decimal.Decimal `json:"gross_price"`
	NetPriceToUser    decimal.Decimal `json:"net_price_to_user"`
	UserMaxProfit     decimal.Decimal `json:"user_max_profit"`
}

// AdminPlanPreview adds the platform's revenue to the customer quote.
type AdminPlanPreview struct {
	UserPlanPreview
	PlatformRevenue decimal.Decimal `json:"platform_revenue"`
}
