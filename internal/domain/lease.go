package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaseStatus string

const (
	LeaseStatusOpen   LeaseStatus = "OPEN"
	LeaseStatusClosed LeaseStatus = "CLOSED"
)

// Lease binds a user to a machine for the duration of a plan.
// Settlement is nil while the lease is OPEN and is written exactly once at close.
type Lease struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	MachineID   int64            `json:"machine_id"`
	PlanID      int64            `json:"plan_id"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	PriceToUser decimal.Decimal  `json:"price_to_user"`
	GrossPrice  decimal.Decimal  `json:"gross_price"`
	Status      LeaseStatus      `json:"status"`
	Settlement  *LeaseSettlement `json:"settlement,omitempty"`
}

// LeaseSettlement records how a closed lease was reconciled.
type LeaseSettlement struct {
	AmountRefunded   decimal.Decimal `json:"amount_refunded"`
	PlatformEarnings decimal.Decimal `json:"platform_earnings"`
	FullTerm         bool            `json:"full_term"`
	ClosedAt         time.Time       `json:"closed_at"`
}

func (l *Lease) IsOpen() bool {
	return l.Status == LeaseStatusOpen
}
