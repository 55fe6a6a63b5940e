// Package events publishes lease and wallet lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventLeaseOpened EventType = "lease.opened"
	EventLeaseClosed EventType = "lease.closed"
	EventWalletMoved EventType = "wallet.moved"
)

// Event is the JSON payload written to the lifecycle topic.
type Event struct {
	ID           string          `json:"id"`
	Type         EventType       `json:"type"`
	UserID       int64           `json:"user_id"`
	LeaseID      int64           `json:"lease_id,omitempty"`
	MachineID    int64           `json:"machine_id,omitempty"`
	WalletID     int64           `json:"wallet_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Earnings     decimal.Decimal `json:"earnings,omitzero"`
	CryptoAmount decimal.Decimal `json:"crypto_amount,omitzero"`
	Currency     string          `json:"currency,omitempty"`
	FullTerm     bool            `json:"full_term,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func NewEvent(t EventType, userID int64, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: at,
	}
}

// Publisher delivers events after the state change they describe has
// committed. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
