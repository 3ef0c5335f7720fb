package events

import "context"

// Event types
const (
	EventEscrowStatusChanged = "escrow_status_changed"
	EventPaymentConfirmed    = "payment_confirmed"
	EventBalanceReconciled   = "balance_reconciled"
)

// StreamEscrow carries every escrow lifecycle event. The API fans it out to
// websocket clients and the reconciler listens for payment confirmations.
const StreamEscrow = "events:escrow"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
