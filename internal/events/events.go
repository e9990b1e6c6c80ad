// Package events publishes order lifecycle events for downstream consumers
// (notifications, analytics). Publishing is best-effort: a broker outage must
// never fail a customer request.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried on the order events topic.
const (
	EventOrderCreated       = "OrderCreated"
	EventPaymentAuthorized  = "PaymentAuthorized"
	EventPaymentFailed      = "PaymentFailed"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Event is the envelope written to the broker. All events for one order share
// the order ID as partition key so consumers see them in order.
type Event struct {
	EventID    uuid.UUID `json:"event_id"`
	EventType  string    `json:"event_type"`
	OrderID    uuid.UUID `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// NewEvent builds an envelope for the given order.
func NewEvent(eventType string, orderID uuid.UUID, payload any) Event {
	return Event{
		EventID:    uuid.New(),
		EventType:  eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// StatusChangedPayload describes an order status transition.
type StatusChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PaymentPayload describes a payment outcome.
type PaymentPayload struct {
	TransactionID uuid.UUID `json:"transaction_id,omitempty"`
	Method        string    `json:"method"`
	Amount        float64   `json:"amount"`
	Reference     string    `json:"reference,omitempty"`
}

// OrderCreatedPayload describes a freshly checked-out order.
type OrderCreatedPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	Type        string    `json:"type"`
	TotalAmount float64   `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
}

// Publisher emits order lifecycle events.
type Publisher interface {
	Publish(evt Event)
	Close() error
}

// NopPublisher drops every event. Used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

func (NopPublisher) Close() error { return nil }
