package model

import (
	"time"

	"github.com/google/uuid"
)

// Transaction records a single payment attempt against an order. One row is
// written per attempt; only the status may change afterwards (admin refunds).
type Transaction struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	OrderID        uuid.UUID         `json:"orderId" db:"order_id"`
	Amount         float64           `json:"amount" db:"amount"`
	Status         TransactionStatus `json:"status" db:"status"`
	PaymentMethod  string            `json:"paymentMethod" db:"payment_method"`
	PaymentInfo    string            `json:"-" db:"payment_info"`
	Reference      string            `json:"reference" db:"reference"`
	IdempotencyKey *string           `json:"-" db:"idempotency_key"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time         `json:"updatedAt" db:"updated_at"`
}

// PaymentRequest is the request payload for submitting a payment.
type PaymentRequest struct {
	Method      string `json:"method"`
	PaymentInfo string `json:"paymentInfo"`
}

// TransactionStatusUpdateRequest is the admin payload for overwriting a
// transaction status.
type TransactionStatusUpdateRequest struct {
	Status TransactionStatus `json:"status"`
}
