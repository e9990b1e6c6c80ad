package service

import (
	"context"

	"gearmart/internal/model"

	"github.com/google/uuid"
)

// ProductService defines catalogue lookup operations.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID. Returns ErrProductNotFound
	// when the product does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// CheckoutService validates carts and creates orders.
type CheckoutService interface {
	// CreateOrder validates the cart and, if every line passes, persists the
	// addresses, the order and its items atomically with status PENDING.
	// A repeated idempotency key returns the originally created order.
	CreateOrder(ctx context.Context, req *model.CheckoutRequest, idempotencyKey string) (*model.OrderResponse, error)

	// GetOrder retrieves an order with its items. Returns ErrOrderNotFound
	// when the order does not exist.
	GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// GetOrderStatus retrieves just the order status, served from the status
	// cache when possible. Returns ErrOrderNotFound when the order does not
	// exist.
	GetOrderStatus(ctx context.Context, id uuid.UUID) (model.OrderStatus, error)
}

// PaymentService processes payments for pending orders.
type PaymentService interface {
	// SubmitPayment charges the gateway, reserves stock, records the
	// transaction and moves the order to PROCESSING, all in one atomic unit.
	// A repeated idempotency key returns the originally created transaction.
	SubmitPayment(ctx context.Context, orderID uuid.UUID, req *model.PaymentRequest, idempotencyKey string) (*model.Transaction, error)
}

// OrderStatusService applies admin-driven order lifecycle transitions.
type OrderStatusService interface {
	// UpdateStatus applies the requested transition if the state machine
	// permits it, running the stock side effect the transition requires.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus model.OrderStatus) (*model.OrderResponse, error)

	// UpdateTransactionStatus overwrites a transaction status (admin only).
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (*model.Transaction, error)
}
