package repository

import (
	"context"
	"errors"

	"gearmart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ProductRepository defines the interface for catalogue and stock data access.
type ProductRepository interface {
	// GetAll retrieves products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID. Returns (nil, nil) when
	// the product does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	// ReserveStock decrements stock for every item of an order within the
	// provided transaction, using conditional updates that can never drive
	// quantity below zero. Items already reserved for this order are skipped,
	// making the operation idempotent. Returns the list of shortages; a
	// non-empty list means the caller must roll the transaction back.
	ReserveStock(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderItem) ([]model.StockShortage, error)

	// ReleaseStock increments stock back for every RESERVED item of an order
	// within the provided transaction and marks the reservations RELEASED.
	// Returns false when the order holds no active reservations, so a repeated
	// release is a no-op.
	ReleaseStock(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateAddress inserts a new address within the provided transaction.
	CreateAddress(ctx context.Context, tx pgx.Tx, address *model.Address) error

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items. Returns
	// (nil, nil, nil) when the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByIDForUpdate retrieves an order and its items within the provided
	// transaction, locking the order row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByIdempotencyKey retrieves the order created under the given
	// idempotency key, if any.
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Order, []model.OrderItem, error)

	// UpdateStatus persists a new order status within the provided transaction.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error
}

// TransactionRepository defines the interface for payment transaction rows.
type TransactionRepository interface {
	// Create inserts a transaction outside any caller transaction.
	Create(ctx context.Context, txn *model.Transaction) error

	// CreateInTx inserts a transaction within the provided database transaction.
	CreateInTx(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error

	// GetByID retrieves a transaction by its ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)

	// GetByIdempotencyKey retrieves the transaction created under the given
	// idempotency key, if any.
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error)

	// UpdateStatus overwrites a transaction status. Returns false when the
	// transaction does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (bool, error)
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, which is how idempotency-key replays surface from the store.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
