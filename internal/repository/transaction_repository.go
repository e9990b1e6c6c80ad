package repository

import (
	"context"
	"fmt"

	"gearmart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// transactionRepository implements the TransactionRepository interface using PostgreSQL.
type transactionRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewTransactionRepository creates a new PostgreSQL-backed transaction repository.
func NewTransactionRepository(pool *pgxpool.Pool, logger zerolog.Logger) TransactionRepository {
	return &transactionRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "transaction").Logger(),
	}
}

const transactionInsert = `
	INSERT INTO transactions (id, order_id, amount, status, payment_method, payment_info, reference, idempotency_key, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const transactionColumns = `id, order_id, amount, status, payment_method, payment_info, reference, idempotency_key, created_at, updated_at`

func (r *transactionRepository) insert(ctx context.Context, exec func(context.Context, string, ...any) error, txn *model.Transaction) error {
	err := exec(ctx, transactionInsert,
		txn.ID,
		txn.OrderID,
		txn.Amount,
		txn.Status,
		txn.PaymentMethod,
		txn.PaymentInfo,
		txn.Reference,
		txn.IdempotencyKey,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if !IsUniqueViolation(err) {
			r.logger.Error().
				Err(err).
				Str("transaction_id", txn.ID.String()).
				Str("order_id", txn.OrderID.String()).
				Msg("failed to create transaction")
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	r.logger.Debug().
		Str("transaction_id", txn.ID.String()).
		Str("order_id", txn.OrderID.String()).
		Str("status", string(txn.Status)).
		Msg("transaction created")

	return nil
}

// Create inserts a transaction using the pool directly.
func (r *transactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	return r.insert(ctx, func(ctx context.Context, sql string, args ...any) error {
		_, err := r.pool.Exec(ctx, sql, args...)
		return err
	}, txn)
}

// CreateInTx inserts a transaction within the provided database transaction.
func (r *transactionRepository) CreateInTx(ctx context.Context, tx pgx.Tx, txn *model.Transaction) error {
	return r.insert(ctx, func(ctx context.Context, sql string, args ...any) error {
		_, err := tx.Exec(ctx, sql, args...)
		return err
	}, txn)
}

// GetByID retrieves a transaction by its ID.
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1`, transactionColumns)
	return r.get(ctx, query, id)
}

// GetByIdempotencyKey retrieves the transaction created under the given idempotency key.
func (r *transactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE idempotency_key = $1`, transactionColumns)
	return r.get(ctx, query, key)
}

func (r *transactionRepository) get(ctx context.Context, query string, arg any) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&txn.ID,
		&txn.OrderID,
		&txn.Amount,
		&txn.Status,
		&txn.PaymentMethod,
		&txn.PaymentInfo,
		&txn.Reference,
		&txn.IdempotencyKey,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query transaction")
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return &txn, nil
}

// UpdateStatus overwrites a transaction status.
func (r *transactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("transaction_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update transaction status")
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
