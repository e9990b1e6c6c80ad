package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"gearmart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

const productColumns = `id, name, quantity, rental_price, purchase_price, sale_rental_price, sale_purchase_price, is_active, created_at, updated_at`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Quantity,
		&p.RentalPrice,
		&p.PurchasePrice,
		&p.SaleRentalPrice,
		&p.SalePurchasePrice,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// GetAll retrieves products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2
	`, productColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1
	`, productColumns)

	var p model.Product
	err := scanProduct(r.pool.QueryRow(ctx, query, id), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = ANY($1)
		ORDER BY name
	`, productColumns)

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ReserveStock decrements stock for every item of an order. The decrement is a
// conditional update (quantity >= requested), so quantity can never go
// negative no matter how requests interleave. The stock_reservations ledger
// row is inserted first with ON CONFLICT DO NOTHING: if it already exists the
// order has reserved this product before and the decrement is skipped.
func (r *productRepository) ReserveStock(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderItem) ([]model.StockShortage, error) {
	var shortages []model.StockShortage

	// Lock rows in product-ID order. Concurrent orders sharing products then
	// always take the locks in the same sequence and cannot deadlock.
	sorted := make([]model.OrderItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ProductID[:], sorted[j].ProductID[:]) < 0
	})

	for _, item := range sorted {
		tag, err := tx.Exec(ctx, `
			INSERT INTO stock_reservations (order_id, product_id, quantity, status)
			VALUES ($1, $2, $3, 'RESERVED')
			ON CONFLICT (order_id, product_id) DO NOTHING
		`, orderID, item.ProductID, item.Quantity)
		if err != nil {
			r.logger.Error().Err(err).
				Str("order_id", orderID.String()).
				Str("product_id", item.ProductID.String()).
				Msg("failed to record stock reservation")
			return nil, fmt.Errorf("failed to record stock reservation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Already reserved for this order, nothing to decrement.
			continue
		}

		tag, err = tx.Exec(ctx, `
			UPDATE products
			SET quantity = quantity - $2, updated_at = now()
			WHERE id = $1 AND quantity >= $2 AND is_active
		`, item.ProductID, item.Quantity)
		if err != nil {
			r.logger.Error().Err(err).
				Str("order_id", orderID.String()).
				Str("product_id", item.ProductID.String()).
				Msg("failed to decrement stock")
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		if tag.RowsAffected() == 1 {
			continue
		}

		// Decrement was rejected. Look up what is actually available so the
		// caller can report every shortage at once.
		var available int
		var active bool
		err = tx.QueryRow(ctx, `SELECT quantity, is_active FROM products WHERE id = $1`, item.ProductID).
			Scan(&available, &active)
		if err == pgx.ErrNoRows {
			available = 0
		} else if err != nil {
			return nil, fmt.Errorf("failed to query stock level: %w", err)
		}
		if !active {
			available = 0
		}
		shortages = append(shortages, model.StockShortage{
			ProductID: item.ProductID,
			Requested: item.Quantity,
			Available: available,
		})
	}

	if len(shortages) > 0 {
		r.logger.Warn().
			Str("order_id", orderID.String()).
			Int("shortages", len(shortages)).
			Msg("stock reservation rejected")
	}

	return shortages, nil
}

// ReleaseStock increments stock back for every RESERVED item of an order.
// Flipping the ledger rows to RELEASED in the same statement makes a repeated
// release a no-op: the second call finds no RESERVED rows and increments nothing.
func (r *productRepository) ReleaseStock(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (bool, error) {
	rows, err := tx.Query(ctx, `
		UPDATE stock_reservations
		SET status = 'RELEASED'
		WHERE order_id = $1 AND status = 'RESERVED'
		RETURNING product_id, quantity
	`, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to release reservations")
		return false, fmt.Errorf("failed to release reservations: %w", err)
	}

	type release struct {
		productID uuid.UUID
		quantity  int
	}
	var releases []release
	for rows.Next() {
		var rel release
		if err := rows.Scan(&rel.productID, &rel.quantity); err != nil {
			rows.Close()
			return false, fmt.Errorf("failed to scan reservation row: %w", err)
		}
		releases = append(releases, rel)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("error iterating reservation rows: %w", err)
	}

	for _, rel := range releases {
		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET quantity = quantity + $2, updated_at = now()
			WHERE id = $1
		`, rel.productID, rel.quantity); err != nil {
			r.logger.Error().Err(err).
				Str("order_id", orderID.String()).
				Str("product_id", rel.productID.String()).
				Msg("failed to increment stock")
			return false, fmt.Errorf("failed to increment stock: %w", err)
		}
	}

	r.logger.Debug().
		Str("order_id", orderID.String()).
		Int("released", len(releases)).
		Msg("stock released")

	return len(releases) > 0, nil
}
