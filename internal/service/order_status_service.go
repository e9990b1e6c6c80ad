package service

import (
	"context"
	"fmt"

	"gearmart/internal/cache"
	"gearmart/internal/events"
	"gearmart/internal/model"
	"gearmart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderStatusService implements OrderStatusService.
type orderStatusService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	txRepo      repository.TransactionRepository
	publisher   events.Publisher
	statusCache cache.StatusCache
	logger      zerolog.Logger
}

// NewOrderStatusService creates a new order status service.
func NewOrderStatusService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	txRepo repository.TransactionRepository,
	publisher events.Publisher,
	statusCache cache.StatusCache,
	logger zerolog.Logger,
) OrderStatusService {
	return &orderStatusService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		txRepo:      txRepo,
		publisher:   publisher,
		statusCache: statusCache,
		logger:      logger.With().Str("service", "order-status").Logger(),
	}
}

// UpdateStatus applies an admin-driven transition. The transition table is
// checked before any side effect runs; the stock side effects go through the
// same reserve/release primitives the payment path uses, so the quantity
// invariant has a single implementation.
func (s *orderStatusService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus model.OrderStatus) (*model.OrderResponse, error) {
	if !model.ValidOrderStatus(newStatus) {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, items, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}

	from := order.Status
	if !model.CanTransition(from, newStatus) {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("from", string(from)).
			Str("to", string(newStatus)).
			Msg("illegal status transition rejected")
		err = model.ErrOrderStateConflict
		return nil, err
	}

	switch {
	case from == model.OrderStatusPending && newStatus == model.OrderStatusProcessing:
		var shortages []model.StockShortage
		shortages, err = s.productRepo.ReserveStock(ctx, tx, order.ID, items)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve stock: %w", err)
		}
		if len(shortages) > 0 {
			err = &model.StockUnavailableError{Items: shortages}
			return nil, err
		}

	case from == model.OrderStatusProcessing && newStatus == model.OrderStatusCancelled:
		var released bool
		released, err = s.productRepo.ReleaseStock(ctx, tx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to release stock: %w", err)
		}
		if !released {
			s.logger.Debug().
				Str("order_id", orderID.String()).
				Msg("no active reservations to release")
		}
	}

	if err = s.orderRepo.UpdateStatus(ctx, tx, order.ID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to commit status update")
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.publisher.Publish(events.NewEvent(events.EventOrderStatusChanged, order.ID, events.StatusChangedPayload{
		From: string(from),
		To:   string(newStatus),
	}))
	s.statusCache.SetStatus(ctx, order.ID, newStatus)

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from", string(from)).
		Str("to", string(newStatus)).
		Msg("order status updated")

	order.Status = newStatus
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// UpdateTransactionStatus overwrites a transaction status.
func (s *orderStatusService) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) (*model.Transaction, error) {
	if !model.ValidTransactionStatus(status) {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	ok, err := s.txRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	if !ok {
		return nil, model.ErrTransactionNotFound
	}

	txn, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return nil, model.ErrTransactionNotFound
	}

	s.logger.Info().
		Str("transaction_id", id.String()).
		Str("status", string(status)).
		Msg("transaction status updated")

	return txn, nil
}
