package service

import (
	"context"
	"fmt"
	"time"

	"gearmart/internal/cache"
	"gearmart/internal/events"
	"gearmart/internal/gateway"
	"gearmart/internal/model"
	"gearmart/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// paymentService implements PaymentService.
type paymentService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	txRepo      repository.TransactionRepository
	gateway     gateway.PaymentGateway
	publisher   events.Publisher
	statusCache cache.StatusCache
	logger      zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	txRepo repository.TransactionRepository,
	gw gateway.PaymentGateway,
	publisher events.Publisher,
	statusCache cache.StatusCache,
	logger zerolog.Logger,
) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		txRepo:      txRepo,
		gateway:     gw,
		publisher:   publisher,
		statusCache: statusCache,
		logger:      logger.With().Str("service", "payment").Logger(),
	}
}

// SubmitPayment processes a payment for a PENDING order. Stock re-validation,
// the stock decrement, the transaction row and the move to PROCESSING commit
// as one unit; the decrement itself is conditional, so two submissions racing
// for the last unit cannot both succeed.
func (s *paymentService) SubmitPayment(ctx context.Context, orderID uuid.UUID, req *model.PaymentRequest, idempotencyKey string) (*model.Transaction, error) {
	if req == nil || req.Method == "" {
		return nil, model.NewValidationError("method", "payment method is required")
	}

	// Replayed payment: hand back the transaction created under the same key.
	if idempotencyKey != "" {
		existing, err := s.txRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			if existing.OrderID != orderID {
				s.logger.Warn().
					Str("order_id", orderID.String()).
					Str("existing_order_id", existing.OrderID.String()).
					Msg("idempotency key reused for a different order")
				return nil, model.ErrOrderStateConflict
			}
			// A replay repeats the original outcome, whatever it was. A key
			// consumed by a declined attempt answers declined again; retrying
			// with another method needs a fresh key.
			if existing.Status == model.TransactionStatusFailed {
				s.logger.Info().
					Str("transaction_id", existing.ID.String()).
					Msg("payment replayed, original attempt was declined")
				return nil, model.ErrPaymentDeclined
			}
			s.logger.Info().
				Str("transaction_id", existing.ID.String()).
				Msg("payment replayed, returning existing transaction")
			return existing, nil
		}
	}

	// Check the order and charge the gateway before taking any row locks.
	// The authoritative status check happens again under FOR UPDATE below.
	order, _, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if order.Status != model.OrderStatusPending {
		return nil, model.ErrOrderStateConflict
	}

	result, err := s.gateway.Charge(ctx, req.Method, req.PaymentInfo, order.TotalAmount)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("gateway charge failed")
		return nil, fmt.Errorf("gateway charge failed: %w", err)
	}
	if !result.Approved {
		if recErr := s.recordFailedAttempt(ctx, order, req, idempotencyKey); recErr != nil {
			s.logger.Error().Err(recErr).Str("order_id", orderID.String()).Msg("failed to record declined payment")
		}
		s.publisher.Publish(events.NewEvent(events.EventPaymentFailed, order.ID, events.PaymentPayload{
			Method: req.Method,
			Amount: order.TotalAmount,
		}))
		return nil, model.ErrPaymentDeclined
	}

	// The stub gateway has nothing to void. Once a real provider is wired in,
	// a failure inside completePayment leaves an approved charge behind that
	// must be compensated (voided or refunded) here.
	txn, err := s.completePayment(ctx, orderID, req, result, idempotencyKey)
	if err != nil {
		if repository.IsUniqueViolation(err) && idempotencyKey != "" {
			// A concurrent replay of the same key committed first.
			existing, lookupErr := s.txRepo.GetByIdempotencyKey(ctx, idempotencyKey)
			if lookupErr == nil && existing != nil && existing.OrderID == orderID {
				if existing.Status == model.TransactionStatusFailed {
					return nil, model.ErrPaymentDeclined
				}
				return existing, nil
			}
		}
		return nil, err
	}

	s.publisher.Publish(events.NewEvent(events.EventPaymentAuthorized, orderID, events.PaymentPayload{
		TransactionID: txn.ID,
		Method:        txn.PaymentMethod,
		Amount:        txn.Amount,
		Reference:     txn.Reference,
	}))
	s.statusCache.SetStatus(ctx, orderID, model.OrderStatusProcessing)

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("transaction_id", txn.ID.String()).
		Float64("amount", txn.Amount).
		Msg("payment processed successfully")

	return txn, nil
}

// completePayment runs the atomic reserve-and-record sequence: lock the order,
// re-check its status, decrement stock conditionally, insert the transaction
// and flip the order to PROCESSING. Any failure rolls the whole unit back.
func (s *paymentService) completePayment(ctx context.Context, orderID uuid.UUID, req *model.PaymentRequest, result gateway.ChargeResult, idempotencyKey string) (*model.Transaction, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to process payment: %w", err)
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
	if order.Status != model.OrderStatusPending {
		// Someone else paid or cancelled while we were charging the gateway.
		err = model.ErrOrderStateConflict
		return nil, err
	}

	shortages, err := s.productRepo.ReserveStock(ctx, tx, order.ID, items)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
	if len(shortages) > 0 {
		err = &model.StockUnavailableError{Items: shortages}
		return nil, err
	}

	now := time.Now()
	key := &idempotencyKey
	if idempotencyKey == "" {
		key = nil
	}
	txn := &model.Transaction{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Amount:         order.TotalAmount,
		Status:         model.TransactionStatusCompleted,
		PaymentMethod:  req.Method,
		PaymentInfo:    req.PaymentInfo,
		Reference:      result.Reference,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err = s.txRepo.CreateInTx(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err = s.orderRepo.UpdateStatus(ctx, tx, order.ID, model.OrderStatusProcessing); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit payment transaction")
		return nil, fmt.Errorf("failed to process payment: %w", err)
	}

	return txn, nil
}

// recordFailedAttempt writes the FAILED transaction row for a declined charge.
// The order stays PENDING so the buyer can retry with another method.
func (s *paymentService) recordFailedAttempt(ctx context.Context, order *model.Order, req *model.PaymentRequest, idempotencyKey string) error {
	now := time.Now()
	key := &idempotencyKey
	if idempotencyKey == "" {
		key = nil
	}
	txn := &model.Transaction{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Amount:         order.TotalAmount,
		Status:         model.TransactionStatusFailed,
		PaymentMethod:  req.Method,
		PaymentInfo:    req.PaymentInfo,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.txRepo.Create(ctx, txn)
}
