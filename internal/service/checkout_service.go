package service

import (
	"context"
	"fmt"
	"time"

	"gearmart/internal/cache"
	"gearmart/internal/events"
	"gearmart/internal/model"
	"gearmart/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	publisher   events.Publisher
	statusCache cache.StatusCache
	logger      zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	publisher events.Publisher,
	statusCache cache.StatusCache,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
		statusCache: statusCache,
		logger:      logger.With().Str("service", "checkout").Logger(),
	}
}

// CreateOrder validates the cart and persists addresses, order and items in
// one transaction. Validation failures are collected and returned together;
// nothing is written unless every line passes.
func (s *checkoutService) CreateOrder(ctx context.Context, req *model.CheckoutRequest, idempotencyKey string) (*model.OrderResponse, error) {
	if req == nil {
		return nil, model.NewValidationError("", "request body is required")
	}

	// Replayed checkout: hand back the order created under the same key.
	if idempotencyKey != "" {
		order, items, err := s.orderRepo.GetByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if order != nil {
			s.logger.Info().
				Str("order_id", order.ID.String()).
				Msg("checkout replayed, returning existing order")
			return &model.OrderResponse{Order: *order, Items: items}, nil
		}
	}

	products, details, err := s.validateCart(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		s.logger.Warn().
			Int("problems", len(details)).
			Msg("cart validation failed")
		return nil, &model.ValidationError{Details: details}
	}

	now := time.Now()

	billing := addressFromRequest(req.UserID, req.BillingAddress, now)
	shipping := addressFromRequest(req.UserID, req.ShippingAddress, now)

	key := &idempotencyKey
	if idempotencyKey == "" {
		key = nil
	}

	order := &model.Order{
		ID:                uuid.New(),
		UserID:            req.UserID,
		BillingAddressID:  billing.ID,
		ShippingAddressID: shipping.ID,
		ShippingFee:       req.ShippingFee,
		Status:            model.OrderStatusPending,
		Type:              req.OrderType(),
		IdempotencyKey:    key,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Snapshot unit prices now; later catalogue edits must not move this order.
	items := make([]model.OrderItem, len(req.Items))
	total := req.ShippingFee
	for i, line := range req.Items {
		product := products[line.ProductID]
		unit := product.UnitPrice(line.Type)
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			Price:       unit,
			Type:        line.Type,
			RentalStart: line.RentalStart,
			RentalEnd:   line.RentalEnd,
		}
		total += unit * float64(line.Quantity)
	}
	order.TotalAmount = total

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateAddress(ctx, tx, billing); err != nil {
		return nil, fmt.Errorf("failed to create billing address: %w", err)
	}
	if err = s.orderRepo.CreateAddress(ctx, tx, shipping); err != nil {
		return nil, fmt.Errorf("failed to create shipping address: %w", err)
	}

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		if repository.IsUniqueViolation(err) && idempotencyKey != "" {
			// Lost a race with a concurrent replay of the same key.
			err = nil
			return s.replayAfterConflict(ctx, tx, idempotencyKey)
		}
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publisher.Publish(events.NewEvent(events.EventOrderCreated, order.ID, events.OrderCreatedPayload{
		UserID:      order.UserID,
		Type:        string(order.Type),
		TotalAmount: order.TotalAmount,
		ItemCount:   len(items),
	}))
	s.statusCache.SetStatus(ctx, order.ID, order.Status)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("type", string(order.Type)).
		Float64("total", order.TotalAmount).
		Int("item_count", len(items)).
		Msg("order created successfully")

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// replayAfterConflict resolves a concurrent checkout with the same idempotency
// key: roll back our attempt and return the order the other request created.
func (s *checkoutService) replayAfterConflict(ctx context.Context, tx pgx.Tx, key string) (*model.OrderResponse, error) {
	if rbErr := tx.Rollback(ctx); rbErr != nil {
		s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
	}
	order, items, err := s.orderRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve idempotency conflict: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("idempotency key conflict but no order found")
	}
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Msg("concurrent checkout replay resolved to existing order")
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// GetOrder retrieves an order with its items.
func (s *checkoutService) GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// GetOrderStatus serves status polls from the cache, falling back to the
// store on a miss and refilling the cache from what it finds.
func (s *checkoutService) GetOrderStatus(ctx context.Context, id uuid.UUID) (model.OrderStatus, error) {
	if status, ok := s.statusCache.GetStatus(ctx, id); ok {
		return status, nil
	}

	order, _, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order status")
		return "", fmt.Errorf("failed to get order status: %w", err)
	}
	if order == nil {
		return "", model.ErrOrderNotFound
	}

	s.statusCache.SetStatus(ctx, order.ID, order.Status)
	return order.Status, nil
}

// validateCart checks every cart line against the catalogue and collects every
// problem instead of stopping at the first one.
func (s *checkoutService) validateCart(ctx context.Context, req *model.CheckoutRequest) (map[uuid.UUID]*model.Product, []model.ValidationDetail, error) {
	var details []model.ValidationDetail

	if req.UserID == uuid.Nil {
		details = append(details, model.ValidationDetail{Field: "userId", Message: "user ID is required"})
	}
	if len(req.Items) == 0 {
		details = append(details, model.ValidationDetail{Field: "items", Message: "order must contain at least one item"})
	}
	if req.ShippingFee < 0 {
		details = append(details, model.ValidationDetail{Field: "shippingFee", Message: "shipping fee cannot be negative"})
	}

	details = append(details, validateAddress("billingAddress", req.BillingAddress)...)
	details = append(details, validateAddress("shippingAddress", req.ShippingAddress)...)

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, line := range req.Items {
		if line.ProductID != uuid.Nil {
			ids = append(ids, line.ProductID)
		}
	}

	found, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load products for validation")
		return nil, nil, fmt.Errorf("failed to validate cart: %w", err)
	}
	products := make(map[uuid.UUID]*model.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	for i, line := range req.Items {
		field := fmt.Sprintf("items[%d]", i)

		if line.ProductID == uuid.Nil {
			details = append(details, model.ValidationDetail{Field: field + ".productId", Message: "product ID is required"})
			continue
		}
		if line.Quantity <= 0 {
			details = append(details, model.ValidationDetail{
				ProductID: &line.ProductID,
				Field:     field + ".quantity",
				Message:   "quantity must be greater than zero",
			})
		}
		if !model.ValidOrderType(line.Type) {
			details = append(details, model.ValidationDetail{
				ProductID: &line.ProductID,
				Field:     field + ".type",
				Message:   "type must be RENT or PURCHASE",
			})
			continue
		}

		product, ok := products[line.ProductID]
		if !ok {
			details = append(details, model.ValidationDetail{
				ProductID: &line.ProductID,
				Field:     field + ".productId",
				Message:   "product not found",
			})
			continue
		}
		if !product.IsActive {
			details = append(details, model.ValidationDetail{
				ProductID: &line.ProductID,
				Field:     field + ".productId",
				Message:   "product is not available",
			})
		}
		if line.Quantity > 0 && product.Quantity < line.Quantity {
			details = append(details, model.ValidationDetail{
				ProductID: &line.ProductID,
				Field:     field + ".quantity",
				Message:   fmt.Sprintf("insufficient stock: requested %d, available %d", line.Quantity, product.Quantity),
			})
		}
		if !product.PriceModeEnabled(line.Type) {
			details = append(details, model.ValidationDetail{
				ProductID: &line.ProductID,
				Field:     field + ".type",
				Message:   fmt.Sprintf("product cannot be ordered as %s", line.Type),
			})
		}

		details = append(details, validateRentalWindow(field, line)...)
	}

	return products, details, nil
}

// validateRentalWindow requires both dates on RENT lines, with start before end.
func validateRentalWindow(field string, line model.CartItemRequest) []model.ValidationDetail {
	if line.Type != model.OrderTypeRent {
		return nil
	}

	var details []model.ValidationDetail
	if line.RentalStart == nil {
		details = append(details, model.ValidationDetail{
			ProductID: &line.ProductID,
			Field:     field + ".rentalStart",
			Message:   "rentalStart is required for RENT items",
		})
	}
	if line.RentalEnd == nil {
		details = append(details, model.ValidationDetail{
			ProductID: &line.ProductID,
			Field:     field + ".rentalEnd",
			Message:   "rentalEnd is required for RENT items",
		})
	}
	if line.RentalStart != nil && line.RentalEnd != nil && !line.RentalStart.Before(*line.RentalEnd) {
		details = append(details, model.ValidationDetail{
			ProductID: &line.ProductID,
			Field:     field + ".rentalEnd",
			Message:   "rentalEnd must be after rentalStart",
		})
	}
	return details
}

// validateAddress checks the required address fields.
func validateAddress(field string, addr model.AddressRequest) []model.ValidationDetail {
	var details []model.ValidationDetail
	required := []struct {
		name  string
		value string
	}{
		{"fullName", addr.FullName},
		{"line1", addr.Line1},
		{"city", addr.City},
		{"postalCode", addr.PostalCode},
		{"country", addr.Country},
	}
	for _, f := range required {
		if f.value == "" {
			details = append(details, model.ValidationDetail{
				Field:   field + "." + f.name,
				Message: f.name + " is required",
			})
		}
	}
	return details
}

func addressFromRequest(userID uuid.UUID, req model.AddressRequest, now time.Time) *model.Address {
	return &model.Address{
		ID:         uuid.New(),
		UserID:     userID,
		FullName:   req.FullName,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		CreatedAt:  now,
	}
}
