package service

import (
	"context"
	"testing"

	"gearmart/internal/cache"
	"gearmart/internal/events"
	"gearmart/internal/gateway"
	"gearmart/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPaymentService(
	orderRepo *MockOrderRepository,
	productRepo *MockProductRepository,
	txRepo *MockTransactionRepository,
	gw *MockPaymentGateway,
) PaymentService {
	return NewPaymentService(orderRepo, productRepo, txRepo, gw, events.NopPublisher{}, cache.NopCache{}, zerolog.Nop())
}

func pendingOrder(total float64) (*model.Order, []model.OrderItem) {
	orderID := uuid.New()
	order := &model.Order{
		ID:          orderID,
		UserID:      uuid.New(),
		TotalAmount: total,
		Status:      model.OrderStatusPending,
		Type:        model.OrderTypePurchase,
	}
	items := []model.OrderItem{
		{OrderID: orderID, ProductID: uuid.New(), Quantity: 2, Price: 10.00, Type: model.OrderTypePurchase},
	}
	return order, items
}

func TestPaymentService_SubmitPayment_Success(t *testing.T) {
	ctx := context.Background()

	// 2 x 10.00 + 5.00 shipping
	order, items := pendingOrder(25.00)
	req := &model.PaymentRequest{Method: "card", PaymentInfo: "tok_visa"}

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)
	mockTx := new(MockTx)

	orderRepo.On("GetByID", ctx, order.ID).Return(order, items, nil)
	gw.On("Charge", ctx, "card", "tok_visa", 25.00).
		Return(gateway.ChargeResult{Approved: true, Reference: "stub-ref-1"}, nil)

	orderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	orderRepo.On("GetByIDForUpdate", ctx, mockTx, order.ID).Return(order, items, nil)
	productRepo.On("ReserveStock", ctx, mockTx, order.ID, items).Return([]model.StockShortage{}, nil)

	var recorded *model.Transaction
	txRepo.On("CreateInTx", ctx, mockTx, mock.AnythingOfType("*model.Transaction")).
		Run(func(args mock.Arguments) { recorded = args.Get(2).(*model.Transaction) }).
		Return(nil)
	orderRepo.On("UpdateStatus", ctx, mockTx, order.ID, model.OrderStatusProcessing).Return(nil)
	mockTx.On("Commit", ctx).Return(nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, order.ID, req, "")
	require.NoError(t, err)
	require.NotNil(t, txn)

	assert.Equal(t, 25.00, txn.Amount)
	assert.Equal(t, model.TransactionStatusCompleted, txn.Status)
	assert.Equal(t, "card", txn.PaymentMethod)
	assert.Equal(t, "stub-ref-1", txn.Reference)

	require.NotNil(t, recorded)
	assert.Equal(t, order.ID, recorded.OrderID)
	assert.True(t, mockTx.committed)

	orderRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
	txRepo.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestPaymentService_SubmitPayment_Declined(t *testing.T) {
	ctx := context.Background()

	order, items := pendingOrder(25.00)
	req := &model.PaymentRequest{Method: "crypto", PaymentInfo: "wallet-1"}

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)

	orderRepo.On("GetByID", ctx, order.ID).Return(order, items, nil)
	gw.On("Charge", ctx, "crypto", "wallet-1", 25.00).
		Return(gateway.ChargeResult{Approved: false}, nil)

	var recorded *model.Transaction
	txRepo.On("Create", ctx, mock.AnythingOfType("*model.Transaction")).
		Run(func(args mock.Arguments) { recorded = args.Get(1).(*model.Transaction) }).
		Return(nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, order.ID, req, "")
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, model.ErrPaymentDeclined)

	// The failed attempt is recorded; the order stays PENDING so nothing
	// runs inside a database transaction.
	require.NotNil(t, recorded)
	assert.Equal(t, model.TransactionStatusFailed, recorded.Status)
	assert.Equal(t, order.ID, recorded.OrderID)
	orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
	productRepo.AssertNotCalled(t, "ReserveStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_SubmitPayment_OrderNotFound(t *testing.T) {
	ctx := context.Background()

	orderID := uuid.New()

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)

	orderRepo.On("GetByID", ctx, orderID).Return(nil, nil, nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, orderID, &model.PaymentRequest{Method: "card"}, "")
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_SubmitPayment_OrderNotPending(t *testing.T) {
	ctx := context.Background()

	order, items := pendingOrder(25.00)
	order.Status = model.OrderStatusProcessing

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)

	orderRepo.On("GetByID", ctx, order.ID).Return(order, items, nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, order.ID, &model.PaymentRequest{Method: "card"}, "")
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, model.ErrOrderStateConflict)
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_SubmitPayment_MissingMethod(t *testing.T) {
	ctx := context.Background()

	svc := newPaymentService(new(MockOrderRepository), new(MockProductRepository), new(MockTransactionRepository), new(MockPaymentGateway))

	txn, err := svc.SubmitPayment(ctx, uuid.New(), &model.PaymentRequest{}, "")
	assert.Nil(t, txn)

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "method", validationErr.Details[0].Field)
}

func TestPaymentService_SubmitPayment_StockShortage(t *testing.T) {
	ctx := context.Background()

	order, items := pendingOrder(25.00)
	req := &model.PaymentRequest{Method: "card", PaymentInfo: "tok_visa"}

	shortage := model.StockShortage{ProductID: items[0].ProductID, Requested: 2, Available: 1}

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)
	mockTx := new(MockTx)

	orderRepo.On("GetByID", ctx, order.ID).Return(order, items, nil)
	gw.On("Charge", ctx, "card", "tok_visa", 25.00).
		Return(gateway.ChargeResult{Approved: true, Reference: "stub-ref-2"}, nil)
	orderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	orderRepo.On("GetByIDForUpdate", ctx, mockTx, order.ID).Return(order, items, nil)
	productRepo.On("ReserveStock", ctx, mockTx, order.ID, items).Return([]model.StockShortage{shortage}, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, order.ID, req, "")
	assert.Nil(t, txn)

	var stockErr *model.StockUnavailableError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Items, 1)
	assert.Equal(t, shortage, stockErr.Items[0])

	assert.True(t, mockTx.rolledBack)
	assert.False(t, mockTx.committed)
	txRepo.AssertNotCalled(t, "CreateInTx", mock.Anything, mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_SubmitPayment_StatusChangedUnderLock(t *testing.T) {
	ctx := context.Background()

	order, items := pendingOrder(25.00)
	req := &model.PaymentRequest{Method: "card", PaymentInfo: "tok_visa"}

	lockedOrder := *order
	lockedOrder.Status = model.OrderStatusCancelled

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)
	mockTx := new(MockTx)

	orderRepo.On("GetByID", ctx, order.ID).Return(order, items, nil)
	gw.On("Charge", ctx, "card", "tok_visa", 25.00).
		Return(gateway.ChargeResult{Approved: true, Reference: "stub-ref-3"}, nil)
	orderRepo.On("BeginTx", ctx).Return(mockTx, nil)
	orderRepo.On("GetByIDForUpdate", ctx, mockTx, order.ID).Return(&lockedOrder, items, nil)
	mockTx.On("Rollback", ctx).Return(nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, order.ID, req, "")
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, model.ErrOrderStateConflict)
	assert.True(t, mockTx.rolledBack)
	productRepo.AssertNotCalled(t, "ReserveStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_SubmitPayment_IdempotentReplay(t *testing.T) {
	ctx := context.Background()

	orderID := uuid.New()
	key := "payment-xyz-789"
	existing := &model.Transaction{
		ID:            uuid.New(),
		OrderID:       orderID,
		Amount:        25.00,
		Status:        model.TransactionStatusCompleted,
		PaymentMethod: "card",
	}

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)

	txRepo.On("GetByIdempotencyKey", ctx, key).Return(existing, nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, orderID, &model.PaymentRequest{Method: "card"}, key)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, txn.ID)

	// A replay must not charge the gateway a second time.
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestPaymentService_SubmitPayment_ReplaysDeclinedOutcome(t *testing.T) {
	ctx := context.Background()

	orderID := uuid.New()
	key := "payment-declined-123"
	existing := &model.Transaction{
		ID:            uuid.New(),
		OrderID:       orderID,
		Amount:        25.00,
		Status:        model.TransactionStatusFailed,
		PaymentMethod: "crypto",
	}

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)

	txRepo.On("GetByIdempotencyKey", ctx, key).Return(existing, nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	// The key was consumed by a declined attempt: the replay repeats the
	// declined answer instead of handing back the FAILED row as a success.
	txn, err := svc.SubmitPayment(ctx, orderID, &model.PaymentRequest{Method: "card"}, key)
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, model.ErrPaymentDeclined)

	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestPaymentService_SubmitPayment_KeyReusedForDifferentOrder(t *testing.T) {
	ctx := context.Background()

	key := "payment-xyz-789"
	existing := &model.Transaction{
		ID:      uuid.New(),
		OrderID: uuid.New(),
		Status:  model.TransactionStatusCompleted,
	}

	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	txRepo := new(MockTransactionRepository)
	gw := new(MockPaymentGateway)

	txRepo.On("GetByIdempotencyKey", ctx, key).Return(existing, nil)

	svc := newPaymentService(orderRepo, productRepo, txRepo, gw)

	txn, err := svc.SubmitPayment(ctx, uuid.New(), &model.PaymentRequest{Method: "card"}, key)
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, model.ErrOrderStateConflict)
	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
