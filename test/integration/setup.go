package integration

import (
	"context"
	"testing"
	"time"

	"gearmart/internal/cache"
	"gearmart/internal/config"
	"gearmart/internal/database"
	"gearmart/internal/events"
	"gearmart/internal/gateway"
	"gearmart/internal/model"
	"gearmart/internal/repository"
	"gearmart/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	Config    config.DatabaseConfig
}

// SetupTestDB creates a PostgreSQL test container, runs the real migrations
// against it and returns a connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
		MigrationsPath:  "../../migrations",
	}

	logger := zerolog.Nop()

	if err := database.Migrate(dbConfig, logger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, dbConfig, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		Config:    dbConfig,
	}
}

// TestStack wires the full service stack against a test database, with the
// stub payment gateway and no external event publishing.
type TestStack struct {
	ProductRepo repository.ProductRepository
	OrderRepo   repository.OrderRepository
	TxRepo      repository.TransactionRepository
	Products    service.ProductService
	Checkout    service.CheckoutService
	Payment     service.PaymentService
	Status      service.OrderStatusService
}

// NewTestStack builds repositories and services over the given pool.
func NewTestStack(pool *pgxpool.Pool) *TestStack {
	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	txRepo := repository.NewTransactionRepository(pool, logger)

	publisher := events.NopPublisher{}
	statusCache := cache.NopCache{}
	gw := gateway.NewStubGateway(logger)

	return &TestStack{
		ProductRepo: productRepo,
		OrderRepo:   orderRepo,
		TxRepo:      txRepo,
		Products:    service.NewProductService(productRepo, logger),
		Checkout:    service.NewCheckoutService(orderRepo, productRepo, publisher, statusCache, logger),
		Payment:     service.NewPaymentService(orderRepo, productRepo, txRepo, gw, publisher, statusCache, logger),
		Status:      service.NewOrderStatusService(orderRepo, productRepo, txRepo, publisher, statusCache, logger),
	}
}

// InsertProduct writes a product row and returns the model.
func InsertProduct(t *testing.T, pool *pgxpool.Pool, name string, quantity int, rentalPrice, purchasePrice float64, active bool) model.Product {
	t.Helper()

	product := model.Product{
		ID:            uuid.New(),
		Name:          name,
		Quantity:      quantity,
		RentalPrice:   rentalPrice,
		PurchasePrice: purchasePrice,
		IsActive:      active,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, quantity, rental_price, purchase_price, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		product.ID, product.Name, product.Quantity, product.RentalPrice, product.PurchasePrice, product.IsActive)
	if err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}

	return product
}

// SeedProducts inserts a small equipment catalogue for tests.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) []model.Product {
	t.Helper()

	return []model.Product{
		InsertProduct(t, pool, "Cordless Drill", 10, 8.00, 120.00, true),
		InsertProduct(t, pool, "Belt Sander", 4, 6.00, 80.00, true),
		InsertProduct(t, pool, "Diesel Generator", 1, 45.00, 2200.00, true),
	}
}

// CleanupDB removes all data from the tables between test cases.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE stock_reservations, transactions, order_items, orders, addresses, products CASCADE`)
	if err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
}

// ProductQuantity reads the current stock level of a product.
func ProductQuantity(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) int {
	t.Helper()

	var quantity int
	err := pool.QueryRow(context.Background(),
		`SELECT quantity FROM products WHERE id = $1`, id).Scan(&quantity)
	if err != nil {
		t.Fatalf("failed to read product quantity: %v", err)
	}
	return quantity
}

// ReservationStatus reads the reservation ledger entry for an order line.
// Returns "" when no entry exists.
func ReservationStatus(t *testing.T, pool *pgxpool.Pool, orderID, productID uuid.UUID) string {
	t.Helper()

	var status string
	err := pool.QueryRow(context.Background(),
		`SELECT status FROM stock_reservations WHERE order_id = $1 AND product_id = $2`,
		orderID, productID).Scan(&status)
	if err != nil {
		return ""
	}
	return status
}

// CheckoutRequestFor builds a valid single-line purchase checkout request.
func CheckoutRequestFor(productID uuid.UUID, quantity int, shippingFee float64) *model.CheckoutRequest {
	address := model.AddressRequest{
		FullName:   "Alex Carpenter",
		Line1:      "12 Workshop Lane",
		City:       "Bristol",
		State:      "Avon",
		PostalCode: "BS1 4DJ",
		Country:    "GB",
	}

	return &model.CheckoutRequest{
		UserID: uuid.New(),
		Items: []model.CartItemRequest{
			{ProductID: productID, Quantity: quantity, Type: model.OrderTypePurchase},
		},
		BillingAddress:  address,
		ShippingAddress: address,
		ShippingFee:     shippingFee,
	}
}
