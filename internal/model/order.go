package model

import (
	"time"

	"github.com/google/uuid"
)

// Order represents a customer order. Orders are never deleted; status is the
// only mutable column once the row is written.
type Order struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	UserID            uuid.UUID   `json:"userId" db:"user_id"`
	BillingAddressID  uuid.UUID   `json:"billingAddressId" db:"billing_address_id"`
	ShippingAddressID uuid.UUID   `json:"shippingAddressId" db:"shipping_address_id"`
	TotalAmount       float64     `json:"totalAmount" db:"total_amount"`
	ShippingFee       float64     `json:"shippingFee" db:"shipping_fee"`
	Status            OrderStatus `json:"status" db:"status"`
	Type              OrderType   `json:"type" db:"type"`
	IdempotencyKey    *string     `json:"-" db:"idempotency_key"`
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line item in an order. The price column is a snapshot of the
// unit price at order-creation time and is never re-read from the catalogue.
type OrderItem struct {
	ID          uuid.UUID  `json:"-" db:"id"`
	OrderID     uuid.UUID  `json:"-" db:"order_id"`
	ProductID   uuid.UUID  `json:"productId" db:"product_id"`
	Quantity    int        `json:"quantity" db:"quantity"`
	Price       float64    `json:"price" db:"price"`
	Type        OrderType  `json:"type" db:"type"`
	RentalStart *time.Time `json:"rentalStart,omitempty" db:"rental_start"`
	RentalEnd   *time.Time `json:"rentalEnd,omitempty" db:"rental_end"`
}

// CartItemRequest is a single line in a checkout request.
type CartItemRequest struct {
	ProductID   uuid.UUID  `json:"productId"`
	Quantity    int        `json:"quantity"`
	Type        OrderType  `json:"type"`
	RentalStart *time.Time `json:"rentalStart,omitempty"`
	RentalEnd   *time.Time `json:"rentalEnd,omitempty"`
}

// CheckoutRequest is the request payload for creating an order.
type CheckoutRequest struct {
	UserID          uuid.UUID         `json:"userId"`
	Items           []CartItemRequest `json:"items"`
	BillingAddress  AddressRequest    `json:"billingAddress"`
	ShippingAddress AddressRequest    `json:"shippingAddress"`
	ShippingFee     float64           `json:"shippingFee"`
}

// OrderResponse is the response payload for an order.
type OrderResponse struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// OrderStatusResponse is the lightweight payload for status polling.
type OrderStatusResponse struct {
	OrderID uuid.UUID   `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

// StatusUpdateRequest is the request payload for an admin status change.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

// OrderType derives the order-level type from the cart lines: any rental line
// makes the whole order RENT, otherwise PURCHASE. A mixed cart therefore
// collapses to RENT (documented behaviour, pending product-owner confirmation).
func (r *CheckoutRequest) OrderType() OrderType {
	for _, item := range r.Items {
		if item.Type == OrderTypeRent {
			return OrderTypeRent
		}
	}
	return OrderTypePurchase
}
