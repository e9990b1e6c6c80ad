package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a piece of equipment available for rent or purchase.
type Product struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Quantity          int       `json:"quantity" db:"quantity"`
	RentalPrice       float64   `json:"rentalPrice" db:"rental_price"`
	PurchasePrice     float64   `json:"purchasePrice" db:"purchase_price"`
	SaleRentalPrice   *float64  `json:"saleRentalPrice,omitempty" db:"sale_rental_price"`
	SalePurchasePrice *float64  `json:"salePurchasePrice,omitempty" db:"sale_purchase_price"`
	IsActive          bool      `json:"isActive" db:"is_active"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// UnitPrice returns the effective per-unit price for the given order type.
// A sale price takes precedence over the list price when set.
func (p *Product) UnitPrice(t OrderType) float64 {
	switch t {
	case OrderTypeRent:
		if p.SaleRentalPrice != nil && *p.SaleRentalPrice > 0 {
			return *p.SaleRentalPrice
		}
		return p.RentalPrice
	case OrderTypePurchase:
		if p.SalePurchasePrice != nil && *p.SalePurchasePrice > 0 {
			return *p.SalePurchasePrice
		}
		return p.PurchasePrice
	}
	return 0
}

// PriceModeEnabled reports whether the product is offered in the given mode.
// A product with a zero rental price cannot be rented, and vice versa.
func (p *Product) PriceModeEnabled(t OrderType) bool {
	switch t {
	case OrderTypeRent:
		return p.RentalPrice > 0
	case OrderTypePurchase:
		return p.PurchasePrice > 0
	}
	return false
}
