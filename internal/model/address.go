package model

import (
	"time"

	"github.com/google/uuid"
)

// Address is a billing or shipping address. A new row is written per checkout;
// addresses are never edited in place, so orders keep pointing at the exact
// address they were placed with.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"userId" db:"user_id"`
	FullName   string    `json:"fullName" db:"full_name"`
	Line1      string    `json:"line1" db:"line1"`
	Line2      *string   `json:"line2,omitempty" db:"line2"`
	City       string    `json:"city" db:"city"`
	State      string    `json:"state" db:"state"`
	PostalCode string    `json:"postalCode" db:"postal_code"`
	Country    string    `json:"country" db:"country"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// AddressRequest is the address payload inside a checkout request.
type AddressRequest struct {
	FullName   string  `json:"fullName"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country"`
}
