package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeStockUnavailable    = "STOCK_UNAVAILABLE"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeOrderStateConflict  = "ORDER_STATE_CONFLICT"
	ErrCodePaymentDeclined     = "PAYMENT_DECLINED"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business-logic error carrying an API error code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrProductNotFound     = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrTransactionNotFound = NewDomainError(ErrCodeTransactionNotFound, "Transaction not found")
	ErrOrderStateConflict  = NewDomainError(ErrCodeOrderStateConflict, "Order status does not permit this operation")
	ErrPaymentDeclined     = NewDomainError(ErrCodePaymentDeclined, "Payment was declined by the gateway")
)

// ValidationDetail names one problem with one cart line or field.
type ValidationDetail struct {
	ProductID *uuid.UUID `json:"productId,omitempty"`
	Field     string     `json:"field,omitempty"`
	Message   string     `json:"message"`
}

// ValidationError aggregates every problem found in a request so the caller
// sees the full list in one response rather than one failure at a time.
type ValidationError struct {
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d problem(s)", len(e.Details))
}

// NewValidationError builds a single-problem validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Details: []ValidationDetail{{Field: field, Message: message}}}
}

// StockShortage names one product whose available quantity cannot cover the
// requested amount.
type StockShortage struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// StockUnavailableError aggregates every out-of-stock line in an order.
type StockUnavailableError struct {
	Items []StockShortage
}

func (e *StockUnavailableError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Items))
}
