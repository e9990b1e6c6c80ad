package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gearmart/internal/model"

	"github.com/rs/zerolog"
)

// IdempotencyKeyHeader carries the client-supplied token that makes retried
// checkout and payment requests safe to replay.
const IdempotencyKeyHeader = "Idempotency-Key"

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response is already partially written; nothing sensible left to do.
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps service-layer errors onto HTTP responses. Validation
// and stock problems carry their full detail lists so the client can show
// every problem at once.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		logger.Warn().Int("problems", len(validationErr.Details)).Msg("request validation failed")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeValidationFailed,
			Message: validationErr.Error(),
			Details: validationErr.Details,
		})
		return
	}

	var stockErr *model.StockUnavailableError
	if errors.As(err, &stockErr) {
		logger.Warn().Int("shortages", len(stockErr.Items)).Msg("stock unavailable")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeStockUnavailable,
			Message: stockErr.Error(),
			Details: stockErr.Items,
		})
		return
	}

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Code {
		case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound, model.ErrCodeTransactionNotFound:
			status = http.StatusNotFound
		case model.ErrCodeOrderStateConflict:
			status = http.StatusConflict
		case model.ErrCodePaymentDeclined:
			status = http.StatusPaymentRequired
		}
		writeError(w, status, domainErr.Code, domainErr.Message, logger)
		return
	}

	logger.Error().Err(err).Msg("unhandled service error")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}
