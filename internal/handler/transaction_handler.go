package handler

import (
	"encoding/json"
	"net/http"

	"gearmart/internal/model"
	"gearmart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransactionHandler handles admin transaction HTTP requests.
type TransactionHandler struct {
	status service.OrderStatusService
	logger zerolog.Logger
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(status service.OrderStatusService, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{
		status: status,
		logger: logger.With().Str("handler", "transaction").Logger(),
	}
}

// UpdateStatus handles PATCH /api/transactions/{id}/status requests (admin).
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid transaction ID format", h.logger)
		return
	}

	var req model.TransactionStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	txn, err := h.status.UpdateTransactionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, txn)
}
