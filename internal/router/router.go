package router

import (
	"net/http"

	"gearmart/internal/handler"
	"gearmart/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// New creates the HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	transactionHandler *handler.TransactionHandler,
	adminAPIKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", productHandler.GetAll)
		r.Get("/products/{id}", productHandler.GetByID)

		r.Post("/checkout", orderHandler.Checkout)
		r.Get("/orders/{id}", orderHandler.GetByID)
		r.Get("/orders/{id}/status", orderHandler.GetStatus)
		r.Post("/orders/{id}/payment", orderHandler.SubmitPayment)

		// Admin-only lifecycle management.
		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAPIKey(adminAPIKey, logger))
			r.Patch("/orders/{id}/status", orderHandler.UpdateStatus)
			r.Patch("/transactions/{id}/status", transactionHandler.UpdateStatus)
		})
	})

	return r
}
