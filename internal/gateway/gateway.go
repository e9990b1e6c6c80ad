// Package gateway talks to the payment provider. The real provider is not
// integrated yet; the stub returns a fixed outcome per payment method so the
// payment flow can be exercised end to end.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChargeResult is the provider's answer to a charge request.
type ChargeResult struct {
	Approved  bool
	Reference string
}

// PaymentGateway charges a payment method for an amount.
type PaymentGateway interface {
	Charge(ctx context.Context, method, paymentInfo string, amount float64) (ChargeResult, error)
}

// stubGateway approves or declines based solely on the payment method.
type stubGateway struct {
	logger zerolog.Logger
}

// NewStubGateway creates the fixed-outcome gateway used until a real provider
// client is wired in.
func NewStubGateway(logger zerolog.Logger) PaymentGateway {
	return &stubGateway{
		logger: logger.With().Str("component", "payment-gateway").Logger(),
	}
}

// Methods the stub approves. Anything else is declined.
var approvedMethods = map[string]bool{
	"card":          true,
	"paypal":        true,
	"bank_transfer": true,
}

func (g *stubGateway) Charge(ctx context.Context, method, paymentInfo string, amount float64) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	method = strings.ToLower(strings.TrimSpace(method))
	if !approvedMethods[method] {
		g.logger.Warn().
			Str("method", method).
			Float64("amount", amount).
			Msg("charge declined")
		return ChargeResult{Approved: false}, nil
	}

	ref := fmt.Sprintf("stub-%s", uuid.NewString())
	g.logger.Info().
		Str("method", method).
		Float64("amount", amount).
		Str("reference", ref).
		Msg("charge approved")

	return ChargeResult{Approved: true, Reference: ref}, nil
}
