package gateway

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubGateway_Charge(t *testing.T) {
	gw := NewStubGateway(zerolog.Nop())
	ctx := context.Background()

	tests := []struct {
		name     string
		method   string
		approved bool
	}{
		{"Card approved", "card", true},
		{"Paypal approved", "paypal", true},
		{"Bank transfer approved", "bank_transfer", true},
		{"Method is case insensitive", "CARD", true},
		{"Method is trimmed", "  card  ", true},
		{"Unknown method declined", "crypto", false},
		{"Empty method declined", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := gw.Charge(ctx, tt.method, "tok_123", 49.99)
			require.NoError(t, err)
			assert.Equal(t, tt.approved, result.Approved)
			if tt.approved {
				assert.NotEmpty(t, result.Reference)
			} else {
				assert.Empty(t, result.Reference)
			}
		})
	}
}

func TestStubGateway_Charge_CancelledContext(t *testing.T) {
	gw := NewStubGateway(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Charge(ctx, "card", "tok_123", 10.00)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
