package adapter

import (
	"context"
	"encoding/json"

	"membership-payments/internal/domain/model"
)

// PaymentGateway is the hex port for the external payment provider.
// Implementations return *domain.GatewayError for upstream failures and
// domain.ErrGatewayUnavailable when no access credential is configured.
type PaymentGateway interface {
	Name() string

	// CreateIntent opens a checkout preference whose external reference is the payer id.
	CreateIntent(ctx context.Context, intent model.ValidatedIntent) (*model.CheckoutSession, error)
	// FetchPayment reads the authoritative payment state.
	FetchPayment(ctx context.Context, gatewayPaymentID string) (*model.PaymentDetail, error)
	// FetchPaymentRaw returns the gateway document untouched, for pass-through reads.
	FetchPaymentRaw(ctx context.Context, gatewayPaymentID string) (json.RawMessage, error)
}
