package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/adapter"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// Create validates the request and opens a checkout session with the gateway.
	Create(ctx context.Context, req model.PaymentIntentRequest) (*model.CheckoutSession, error)
	// LookupPayment passes the gateway's payment document through unchanged.
	LookupPayment(ctx context.Context, gatewayPaymentID string) (json.RawMessage, error)
}

// CheckoutLimit bounds checkout creation per payer. A zero Limit disables it.
type CheckoutLimit struct {
	Limit  int
	Window time.Duration
}

type checkoutUC struct {
	gateway adapter.PaymentGateway
	limiter adapter.RateLimiter
	limit   CheckoutLimit
	log     *zerolog.Logger
}

// NewCheckoutUseCase wires the gateway and an optional per-payer limiter (nil disables it).
func NewCheckoutUseCase(gateway adapter.PaymentGateway, limiter adapter.RateLimiter, limit CheckoutLimit, logger *zerolog.Logger) CheckoutUseCase {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{gateway: gateway, limiter: limiter, limit: limit, log: &l}
}

func (uc *checkoutUC) Create(ctx context.Context, req model.PaymentIntentRequest) (*model.CheckoutSession, error) {
	intent, err := ValidateIntent(req)
	if err != nil {
		return nil, err
	}

	if uc.limiter != nil && uc.limit.Limit > 0 {
		ok, err := uc.limiter.Allow(ctx, checkoutRateKey(intent.PayerID), uc.limit.Limit, uc.limit.Window)
		if err != nil {
			// limiter outage must not block purchases
			uc.log.Warn().Err(err).Str("payer_id", intent.PayerID).Msg("checkout rate limiter unavailable")
		} else if !ok {
			return nil, domain.ErrRateLimited
		}
	}

	sess, err := uc.gateway.CreateIntent(ctx, intent)
	if err != nil {
		uc.log.Error().Err(err).
			Str("payer_id", intent.PayerID).
			Str("amount", intent.Total().StringFixed(2)).
			Msg("create checkout session failed")
		return nil, err
	}
	uc.log.Info().
		Str("payer_id", intent.PayerID).
		Str("session_id", sess.ID).
		Str("amount", intent.Total().StringFixed(2)).
		Msg("checkout session created")
	return sess, nil
}

func (uc *checkoutUC) LookupPayment(ctx context.Context, gatewayPaymentID string) (json.RawMessage, error) {
	id := strings.TrimSpace(gatewayPaymentID)
	if id == "" {
		return nil, missing("id")
	}
	raw, err := uc.gateway.FetchPaymentRaw(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup payment %s: %w", id, err)
	}
	return raw, nil
}

func checkoutRateKey(payerID string) string {
	return fmt.Sprintf("rate_limit:checkout:%s", payerID)
}
