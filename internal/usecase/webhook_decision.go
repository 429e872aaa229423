package usecase

import (
	"errors"
	"net/http"

	"membership-payments/internal/domain"
)

// WebhookRule is one row of the retry contract with the gateway: the gateway
// redelivers a notification if and only if it receives a non-2xx status.
type WebhookRule struct {
	Name   string
	Match  func(err error) bool
	Status int
	Retry  bool
}

// WebhookRules is evaluated top to bottom; the first matching row wins.
// A nil error (recorded, applied, already processed, unhandled status,
// apply failed, non-payment notification) is always 200 without retry.
var WebhookRules = []WebhookRule{
	{
		Name:   "malformed notification",
		Match:  func(err error) bool { return errors.Is(err, domain.ErrMalformedNotification) },
		Status: http.StatusBadRequest,
	},
	{
		Name:   "bad signature",
		Match:  func(err error) bool { return errors.Is(err, domain.ErrInvalidSignature) },
		Status: http.StatusUnauthorized,
	},
	{
		Name:   "gateway credential missing",
		Match:  func(err error) bool { return errors.Is(err, domain.ErrGatewayUnavailable) },
		Status: http.StatusServiceUnavailable,
		Retry:  true,
	},
	{
		Name: "invalid payment detail",
		Match: func(err error) bool {
			var re *domain.ReconciliationError
			return errors.As(err, &re)
		},
		Status: http.StatusInternalServerError,
		Retry:  true,
	},
	{
		Name: "gateway fetch failed",
		Match: func(err error) bool {
			var ge *domain.GatewayError
			return errors.As(err, &ge)
		},
		Status: http.StatusBadGateway,
		Retry:  true,
	},
	{
		Name:   "internal failure",
		Match:  func(error) bool { return true },
		Status: http.StatusInternalServerError,
		Retry:  true,
	},
}

// WebhookDecision maps a reconciliation error onto the HTTP status returned to the gateway.
func WebhookDecision(err error) (status int, retry bool) {
	if err == nil {
		return http.StatusOK, false
	}
	for _, rule := range WebhookRules {
		if rule.Match(err) {
			return rule.Status, rule.Retry
		}
	}
	return http.StatusInternalServerError, true
}
