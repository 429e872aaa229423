package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/api"
	"membership-payments/internal/infra/logging"
	"membership-payments/internal/infra/metrics"
)

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	SandboxURL  string `json:"sandbox_url,omitempty"`
}

// POST /api/v1/checkout
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, ok := api.ClaimsFrom(ctx)
	if !ok {
		metrics.IncCheckout("unauthenticated")
		writeDomainError(w, domain.ErrUnauthenticated)
		return
	}

	var req model.PaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IncCheckout("bad_request")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// a payer may only pay for themselves; admins may act for anyone
	if req.PayerID != "" && req.PayerID != claims.Subject && !claims.IsAdmin() {
		metrics.IncCheckout("forbidden")
		writeDomainError(w, domain.ErrForbidden)
		return
	}

	sess, err := s.checkout.Create(logging.WithPayerID(ctx, req.PayerID), req)
	if err != nil {
		metrics.IncCheckout(checkoutResult(err))
		writeDomainError(w, err)
		return
	}
	metrics.IncCheckout("created")
	writeJSON(w, http.StatusOK, checkoutResponse{
		CheckoutURL: sess.CheckoutURL,
		SessionID:   sess.ID,
		SandboxURL:  sess.SandboxURL,
	})
}

func checkoutResult(err error) string {
	var ve *domain.ValidationError
	var ge *domain.GatewayError
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "unavailable"
	case errors.As(err, &ge):
		return "gateway_error"
	default:
		return "error"
	}
}

// GET /api/v1/payments/lookup?id=…
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var id *string
	if err := runtime.BindQueryParameter("form", true, false, "id", r.URL.Query(), &id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}
	if id == nil {
		id = new(string)
	}

	raw, err := s.checkout.LookupPayment(r.Context(), *id)
	if err != nil {
		var ge *domain.GatewayError
		if errors.As(err, &ge) && ge.StatusCode >= 400 {
			// mirror the gateway's own status; transport failures fall through to 502
			writeError(w, ge.StatusCode, http.StatusText(ge.StatusCode))
			return
		}
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
