package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"membership-payments/internal/domain"
)

type errorBody struct {
	Error   string        `json:"error"`
	Details *errorDetails `json:"details,omitempty"`
}

type errorDetails struct {
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError renders caller-facing errors. Upstream detail never leaks
// to the client; it is logged by the use case instead.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var ge *domain.GatewayError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   ve.Message,
			Details: &errorDetails{Kind: string(ve.Kind), Field: ve.Field},
		})
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many checkout attempts, try again shortly")
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusServiceUnavailable, "payment gateway is not configured")
	case errors.Is(err, domain.ErrPaymentNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &ge):
		writeError(w, http.StatusBadGateway, "payment gateway error")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
