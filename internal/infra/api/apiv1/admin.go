package apiv1

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/logging"
	"membership-payments/internal/infra/metrics"
	"membership-payments/internal/usecase"
)

type paymentRecordDTO struct {
	GatewayPaymentID string          `json:"gateway_payment_id"`
	PayerID          string          `json:"payer_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	StatusDetail     string          `json:"status_detail,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
	FirstApprovedAt  *time.Time      `json:"first_approved_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type deliveryDTO struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id,omitempty"`
	Outcome    string    `json:"outcome"`
	HTTPStatus int       `json:"http_status"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

func toRecordDTO(r *model.PaymentRecord) paymentRecordDTO {
	return paymentRecordDTO{
		GatewayPaymentID: r.GatewayPaymentID,
		PayerID:          r.PayerID,
		Amount:           r.Amount,
		Currency:         r.Currency,
		Status:           string(r.Status),
		PaymentMethod:    r.PaymentMethod,
		StatusDetail:     r.StatusDetail,
		Metadata:         r.Metadata,
		FirstApprovedAt:  r.FirstApprovedAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// GET /admin/payments/{id}
func (s *Server) handleAdminPayment(w http.ResponseWriter, r *http.Request) {
	view, err := s.audit.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		metrics.IncAdminRequest("payment", "error")
		writeDomainError(w, err)
		return
	}
	out := struct {
		Record     paymentRecordDTO `json:"record"`
		Deliveries []deliveryDTO    `json:"deliveries"`
	}{Record: toRecordDTO(view.Record), Deliveries: []deliveryDTO{}}
	for _, d := range view.Deliveries {
		out.Deliveries = append(out.Deliveries, deliveryDTO{
			ID:         d.ID,
			Type:       d.Type,
			RequestID:  d.RequestID,
			Outcome:    d.Outcome,
			HTTPStatus: d.HTTPStatus,
			Error:      d.Error,
			ReceivedAt: d.ReceivedAt,
		})
	}
	metrics.IncAdminRequest("payment", "ok")
	writeJSON(w, http.StatusOK, out)
}

// POST /admin/payments/{id}/reconcile re-runs reconciliation on demand; it is
// as idempotent as a webhook redelivery.
func (s *Server) handleAdminReconcile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := logging.WithPaymentID(r.Context(), id)
	res, err := s.reconciler.Reconcile(ctx, id)
	if err != nil {
		metrics.IncAdminRequest("reconcile", "error")
		status, retry := usecase.WebhookDecision(err)
		writeJSON(w, status, webhookResponse{Success: false, Error: err.Error(), Retry: retry})
		return
	}
	observeReconcile(res)
	metrics.IncAdminRequest("reconcile", "ok")
	out := struct {
		PaymentID string     `json:"payment_id"`
		Status    string     `json:"status"`
		Previous  string     `json:"previous,omitempty"`
		Outcome   string     `json:"outcome"`
		ExpiresAt *time.Time `json:"membership_expires_at,omitempty"`
	}{
		PaymentID: res.PaymentID,
		Status:    string(res.Status),
		Previous:  string(res.Previous),
		Outcome:   string(res.Outcome),
	}
	if res.Extension != nil {
		t := res.Extension.NewExpiresAt
		out.ExpiresAt = &t
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /admin/reconciliation-gaps?older_than=10m&limit=100
func (s *Server) handleAdminGaps(w http.ResponseWriter, r *http.Request) {
	var (
		olderThanRaw *string
		limit        *int
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "older_than", q, &olderThanRaw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid older_than parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	olderThan := 10 * time.Minute
	if olderThanRaw != nil {
		d, err := time.ParseDuration(*olderThanRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "older_than must be a duration such as 10m")
			return
		}
		olderThan = d
	}
	n := 100
	if limit != nil && *limit > 0 && *limit <= 1000 {
		n = *limit
	}

	gaps, err := s.audit.ListGaps(r.Context(), olderThan, n)
	if err != nil {
		metrics.IncAdminRequest("gaps", "error")
		writeDomainError(w, err)
		return
	}
	items := make([]paymentRecordDTO, 0, len(gaps))
	for _, g := range gaps {
		items = append(items, toRecordDTO(g))
	}
	metrics.IncAdminRequest("gaps", "ok")
	writeJSON(w, http.StatusOK, struct {
		Items []paymentRecordDTO `json:"items"`
		Count int                `json:"count"`
	}{Items: items, Count: len(items)})
}
