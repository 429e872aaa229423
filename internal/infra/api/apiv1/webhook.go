package apiv1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/logging"
	"membership-payments/internal/infra/metrics"
	"membership-payments/internal/usecase"
)

type webhookResponse struct {
	Success bool   `json:"success"`
	Ignored bool   `json:"ignored,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
	Retry   bool   `json:"retry,omitempty"`
}

// POST <webhook path>
//
// The status code is the whole retry contract: 2xx stops redelivery, anything
// else asks the gateway to try again (see usecase.WebhookDecision).
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	delivery := &model.WebhookDelivery{
		ID:         ulid.Make().String(),
		RequestID:  r.Header.Get("X-Request-Id"),
		ReceivedAt: start,
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.finishWebhook(ctx, w, delivery, start, nil, fmt.Errorf("%w: read body: %v", domain.ErrMalformedNotification, err))
		return
	}
	delivery.Body = body

	n, parseErr := model.ParseNotification(body, r.URL.Query())
	if n != nil {
		delivery.Type = string(n.Type)
		delivery.PaymentID = n.PaymentID
	}

	if s.signature.Enabled() {
		// the gateway signs the data.id it puts in the query string
		dataID := r.URL.Query().Get("data.id")
		if dataID == "" {
			dataID = delivery.PaymentID
		}
		if err := s.signature.Verify(r.Header.Get("X-Signature"), delivery.RequestID, dataID); err != nil {
			s.finishWebhook(ctx, w, delivery, start, nil, err)
			return
		}
	}
	if parseErr != nil {
		s.finishWebhook(ctx, w, delivery, start, nil, parseErr)
		return
	}
	if !n.IsPayment() {
		delivery.Outcome = "ignored"
		s.finishWebhook(ctx, w, delivery, start, nil, nil)
		return
	}

	ctx = logging.WithPaymentID(ctx, n.PaymentID)
	res, err := s.reconciler.Reconcile(ctx, n.PaymentID)
	s.finishWebhook(ctx, w, delivery, start, res, err)
}

func (s *Server) finishWebhook(ctx context.Context, w http.ResponseWriter, d *model.WebhookDelivery, start time.Time, res *usecase.ReconcileResult, err error) {
	status, retry := usecase.WebhookDecision(err)
	d.HTTPStatus = status

	l := logging.With(ctx, s.log)
	switch {
	case err != nil:
		d.Outcome = webhookErrorOutcome(err)
		d.Error = err.Error()
		evt := l.Error()
		if status < 500 {
			evt = l.Warn()
		}
		evt.Err(err).Int("status", status).Bool("retry", retry).Str("type", d.Type).Msg("webhook rejected")
	case res != nil:
		d.Outcome = string(res.Outcome)
		observeReconcile(res)
	}
	metrics.ObserveWebhook(d.Type, d.Outcome, status, time.Since(start))

	// Audit is best effort and must not turn an ack into a retry.
	if s.audit != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		_ = s.audit.RecordDelivery(actx, d)
		cancel()
	}

	if err != nil {
		writeJSON(w, status, webhookResponse{Success: false, Error: http.StatusText(status), Retry: retry})
		return
	}
	writeJSON(w, status, webhookResponse{Success: true, Ignored: d.Outcome == "ignored", Outcome: d.Outcome})
}

func observeReconcile(res *usecase.ReconcileResult) {
	switch res.Outcome {
	case usecase.OutcomeApplied:
		metrics.IncMembershipExtension()
		metrics.AddApprovedRevenue(res.Currency, res.Amount)
	case usecase.OutcomeApplyFailed:
		metrics.IncReconciliationGap("webhook")
		metrics.AddApprovedRevenue(res.Currency, res.Amount)
	}
}

func webhookErrorOutcome(err error) string {
	var re *domain.ReconciliationError
	var ge *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrMalformedNotification):
		return "malformed"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "gateway_unavailable"
	case errors.As(err, &re):
		return "invalid_detail"
	case errors.As(err, &ge):
		return "gateway_error"
	default:
		return "error"
	}
}
