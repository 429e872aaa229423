package api

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/i18n"
	"membership-payments/internal/infra/logging"
	"membership-payments/internal/usecase"
)

// Server serves the browser-facing pages and the operational endpoints.
type Server struct {
	reconciler usecase.ReconcileUseCase
	returnPath string
	catalog    *i18n.Catalog
	log        *zerolog.Logger
}

// NewServer: returnPath must match the path of the back_urls handed to the gateway.
func NewServer(reconciler usecase.ReconcileUseCase, returnPath string, logger *zerolog.Logger) *Server {
	if returnPath == "" {
		returnPath = "/payments/return"
	}
	l := logger.With().Str("component", "ReturnPage").Logger()
	return &Server{reconciler: reconciler, returnPath: returnPath, catalog: i18n.MustCatalog(), log: &l}
}

func (s *Server) Register(r chi.Router) {
	r.Get(s.returnPath, s.handleReturn)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
}

// handleReturn is where the gateway sends the payer back after checkout.
// It reconciles eagerly so the page can show the outcome; the webhook stays
// authoritative and a failure here only changes the wording.
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	tr := s.catalog.Match(r.Header.Get("Accept-Language"))

	q := r.URL.Query()
	paymentID := strings.TrimSpace(q.Get("payment_id"))
	if paymentID == "" || paymentID == "null" {
		s.renderHTML(w, tr, false, tr.T("not_completed"))
		return
	}

	res, err := s.reconciler.Reconcile(logging.WithPaymentID(ctx, paymentID), paymentID)
	if err != nil {
		l := logging.With(ctx, s.log)
		l.Warn().Err(err).Str("payment_id", paymentID).Msg("return page reconcile failed")
		s.renderHTML(w, tr, false, tr.T("not_confirmed"))
		return
	}

	switch res.Status {
	case model.PaymentStatusApproved:
		msg := tr.T("approved")
		if res.Extension != nil {
			msg = tr.T("approved_until", res.Extension.NewExpiresAt.UTC().Format("2006-01-02"))
		}
		s.renderHTML(w, tr, true, msg)
	case model.PaymentStatusPending:
		s.renderHTML(w, tr, false, tr.T("pending"))
	case model.PaymentStatusRejected:
		s.renderHTML(w, tr, false, tr.T("rejected"))
	default:
		s.renderHTML(w, tr, false, tr.T("other_status", string(res.Status)))
	}
}

var page = template.Must(template.New("return").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .wait{color:#8a6d00}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}wait{{end}}">{{.Title}}</h2>
  <p>{{.Msg}}</p>
</div>
</body>
</html>`))

func (s *Server) renderHTML(w http.ResponseWriter, tr *i18n.Translator, ok bool, msg string) {
	title := tr.T("title_status")
	if ok {
		title = tr.T("title_ok")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", tr.Lang())
	w.WriteHeader(http.StatusOK)
	_ = page.Execute(w, struct {
		Lang  string
		Title string
		OK    bool
		Msg   string
	}{
		Lang:  tr.Lang(),
		Title: title,
		OK:    ok,
		Msg:   msg,
	})
}
