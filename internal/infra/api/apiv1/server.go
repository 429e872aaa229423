// Package apiv1 holds the JSON API: checkout, payment lookup, the gateway
// webhook and the admin support endpoints.
package apiv1

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"membership-payments/internal/infra/api"
	"membership-payments/internal/infra/payment"
	"membership-payments/internal/usecase"
)

type Deps struct {
	Checkout   usecase.CheckoutUseCase
	Reconciler usecase.ReconcileUseCase
	Audit      usecase.AuditUseCase
	Auth       *api.Authenticator
	Signature  payment.SignatureVerifier
	AdminKey   string
	// WebhookPath is the path of the notification_url handed to the gateway.
	WebhookPath string
}

type Server struct {
	checkout    usecase.CheckoutUseCase
	reconciler  usecase.ReconcileUseCase
	audit       usecase.AuditUseCase
	auth        *api.Authenticator
	signature   payment.SignatureVerifier
	adminKey    string
	webhookPath string
	log         *zerolog.Logger
}

// NewServer builds the handlers; a nil logger discards output.
func NewServer(deps Deps, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if deps.WebhookPath == "" {
		deps.WebhookPath = "/api/v1/webhooks/payments"
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		checkout:    deps.Checkout,
		reconciler:  deps.Reconciler,
		audit:       deps.Audit,
		auth:        deps.Auth,
		signature:   deps.Signature,
		adminKey:    deps.AdminKey,
		webhookPath: deps.WebhookPath,
		log:         &l,
	}
}

// RegisterAPIV1 mounts every route on r using absolute paths.
func RegisterAPIV1(r chi.Router, srv *Server) {
	r.Group(func(r chi.Router) {
		r.Use(srv.auth.Middleware)
		r.Post("/api/v1/checkout", srv.handleCheckout)
		r.Get("/api/v1/payments/lookup", srv.handleLookup)
	})

	// The gateway authenticates with a signature, not a bearer token.
	r.Post(srv.webhookPath, srv.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(api.AdminKey(srv.adminKey, srv.log))
		r.Get("/admin/payments/{id}", srv.handleAdminPayment)
		r.Post("/admin/payments/{id}/reconcile", srv.handleAdminReconcile)
		r.Get("/admin/reconciliation-gaps", srv.handleAdminGaps)
	})
}
