package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*MercadoPagoGateway)(nil)

const (
	defaultBaseURL  = "https://api.mercadopago.com"
	defaultTimeout  = 5 * time.Second
	maxErrorBodyLen = 512
)

type MercadoPagoOptions struct {
	AccessToken string
	BaseURL     string
	// NotificationURL is where the gateway delivers webhooks for created preferences.
	NotificationURL     string
	SuccessURL          string
	PendingURL          string
	FailureURL          string
	StatementDescriptor string
	Currency            string
	Timeout             time.Duration
}

// MercadoPagoGateway talks to the preference and payment REST endpoints.
type MercadoPagoGateway struct {
	opts   MercadoPagoOptions
	client *http.Client
	log    *zerolog.Logger

	warnOnce sync.Once
}

func NewMercadoPagoGateway(opts MercadoPagoOptions, logger *zerolog.Logger) (*MercadoPagoGateway, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	if opts.NotificationURL != "" {
		if _, err := url.ParseRequestURI(opts.NotificationURL); err != nil {
			return nil, fmt.Errorf("invalid notification url: %w", err)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Currency == "" {
		opts.Currency = "BRL"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	l := logger.With().Str("component", "MercadoPagoGateway").Logger()
	return &MercadoPagoGateway{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    &l,
	}, nil
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

type preferenceItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type preferenceRequest struct {
	Items               []preferenceItem  `json:"items"`
	Payer               map[string]string `json:"payer"`
	ExternalReference   string            `json:"external_reference"`
	NotificationURL     string            `json:"notification_url,omitempty"`
	BackURLs            map[string]string `json:"back_urls,omitempty"`
	AutoReturn          string            `json:"auto_return,omitempty"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreateIntent calls POST /checkout/preferences.
func (g *MercadoPagoGateway) CreateIntent(ctx context.Context, intent model.ValidatedIntent) (*model.CheckoutSession, error) {
	const op = "create_preference"
	payload := preferenceRequest{
		Items: []preferenceItem{{
			Title:      intent.Title,
			Quantity:   intent.Quantity,
			UnitPrice:  json.Number(intent.UnitPrice.StringFixed(2)),
			CurrencyID: g.opts.Currency,
		}},
		Payer:               map[string]string{"email": intent.PayerEmail},
		ExternalReference:   intent.PayerID,
		NotificationURL:     g.opts.NotificationURL,
		StatementDescriptor: g.opts.StatementDescriptor,
	}
	if back := g.backURLs(); len(back) > 0 {
		payload.BackURLs = back
		if back["success"] != "" {
			payload.AutoReturn = "approved"
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}

	body, status, err := g.do(ctx, op, http.MethodPost, "/checkout/preferences", b, uuid.NewString())
	if err != nil {
		return nil, err
	}
	var out preferenceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.GatewayError{Op: op, StatusCode: status, Body: truncate(body), Err: fmt.Errorf("decode preference: %w", err)}
	}
	if out.ID == "" || out.InitPoint == "" {
		return nil, &domain.GatewayError{Op: op, StatusCode: status, Body: truncate(body), Err: errors.New("preference response missing id or init_point")}
	}
	return &model.CheckoutSession{ID: out.ID, CheckoutURL: out.InitPoint, SandboxURL: out.SandboxInitPoint}, nil
}

func (g *MercadoPagoGateway) backURLs() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{"success": g.opts.SuccessURL, "pending": g.opts.PendingURL, "failure": g.opts.FailureURL} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type paymentResponse struct {
	ID                json.RawMessage `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	ExternalReference string          `json:"external_reference"`
	PaymentMethodID   string          `json:"payment_method_id"`
	PaymentTypeID     string          `json:"payment_type_id"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
	DateApproved     *time.Time `json:"date_approved"`
	MoneyReleaseDate *time.Time `json:"money_release_date"`
}

// FetchPayment calls GET /v1/payments/{id}.
func (g *MercadoPagoGateway) FetchPayment(ctx context.Context, gatewayPaymentID string) (*model.PaymentDetail, error) {
	const op = "fetch_payment"
	body, _, err := g.do(ctx, op, http.MethodGet, "/v1/payments/"+url.PathEscape(gatewayPaymentID), nil, "")
	if err != nil {
		return nil, err
	}
	// The exchange succeeded, so a document that does not fit the payment
	// shape is corrupt rather than transient.
	var p paymentResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &domain.ReconciliationError{
			PaymentID: gatewayPaymentID,
			Reason:    fmt.Sprintf("undecodable payment detail: %v", err),
		}
	}
	raw := map[string]any{}
	_ = json.Unmarshal(body, &raw)

	return &model.PaymentDetail{
		ID:                rawID(p.ID),
		Status:            model.PaymentStatus(strings.ToLower(p.Status)),
		StatusDetail:      p.StatusDetail,
		Amount:            p.TransactionAmount,
		Currency:          p.CurrencyID,
		ExternalReference: strings.TrimSpace(p.ExternalReference),
		PaymentMethodID:   p.PaymentMethodID,
		PaymentTypeID:     p.PaymentTypeID,
		PayerEmail:        p.Payer.Email,
		DateApproved:      p.DateApproved,
		MoneyReleaseDate:  p.MoneyReleaseDate,
		Raw:               raw,
	}, nil
}

func (g *MercadoPagoGateway) FetchPaymentRaw(ctx context.Context, gatewayPaymentID string) (json.RawMessage, error) {
	const op = "lookup_payment"
	body, status, err := g.do(ctx, op, http.MethodGet, "/v1/payments/"+url.PathEscape(gatewayPaymentID), nil, "")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &domain.GatewayError{Op: op, StatusCode: status, Body: truncate(body), Err: errors.New("response is not json")}
	}
	return json.RawMessage(body), nil
}

// do performs one bounded call. It never retries.
func (g *MercadoPagoGateway) do(ctx context.Context, op, method, path string, payload []byte, idempotencyKey string) ([]byte, int, error) {
	if g.opts.AccessToken == "" {
		g.warnOnce.Do(func() {
			g.log.Error().Msg("gateway access token is not configured; checkout and reconciliation are disabled")
		})
		metrics.ObserveGatewayCall(op, "unavailable", 0)
		return nil, 0, domain.ErrGatewayUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.opts.BaseURL+path, rd)
	if err != nil {
		return nil, 0, &domain.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.opts.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		metrics.ObserveGatewayCall(op, "transport_error", time.Since(start))
		return nil, 0, &domain.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	metrics.ObserveGatewayCall(op, fmt.Sprintf("%dxx", resp.StatusCode/100), time.Since(start))
	if err != nil {
		return nil, resp.StatusCode, &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Warn().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("body", truncate(body)).
			Msg("gateway returned non-2xx")
		return nil, resp.StatusCode, &domain.GatewayError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
	return body, resp.StatusCode, nil
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func truncate(b []byte) string {
	if len(b) > maxErrorBodyLen {
		return string(b[:maxErrorBodyLen])
	}
	return string(b)
}
