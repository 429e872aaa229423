package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for local runs and tests.
// Payments only exist once SetPayment has been called for them.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	intents  map[string]model.ValidatedIntent // preference id -> intent
	payments map[string]*model.PaymentDetail
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		intents:  make(map[string]model.ValidatedIntent),
		payments: make(map[string]*model.PaymentDetail),
	}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreateIntent(ctx context.Context, intent model.ValidatedIntent) (*model.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.intents[id] = intent
	return &model.CheckoutSession{ID: id, CheckoutURL: "https://example.test/checkout/" + id}, nil
}

// Intent returns what was submitted for a preference id.
func (g *NoopPaymentGateway) Intent(preferenceID string) (model.ValidatedIntent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[preferenceID]
	return in, ok
}

// SetPayment makes a payment visible to FetchPayment, replacing any earlier state.
func (g *NoopPaymentGateway) SetPayment(d *model.PaymentDetail) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *d
	g.payments[d.ID] = &cp
}

func (g *NoopPaymentGateway) FetchPayment(ctx context.Context, id string) (*model.PaymentDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.payments[id]
	if !ok {
		return nil, &domain.GatewayError{Op: "fetch_payment", StatusCode: 404, Body: `{"message":"Payment not found"}`}
	}
	cp := *d
	return &cp, nil
}

func (g *NoopPaymentGateway) FetchPaymentRaw(ctx context.Context, id string) (json.RawMessage, error) {
	d, err := g.FetchPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	for k, v := range d.Raw {
		doc[k] = v
	}
	doc["id"] = d.ID
	doc["status"] = string(d.Status)
	doc["status_detail"] = d.StatusDetail
	doc["transaction_amount"] = json.Number(d.Amount.String())
	doc["currency_id"] = d.Currency
	doc["external_reference"] = d.ExternalReference
	return json.Marshal(doc)
}
