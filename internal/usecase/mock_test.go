//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"membership-payments/internal/domain/model"
	"membership-payments/internal/domain/ports/adapter"
	"membership-payments/internal/domain/ports/repository"
	"membership-payments/internal/infra/db/memory"
)

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	NameVal string

	CreateIntentFunc    func(ctx context.Context, intent model.ValidatedIntent) (*model.CheckoutSession, error)
	FetchPaymentFunc    func(ctx context.Context, id string) (*model.PaymentDetail, error)
	FetchPaymentRawFunc func(ctx context.Context, id string) (json.RawMessage, error)

	createCalls int32
	fetchCalls  int32
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string {
	if m.NameVal == "" {
		return "mockpay"
	}
	return m.NameVal
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, intent model.ValidatedIntent) (*model.CheckoutSession, error) {
	atomic.AddInt32(&m.createCalls, 1)
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, intent)
	}
	id := "pref-" + uuid.NewString()
	return &model.CheckoutSession{ID: id, CheckoutURL: "https://pay.example/checkout/" + id}, nil
}

func (m *MockPaymentGateway) FetchPayment(ctx context.Context, id string) (*model.PaymentDetail, error) {
	atomic.AddInt32(&m.fetchCalls, 1)
	if m.FetchPaymentFunc != nil {
		return m.FetchPaymentFunc(ctx, id)
	}
	return approvedDetail(id, "u1", 5000), nil
}

func (m *MockPaymentGateway) FetchPaymentRaw(ctx context.Context, id string) (json.RawMessage, error) {
	if m.FetchPaymentRawFunc != nil {
		return m.FetchPaymentRawFunc(ctx, id)
	}
	return json.RawMessage(`{"id":"` + id + `"}`), nil
}

func (m *MockPaymentGateway) CreateCalls() int { return int(atomic.LoadInt32(&m.createCalls)) }
func (m *MockPaymentGateway) FetchCalls() int  { return int(atomic.LoadInt32(&m.fetchCalls)) }

// ---- Mock Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.Notice
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, n adapter.Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
}

func (m *MockNotifier) Kinds() []adapter.NoticeKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.NoticeKind, 0, len(m.Sent))
	for _, n := range m.Sent {
		out = append(out, n.Kind)
	}
	return out
}

// ---- Mock RateLimiter ----

type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

// ---- Mock Locker ----

type MockLocker struct {
	LockFunc func(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

var _ adapter.Locker = (*MockLocker)(nil)

func (m *MockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, key, ttl)
	}
	return func() {}, nil
}

// =============================
// Repositories
// =============================

// ---- Mock PaymentRecordRepository ----

// MockLedger wraps the in-memory store so tests can inject failures per method.
type MockLedger struct {
	*memory.PaymentRecordStore

	UpsertFunc            func(ctx context.Context, tx repository.Tx, rec *model.PaymentRecord) (repository.UpsertResult, error)
	MarkFirstApprovedFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error)

	upserts int32
}

var _ repository.PaymentRecordRepository = (*MockLedger)(nil)

func NewMockLedger() *MockLedger {
	return &MockLedger{PaymentRecordStore: memory.NewPaymentRecordStore()}
}

func (m *MockLedger) Upsert(ctx context.Context, tx repository.Tx, rec *model.PaymentRecord) (repository.UpsertResult, error) {
	atomic.AddInt32(&m.upserts, 1)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, rec)
	}
	return m.PaymentRecordStore.Upsert(ctx, tx, rec)
}

func (m *MockLedger) MarkFirstApproved(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	if m.MarkFirstApprovedFunc != nil {
		return m.MarkFirstApprovedFunc(ctx, tx, id, at)
	}
	return m.PaymentRecordStore.MarkFirstApproved(ctx, tx, id, at)
}

func (m *MockLedger) Upserts() int { return int(atomic.LoadInt32(&m.upserts)) }

// ---- Mock ProfileRepository ----

type MockProfileRepo struct {
	*memory.ProfileStore

	SaveFunc          func(ctx context.Context, tx repository.Tx, p *model.Profile) error
	SaveExtensionFunc func(ctx context.Context, tx repository.Tx, ext *model.MembershipExtension) error
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{ProfileStore: memory.NewProfileStore()}
}

func (m *MockProfileRepo) Save(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	return m.ProfileStore.Save(ctx, tx, p)
}

func (m *MockProfileRepo) SaveExtension(ctx context.Context, tx repository.Tx, ext *model.MembershipExtension) error {
	if m.SaveExtensionFunc != nil {
		return m.SaveExtensionFunc(ctx, tx, ext)
	}
	return m.ProfileStore.SaveExtension(ctx, tx, ext)
}

// =============================
// Helpers
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func detail(id, payer string, status model.PaymentStatus, amount int64) *model.PaymentDetail {
	return &model.PaymentDetail{
		ID:                id,
		Status:            status,
		Amount:            decimal.NewFromInt(amount),
		Currency:          "BRL",
		ExternalReference: payer,
		PaymentMethodID:   "pix",
		PaymentTypeID:     "bank_transfer",
		PayerEmail:        "a@b.com",
		Raw:               map[string]any{"id": id, "status": string(status), "installments": float64(1)},
	}
}

func approvedDetail(id, payer string, amount int64) *model.PaymentDetail {
	return detail(id, payer, model.PaymentStatusApproved, amount)
}

// seedProfile stores a profile with the given expiry (nil for never activated).
func seedProfile(repo *MockProfileRepo, id string, expires *time.Time) {
	p, _ := model.NewProfile(id, id+"@example.com")
	if expires != nil {
		t := *expires
		p.MembershipExpiresAt = &t
		p.MembershipStatus = model.MembershipStatusActive
	}
	_ = repo.ProfileStore.Save(context.Background(), nil, p)
}
