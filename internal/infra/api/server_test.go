//go:build !integration

package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"membership-payments/internal/domain"
	"membership-payments/internal/domain/model"
	"membership-payments/internal/infra/api"
	"membership-payments/internal/usecase"
)

type MockReconciler struct {
	ReconcileFunc func(ctx context.Context, id string) (*usecase.ReconcileResult, error)
	calls         []string
}

func (m *MockReconciler) Reconcile(ctx context.Context, id string) (*usecase.ReconcileResult, error) {
	m.calls = append(m.calls, id)
	return m.ReconcileFunc(ctx, id)
}

func serve(t *testing.T, rc usecase.ReconcileUseCase, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	api.NewServer(rc, "", nopLogger()).Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestReturnPage(t *testing.T) {
	expires := time.Date(2026, 11, 18, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		query  string
		result *usecase.ReconcileResult
		err    error
		want   string
		calls  int
	}{
		{"no payment id", "", nil, nil, "not completed", 0},
		{"null payment id", "?payment_id=null&status=null", nil, nil, "not completed", 0},
		{
			"approved with extension", "?payment_id=1",
			&usecase.ReconcileResult{Status: model.PaymentStatusApproved, Extension: &model.MembershipExtension{NewExpiresAt: expires}},
			nil, "active until 2026-11-18", 1,
		},
		{
			"approved duplicate", "?payment_id=1",
			&usecase.ReconcileResult{Status: model.PaymentStatusApproved, Outcome: usecase.OutcomeAlreadyProcessed},
			nil, "Your membership is active.", 1,
		},
		{"pending", "?payment_id=2", &usecase.ReconcileResult{Status: model.PaymentStatusPending}, nil, "pending", 1},
		{"rejected", "?payment_id=3", &usecase.ReconcileResult{Status: model.PaymentStatusRejected}, nil, "rejected", 1},
		{"gateway down", "?payment_id=4", nil, domain.ErrGatewayUnavailable, "could not confirm", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &MockReconciler{ReconcileFunc: func(ctx context.Context, id string) (*usecase.ReconcileResult, error) {
				return tc.result, tc.err
			}}
			rec := serve(t, m, "/payments/return"+tc.query)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("body does not contain %q:\n%s", tc.want, rec.Body.String())
			}
			if len(m.calls) != tc.calls {
				t.Fatalf("reconcile calls = %d, want %d", len(m.calls), tc.calls)
			}
		})
	}
}

func TestReturnPage_EscapesStatus(t *testing.T) {
	m := &MockReconciler{ReconcileFunc: func(ctx context.Context, id string) (*usecase.ReconcileResult, error) {
		return &usecase.ReconcileResult{Status: "<script>"}, nil
	}}
	rec := serve(t, m, "/payments/return?payment_id=5")
	if strings.Contains(rec.Body.String(), "<script>") {
		t.Fatal("status rendered unescaped")
	}
}

func TestHealth(t *testing.T) {
	m := &MockReconciler{ReconcileFunc: func(context.Context, string) (*usecase.ReconcileResult, error) {
		return nil, errors.New("unused")
	}}
	rec := serve(t, m, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReturnPage_Localized(t *testing.T) {
	m := &MockReconciler{ReconcileFunc: func(ctx context.Context, id string) (*usecase.ReconcileResult, error) {
		return &usecase.ReconcileResult{Status: model.PaymentStatusPending}, nil
	}}
	r := chi.NewRouter()
	api.NewServer(m, "", nopLogger()).Register(r)

	req := httptest.NewRequest(http.MethodGet, "/payments/return?payment_id=9", nil)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Language") != "pt-BR" {
		t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
	}
	if !strings.Contains(rec.Body.String(), "Pagamento pendente") {
		t.Fatalf("body not localized:\n%s", rec.Body.String())
	}
}
