//go:build !integration

package api_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"membership-payments/internal/infra/api"
	"membership-payments/internal/infra/logging"
)

func TestTraceID(t *testing.T) {
	var got string
	h := api.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.TraceID(r.Context())
	}), api.TraceID(nopLogger()))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Request-Id", "gw-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "gw-123" || rec.Header().Get("X-Request-Id") != "gw-123" {
		t.Fatalf("trace id = %q, header = %q", got, rec.Header().Get("X-Request-Id"))
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if len(got) != 36 {
		t.Fatalf("oversized id not replaced: %q", got)
	}
}

func TestRecover(t *testing.T) {
	h := api.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), api.RequestLog(nopLogger()), api.Recover(nopLogger()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	h := api.BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	if readErr == nil {
		t.Fatal("expected body limit error")
	}
}
