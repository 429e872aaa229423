//go:build !integration

package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"membership-payments/internal/infra/api"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func TestAuthenticator_Middleware(t *testing.T) {
	auth := api.NewAuthenticator("secret", nopLogger())

	var seen *api.Claims
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = api.ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := auth.Mint("u1", api.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, _ := auth.Mint("u1", "", -time.Minute)
	noSubject, _ := auth.Mint("", "", time.Hour)
	foreign, _ := api.NewAuthenticator("other", nopLogger()).Mint("u1", "", time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic " + valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized},
		{"other secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"alg none", "Bearer " + none, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status == http.StatusNoContent && (seen == nil || seen.Subject != "u1" || !seen.IsAdmin()) {
				t.Fatalf("claims not propagated: %+v", seen)
			}
		})
	}
}

func TestAuthenticator_EmptySecretRejectsEverything(t *testing.T) {
	auth := api.NewAuthenticator("", nopLogger())
	tok, _ := api.NewAuthenticator("", nopLogger()).Mint("u1", "", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	if _, err := auth.ParseFromRequest(req); err == nil {
		t.Fatal("expected error with empty secret")
	}
}

func TestAdminKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		name   string
		key    string
		header string
		status int
	}{
		{"match", "k", "Bearer k", http.StatusOK},
		{"mismatch", "k", "Bearer x", http.StatusForbidden},
		{"missing header", "k", "", http.StatusUnauthorized},
		{"not configured", "", "Bearer ", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			api.AdminKey(tc.key, nopLogger())(ok).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}
