//go:build !integration

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"membership-payments/internal/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("auth:\n  jwt_secret: x\n"), false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Payment.Gateway.Provider != "mercadopago" || cfg.Payment.Gateway.Currency != "BRL" {
		t.Errorf("gateway defaults = %+v", cfg.Payment.Gateway)
	}
	if cfg.Payment.LedgerWriteTimeout != 10*time.Second {
		t.Errorf("ledger write timeout = %v", cfg.Payment.LedgerWriteTimeout)
	}
	if cfg.Membership.Period != 30*24*time.Hour {
		t.Errorf("period = %v", cfg.Membership.Period)
	}
	if cfg.Repair.Enabled {
		t.Error("repair sweep must be opt-in")
	}
	if cfg.Redis.TTL != 30*time.Second {
		t.Errorf("lock ttl = %v", cfg.Redis.TTL)
	}
	if cfg.NotificationURL() != "" {
		t.Errorf("notification url without public base = %q", cfg.NotificationURL())
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("MP_TOKEN", "APP_USR-123")
	doc := `
server:
  public_base_url: https://pay.example.com/
auth:
  jwt_secret: x
payment:
  gateway:
    access_token: ${MP_TOKEN}
    timeout: 2s
`
	cfg, err := config.Parse([]byte(doc), false)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Payment.Gateway.AccessToken != "APP_USR-123" {
		t.Errorf("token = %q", cfg.Payment.Gateway.AccessToken)
	}
	if cfg.Payment.Gateway.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Payment.Gateway.Timeout)
	}
	if got := cfg.NotificationURL(); got != "https://pay.example.com/api/v1/webhooks/payments" {
		t.Errorf("notification url = %q", got)
	}
	if got := cfg.ReturnURL(); got != "https://pay.example.com/payments/return" {
		t.Errorf("return url = %q", got)
	}
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]struct {
		doc string
		dev bool
		msg string
	}{
		"unknown provider":  {"auth: {jwt_secret: x}\npayment: {gateway: {provider: paypal}}", false, "not supported"},
		"noop outside dev":  {"auth: {jwt_secret: x}\npayment: {gateway: {provider: noop}}", false, "only allowed"},
		"missing jwt":       {"server: {addr: ':1'}", false, "jwt_secret"},
		"relative base url": {"auth: {jwt_secret: x}\nserver: {public_base_url: pay.example.com}", false, "absolute"},
		"bad webhook path":  {"auth: {jwt_secret: x}\npayment: {gateway: {webhook_path: hooks}}", false, "must start"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(tc.doc), tc.dev)
			if err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}

	if _, err := config.Parse([]byte("payment: {gateway: {provider: noop}}"), true); err != nil {
		t.Fatalf("noop in dev: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: x\nrepair:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Repair.Enabled || cfg.Repair.BatchSize != 200 {
		t.Errorf("repair = %+v", cfg.Repair)
	}
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Fatal("expected error for missing file")
	}
}
