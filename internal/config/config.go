package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	PublicBaseURL   string        `yaml:"public_base_url"` // externally reachable origin, used for gateway callbacks
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// DatabaseConfig: an empty URL runs the service on in-memory stores.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig: an empty URL falls back to in-process locks and disables rate limiting.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // reconcile lock ttl
}

type GatewayConfig struct {
	Provider            string        `yaml:"provider"` // mercadopago|noop
	AccessToken         string        `yaml:"access_token"`
	BaseURL             string        `yaml:"base_url"`
	Currency            string        `yaml:"currency"`
	StatementDescriptor string        `yaml:"statement_descriptor"`
	Timeout             time.Duration `yaml:"timeout"`
	WebhookPath         string        `yaml:"webhook_path"`
	WebhookSecret       string        `yaml:"webhook_secret"`
	SignatureMaxAge     time.Duration `yaml:"signature_max_age"`
	ReturnPath          string        `yaml:"return_path"`
}

type PaymentConfig struct {
	Gateway            GatewayConfig `yaml:"gateway"`
	LedgerWriteTimeout time.Duration `yaml:"ledger_write_timeout"`
}

type MembershipConfig struct {
	Period         time.Duration `yaml:"period"`
	ExpiryInterval time.Duration `yaml:"expiry_interval"` // how often lapsed memberships are deactivated
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type RateLimitConfig struct {
	CheckoutPerMinute int `yaml:"checkout_per_minute"` // 0 disables
}

type RepairConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Lookback   time.Duration `yaml:"lookback"`
	BatchSize  int           `yaml:"batch_size"`
}

type NotifyConfig struct {
	TelegramToken string  `yaml:"telegram_token"` // empty logs notices instead
	AdminChatIDs  []int64 `yaml:"admin_chat_ids"`
	Workers       int     `yaml:"workers"`
	Queue         int     `yaml:"queue"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payment    PaymentConfig    `yaml:"payment"`
	Membership MembershipConfig `yaml:"membership"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Repair     RepairConfig     `yaml:"repair"`
	Notify     NotifyConfig     `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads -config and -dev from the command line and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads a YAML file, expanding ${VAR} references from the environment.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	g := &cfg.Payment.Gateway
	if g.Provider == "" {
		g.Provider = "mercadopago"
	}
	if g.Timeout <= 0 {
		g.Timeout = 5 * time.Second
	}
	if g.Currency == "" {
		g.Currency = "BRL"
	}
	if g.WebhookPath == "" {
		g.WebhookPath = "/api/v1/webhooks/payments"
	}
	if g.ReturnPath == "" {
		g.ReturnPath = "/payments/return"
	}
	if cfg.Payment.LedgerWriteTimeout <= 0 {
		cfg.Payment.LedgerWriteTimeout = 10 * time.Second
	}
	if cfg.Membership.Period <= 0 {
		cfg.Membership.Period = 30 * 24 * time.Hour
	}
	if cfg.Membership.ExpiryInterval <= 0 {
		cfg.Membership.ExpiryInterval = time.Minute
	}
	if cfg.Repair.Interval <= 0 {
		cfg.Repair.Interval = 5 * time.Minute
	}
	if cfg.Repair.StaleAfter <= 0 {
		cfg.Repair.StaleAfter = 10 * time.Minute
	}
	if cfg.Repair.Lookback <= 0 {
		cfg.Repair.Lookback = 7 * 24 * time.Hour
	}
	if cfg.Repair.BatchSize <= 0 {
		cfg.Repair.BatchSize = 200
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 2
	}
	if cfg.Notify.Queue <= 0 {
		cfg.Notify.Queue = 128
	}
}

// Minimal validation. A missing gateway token is allowed: the service starts and
// answers 503 on checkout until it is configured.
func (cfg *Config) validate() error {
	switch cfg.Payment.Gateway.Provider {
	case "mercadopago", "noop":
	default:
		return fmt.Errorf("payment.gateway.provider %q is not supported", cfg.Payment.Gateway.Provider)
	}
	if cfg.Payment.Gateway.Provider == "noop" && !cfg.Runtime.Dev {
		return errors.New("payment.gateway.provider noop is only allowed with -dev")
	}
	if cfg.Auth.JWTSecret == "" && !cfg.Runtime.Dev {
		return errors.New("auth.jwt_secret is required")
	}
	if cfg.Server.PublicBaseURL != "" {
		u, err := url.Parse(cfg.Server.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.public_base_url %q is not an absolute url", cfg.Server.PublicBaseURL)
		}
	}
	if !strings.HasPrefix(cfg.Payment.Gateway.WebhookPath, "/") {
		return errors.New("payment.gateway.webhook_path must start with /")
	}
	return nil
}

// NotificationURL is the webhook address handed to the gateway, empty when no public origin is set.
func (cfg *Config) NotificationURL() string {
	return cfg.publicURL(cfg.Payment.Gateway.WebhookPath)
}

func (cfg *Config) ReturnURL() string {
	return cfg.publicURL(cfg.Payment.Gateway.ReturnPath)
}

func (cfg *Config) publicURL(path string) string {
	if cfg.Server.PublicBaseURL == "" {
		return ""
	}
	return strings.TrimRight(cfg.Server.PublicBaseURL, "/") + path
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
