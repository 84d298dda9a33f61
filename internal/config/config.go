// Package config handles payverify configuration loading and validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/clinicdesk/payverify/internal/signature"
)

// knownWeakSecrets is a blocklist of secrets that must never be used in production.
var knownWeakSecrets = map[string]bool{
	"changeme": true,
	"secret":   true,
	"test":     true,
}

// GenerateRandomSecret returns a cryptographically random 64-character hex string
// suitable for use as a JWT secret.
func GenerateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Razorpay  RazorpayConfig  `json:"razorpay"`
	Auth      AuthConfig      `json:"auth,omitempty"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty"`
}

// ServerConfig defines the listener settings.
type ServerConfig struct {
	Addr           string   `json:"addr"`                      // e.g. ":8080"
	TLSCert        string   `json:"tls_cert,omitempty"`
	TLSKey         string   `json:"tls_key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // CORS origins; default ["*"]
	MaxBodyBytes   int64    `json:"max_body_bytes,omitempty"`  // default 64KB
	ShutdownGrace  Duration `json:"shutdown_grace,omitempty"`  // default 30s
	TrustProxy     bool     `json:"trust_proxy,omitempty"`     // honor X-Forwarded-For / X-Real-IP; only behind a proxy that sets them
}

// RazorpayConfig holds the gateway signing secret. When KeySecret is empty the
// secret is read from SecretEnv (default RAZORPAY_KEY_SECRET) on every request.
type RazorpayConfig struct {
	KeySecret string `json:"key_secret,omitempty"`
	SecretEnv string `json:"secret_env,omitempty"`
}

// AuthConfig defines the admin API token settings. The admin API is disabled
// when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret string   `json:"jwt_secret,omitempty"`
	JWTExpiry Duration `json:"jwt_expiry,omitempty"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Driver         string   `json:"driver"`                    // "none" (default), "sqlite" or "postgres"
	DSN            string   `json:"dsn,omitempty"`             // e.g. "payverify.db" or ":memory:"
	AuditRetention Duration `json:"audit_retention,omitempty"` // default 30 days
}

// Enabled reports whether a persistent store is configured.
func (s StorageConfig) Enabled() bool {
	return s.Driver != "" && s.Driver != "none"
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // "json" or "text"
}

// RateLimitConfig defines per-IP rate limiting of the verify endpoint.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"` // default 5
	Burst             int     `json:"burst,omitempty"`               // default 20
}

// Duration is a JSON-friendly time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns a config with every default applied, used when no config
// file exists.
func Default() *Config {
	cfg := &Config{Server: ServerConfig{Addr: ":8080"}}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOptional behaves like Load but falls back to Default when the file does
// not exist. Used for the implicit default path only.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// SecretSource returns where the verifier gets the signing secret: the
// config file value when set, otherwise the environment on every request.
func (c *Config) SecretSource() signature.SecretSource {
	if c.Razorpay.KeySecret != "" {
		return signature.Static(c.Razorpay.KeySecret)
	}
	return signature.Env(c.Razorpay.SecretEnv)
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Storage.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be one of none, sqlite, postgres (got %q)", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for postgres")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if knownWeakSecrets[c.Razorpay.KeySecret] {
		return fmt.Errorf("razorpay.key_secret is a well-known weak secret")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("server.tls_cert and server.tls_key must be set together")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 64 * 1024 // 64KB
	}
	if c.Server.ShutdownGrace.Duration == 0 {
		c.Server.ShutdownGrace.Duration = 30 * time.Second
	}
	if c.Razorpay.SecretEnv == "" {
		c.Razorpay.SecretEnv = signature.DefaultEnvKey
	}
	if c.Auth.JWTExpiry.Duration == 0 {
		c.Auth.JWTExpiry.Duration = 24 * time.Hour
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "none"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = "payverify.db"
	}
	if c.Storage.AuditRetention.Duration == 0 {
		c.Storage.AuditRetention.Duration = 30 * 24 * time.Hour // 30 days
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}
