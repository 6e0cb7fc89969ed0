// Package config provides environment-driven configuration for dashsync.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	APIURL string

	PollEnabled  bool
	PollInterval time.Duration
	PushURL      Secret
	PushSubject  string

	Debounce       time.Duration
	RequestTimeout time.Duration
	WarmupTimeout  time.Duration
	WarmupAttempts int
	WarmupDelay    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration

	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string
	LogFormat   string
}

// Option overrides a configuration value after the environment is read and
// before validation.
type Option func(*Config)

// WithAPIURL overrides DASH_API_URL. An empty url keeps the environment value.
func WithAPIURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.APIURL = strings.TrimRight(url, "/")
		}
	}
}

// Load reads configuration from environment variables with sensible defaults,
// applies opts, then validates the result.
func Load(opts ...Option) (*Config, error) {
	cfg := &Config{
		APIURL:      strings.TrimRight(envOrDefault("DASH_API_URL", "http://localhost:5000/api"), "/"),
		PollEnabled: envOrDefault("DASH_POLL_ENABLED", "false") == "true",
		PushURL:     Secret(envOrDefault("DASH_PUSH_URL", "")),
		PushSubject: envOrDefault("DASH_PUSH_SUBJECT", "dashboard.data"),
		Port:        envOrDefault("PORT", "3040"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "text"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"DASH_POLL_INTERVAL", "30s", &cfg.PollInterval},
		{"DASH_DEBOUNCE", "300ms", &cfg.Debounce},
		{"DASH_REQUEST_TIMEOUT", "15s", &cfg.RequestTimeout},
		{"DASH_WARMUP_TIMEOUT", "3s", &cfg.WarmupTimeout},
		{"DASH_WARMUP_DELAY", "1s", &cfg.WarmupDelay},
		{"DASH_RETRY_BASE_DELAY", "500ms", &cfg.RetryBaseDelay},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(envOrDefault(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s must be a duration (e.g. 300ms, 15s): %w", d.key, err)
		}
		*d.dst = v
	}

	attempts, err := strconv.Atoi(envOrDefault("DASH_WARMUP_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("DASH_WARMUP_ATTEMPTS must be an integer: %w", err)
	}
	cfg.WarmupAttempts = attempts

	retries, err := strconv.Atoi(envOrDefault("DASH_MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("DASH_MAX_RETRIES must be an integer: %w", err)
	}
	cfg.MaxRetries = retries

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	for _, o := range opts {
		o(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// PushEnabled reports whether a push source is configured.
func (c *Config) PushEnabled() bool {
	return c.PushURL.Value() != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
