package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxRetriesLimit = 10

func (c *Config) validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validatePush(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateLogging(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateBackend() error {
	apiURL, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("DASH_API_URL is not a valid URL: %w", err)
	}

	if apiURL.Scheme != "http" && apiURL.Scheme != "https" {
		return fmt.Errorf("DASH_API_URL scheme must be http:// or https://")
	}

	if apiURL.Host == "" {
		return fmt.Errorf("DASH_API_URL must include a host")
	}

	if apiURL.RawQuery != "" || apiURL.Fragment != "" {
		return fmt.Errorf("DASH_API_URL must not carry a query or fragment")
	}

	return nil
}

func (c *Config) validateSync() error {
	positive := map[string]int64{
		"DASH_DEBOUNCE":         int64(c.Debounce),
		"DASH_REQUEST_TIMEOUT":  int64(c.RequestTimeout),
		"DASH_WARMUP_TIMEOUT":   int64(c.WarmupTimeout),
		"DASH_WARMUP_DELAY":     int64(c.WarmupDelay),
		"DASH_RETRY_BASE_DELAY": int64(c.RetryBaseDelay),
		"DASH_POLL_INTERVAL":    int64(c.PollInterval),
	}
	for key, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if c.WarmupAttempts < 1 {
		return fmt.Errorf("DASH_WARMUP_ATTEMPTS must be at least 1")
	}

	if c.MaxRetries < 0 || c.MaxRetries > maxRetriesLimit {
		return fmt.Errorf("DASH_MAX_RETRIES must be between 0 and %d", maxRetriesLimit)
	}

	return nil
}

func (c *Config) validatePush() error {
	if !c.PushEnabled() {
		return nil
	}

	if c.PollEnabled {
		return fmt.Errorf("DASH_POLL_ENABLED and DASH_PUSH_URL are mutually exclusive")
	}

	u, err := url.Parse(c.PushURL.Value())
	if err != nil {
		// The parse error echoes the URL, which may carry credentials.
		return fmt.Errorf("DASH_PUSH_URL is not a valid URL")
	}

	switch u.Scheme {
	case "ws", "wss":
	case "nats":
		if c.PushSubject == "" {
			return fmt.Errorf("DASH_PUSH_SUBJECT is required for nats:// push URLs")
		}
	default:
		return fmt.Errorf("DASH_PUSH_URL scheme must be ws://, wss:// or nats://, got %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("DASH_PUSH_URL must include a host")
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local use; 0.0.0.0/:: for containers.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateLogging() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got %q", c.LogFormat)
	}

	return nil
}
