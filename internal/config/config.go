// Package config loads runtime configuration from the environment.
// cmd/server loads a .env file first (via godotenv), so every setting
// can come from either source.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pilothq/sessiondock/internal/engine"
)

// Environment variable names.
const (
	EnvAPIKey      = "BROWSERBASE_API_KEY"
	EnvProjectID   = "BROWSERBASE_PROJECT_ID"
	EnvAPIURL      = "BROWSERBASE_API_URL"
	EnvUserAgent   = "SESSIONDOCK_USER_AGENT"
	EnvCookies     = "SESSIONDOCK_COOKIES"
	EnvListenAddr  = "SESSIONDOCK_ADDR"
	EnvMaxSessions = "SESSIONDOCK_MAX_SESSIONS"
)

const (
	defaultAPIURL      = "https://api.browserbase.com"
	defaultListenAddr  = ":8080"
	defaultMaxSessions = 10
)

// Config carries everything session creation and the HTTP surface need.
type Config struct {
	// APIKey and ProjectID are the provisioning credentials. Both are
	// required before any session can be created; their absence is a
	// creation-time error, not a startup error, so the server can come
	// up and report the problem per request.
	APIKey    string
	ProjectID string

	// APIURL is the provisioning service base URL.
	APIURL string

	// UserAgent, when set, is applied to every new session via header
	// and init-script overrides.
	UserAgent string

	// Cookies are injected into each new session's browsing context,
	// best effort.
	Cookies []engine.Cookie

	ListenAddr  string
	MaxSessions int64
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:      os.Getenv(EnvAPIKey),
		ProjectID:   os.Getenv(EnvProjectID),
		APIURL:      envOr(EnvAPIURL, defaultAPIURL),
		UserAgent:   os.Getenv(EnvUserAgent),
		ListenAddr:  envOr(EnvListenAddr, defaultListenAddr),
		MaxSessions: defaultMaxSessions,
	}

	if raw := os.Getenv(EnvCookies); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Cookies); err != nil {
			return nil, fmt.Errorf("%s is not a valid cookie array: %w", EnvCookies, err)
		}
	}

	if raw := os.Getenv(EnvMaxSessions); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", EnvMaxSessions, raw)
		}
		cfg.MaxSessions = n
	}

	return cfg, nil
}

// HasCredentials reports whether the provisioning credentials are set.
func (c *Config) HasCredentials() bool {
	return c.APIKey != "" && c.ProjectID != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
