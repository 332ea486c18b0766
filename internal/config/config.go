// Package config loads the small JSON document that carries the
// coordination plane's semi-static, list-shaped settings: CORS allowed
// origins, the bootstrap api key list, the rate-limit table, and the
// request-size cap (spec §6/§9). This is deliberately separate from
// internal/container.Options, which carries operational knobs (ports,
// DSNs, cadences) from the environment via humacli — this document is
// read once from disk at startup and passed explicitly into the
// constructors that need it, never held as a package-level global.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RateLimitRule is one (max requests, window) rule for a named scope.
type RateLimitRule struct {
	MaxRequests   int64 `json:"max_requests"`
	WindowSeconds int64 `json:"window_seconds"`
}

// Window converts WindowSeconds to a time.Duration.
func (r RateLimitRule) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// BootstrapAPIKey is one api key to seed into the key repository at
// startup, specified by its raw (unhashed) value.
type BootstrapAPIKey struct {
	RawKey    string     `json:"raw_key"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Config is the decoded form of the JSON startup document.
type Config struct {
	CORSAllowedOrigins []string                 `json:"cors_allowed_origins"`
	SizeCapBytes       int64                    `json:"size_cap_bytes"`
	RateLimitTable     map[string]RateLimitRule `json:"rate_limit_table"`
	APIKeys            []BootstrapAPIKey        `json:"api_keys"`
}

// Load reads and parses the config document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config json: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in fallback document used when no config file
// path is configured, mirroring the defaults previously hardcoded in
// container.Options so an operator can start the process with zero files
// on disk and tighten it later via a real document.
func Default() *Config {
	return &Config{
		CORSAllowedOrigins: []string{"*"},
		SizeCapBytes:       10 * 1024 * 1024,
		RateLimitTable: map[string]RateLimitRule{
			"global": {MaxRequests: 1_000_000, WindowSeconds: 86400},
			"read":   {MaxRequests: 100_000, WindowSeconds: 60},
		},
	}
}
