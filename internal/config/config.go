// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	BackendURL  string
	ListenAddr  string
	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. TRACKLINK_BACKEND_URL is required and must be an absolute URL.
// Optional variables with defaults: TRACKLINK_LISTEN_ADDR (127.0.0.1:8080),
// TRACKLINK_HTTP_TIMEOUT (15s).
func Load() (*Config, error) {
	backendURL := os.Getenv("TRACKLINK_BACKEND_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("TRACKLINK_BACKEND_URL is required")
	}
	if u, err := url.Parse(backendURL); err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("TRACKLINK_BACKEND_URL has invalid URL %q", backendURL)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("TRACKLINK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	httpTimeout := 15 * time.Second
	if v, ok := os.LookupEnv("TRACKLINK_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TRACKLINK_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		httpTimeout = parsed
	}

	return &Config{
		BackendURL:  backendURL,
		ListenAddr:  listenAddr,
		HTTPTimeout: httpTimeout,
	}, nil
}
