// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir     string        // Directory for client_data.db (always absolute)
	APIBaseURL  string        // Versioned root of the backend API, e.g. http://host/api/v1
	APIToken    string        // Optional bearer token forwarded to the backend API
	HTTPTimeout time.Duration // Per-request timeout for backend API calls
	LogLevel    string
	Port        int
	DevMode     bool
}

// TokenSource is anything that can supply a stored API token.
// The client-local key store satisfies it.
type TokenSource interface {
	GetString(key string) (string, bool, error)
}

// APITokenKey is the client-local key holding an API token that overrides the env var.
const APITokenKey = "dashboard_api_token"

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     dataDir,
		APIBaseURL:  strings.TrimRight(getEnv("DASHBOARD_API_URL", "http://localhost:8000/api/v1"), "/"),
		APIToken:    getEnv("DASHBOARD_API_TOKEN", ""),
		HTTPTimeout: time.Duration(getEnvAsInt("DASHBOARD_HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnvAsInt("PORT", 8090),
		DevMode:     getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromStore lets a token saved in the client-local store take precedence
// over the environment. An empty stored value keeps the env value.
func (c *Config) UpdateFromStore(store TokenSource) error {
	token, ok, err := store.GetString(APITokenKey)
	if err != nil {
		return fmt.Errorf("failed to get %s from store: %w", APITokenKey, err)
	}
	if ok && token != "" {
		c.APIToken = token
	}
	return nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid DASHBOARD_API_URL %q", c.APIBaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("DASHBOARD_HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
