// Package config handles loading and managing application configuration.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Backend REST API configuration
	Backend BackendConfig

	// Browser session settings
	Session SessionConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// BackendConfig holds the external backend API configuration.
// AuthURL may point at a separate auth service; it defaults to BaseURL.
type BackendConfig struct {
	BaseURL string
	AuthURL string
	Timeout time.Duration
}

// SessionConfig holds cookie session configuration.
type SessionConfig struct {
	Secret     string
	CookieName string
	MaxAge     int // seconds
}

// Load reads configuration from environment variables.
// Returns a Config struct with all settings populated.
func Load() *Config {
	backendURL := getEnv("BACKEND_URL", "http://localhost:3001")
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Backend: BackendConfig{
			BaseURL: backendURL,
			AuthURL: getEnv("AUTH_URL", backendURL),
			Timeout: time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			CookieName: getEnv("SESSION_COOKIE", "arquisis_session"),
			MaxAge:     getEnvInt("SESSION_MAX_AGE", 86400*7),
		},
	}
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer with a fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean with a fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
