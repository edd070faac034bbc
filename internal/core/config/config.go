// Package config provides configuration management for Groundskeeper services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Metrics  MetricsConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Log      LogConfig
}

// ServerConfig holds configuration for the gRPC territory API.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxBatchSize   int
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string
}

// CacheConfig controls the Redis snapshot cache. An empty RedisURL disables it.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// DatabaseConfig selects the store. URL scheme picks the driver.
type DatabaseConfig struct {
	URL string
}

// LogConfig selects logger level and output format (json or text).
type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			RequestTimeout: 30 * time.Second,
			MaxBatchSize:   1000,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			URL: "sqlite://groundskeeper.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports GK_HMAC_SECRET (single) and GK_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are UUIDv7 (32 hex chars without hyphens) matching API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("GK_HMAC_SECRET"); val != "" {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("GK_HMAC_SECRET: %w", err)
		}
		secrets[secretID] = decoded
	}

	// Multiple secrets enable rotation: old and new keys valid during migration
	for i := 1; ; i++ {
		key := fmt.Sprintf("GK_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return nil, fmt.Errorf("duplicate secret_id '%s' found in environment variables (check GK_HMAC_SECRET and GK_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
	}

	return secrets, nil
}

// ParseHMACSecret decodes base64-encoded HMAC secret from environment variable.
func ParseHMACSecret(envValue string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(envValue))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	parts := strings.SplitN(strings.TrimSpace(envValue), ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	secretID = parts[0]
	if len(secretID) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}

	for _, c := range secretID {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = ParseHMACSecret(parts[1])
	if err != nil {
		return "", nil, err
	}

	return secretID, secret, nil
}
