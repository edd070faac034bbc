package config

import (
	"os"
	"testing"
	"time"
)

const (
	testSecret      = "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testOtherSecret = "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testDupSecret   = "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func clearSecrets(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GK_HMAC_SECRET", "GK_HMAC_SECRET_1", "GK_HMAC_SECRET_2"} {
		t.Setenv(key, "")
	}
}

func TestHMACSecrets(t *testing.T) {
	t.Run("none configured", func(t *testing.T) {
		clearSecrets(t)
		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected 0 secrets, got %d", len(secrets))
		}
	})

	t.Run("single secret", func(t *testing.T) {
		clearSecrets(t)
		t.Setenv("GK_HMAC_SECRET", testSecret)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		clearSecrets(t)
		t.Setenv("GK_HMAC_SECRET_1", testSecret)
		t.Setenv("GK_HMAC_SECRET_2", testOtherSecret)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("numbering stops at first gap", func(t *testing.T) {
		clearSecrets(t)
		t.Setenv("GK_HMAC_SECRET_2", testOtherSecret)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected 0 secrets, got %d", len(secrets))
		}
	})

	errorCases := []struct {
		name string
		env  map[string]string
	}{
		{"invalid format", map[string]string{"GK_HMAC_SECRET": "invalid_format"}},
		{"invalid secret_id length", map[string]string{"GK_HMAC_SECRET": "short:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"}},
		{"non-hex secret_id", map[string]string{"GK_HMAC_SECRET": "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"}},
		{"duplicate secret_id in numbered secrets", map[string]string{"GK_HMAC_SECRET_1": testSecret, "GK_HMAC_SECRET_2": testDupSecret}},
		{"duplicate secret_id between single and numbered", map[string]string{"GK_HMAC_SECRET": testSecret, "GK_HMAC_SECRET_1": testDupSecret}},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			clearSecrets(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := HMACSecrets(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
		}
		if cfg.Server.Port != 50051 {
			t.Errorf("expected port 50051, got %d", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Server.RequestTimeout)
		}
		if cfg.Server.MaxBatchSize != 1000 {
			t.Errorf("expected max_batch_size 1000, got %d", cfg.Server.MaxBatchSize)
		}
		if cfg.Metrics.Addr != ":9090" {
			t.Errorf("expected metrics addr :9090, got %s", cfg.Metrics.Addr)
		}
		if cfg.Cache.RedisURL != "" {
			t.Errorf("expected cache disabled, got %s", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("expected cache ttl 5m, got %v", cfg.Cache.TTL)
		}
		if cfg.Database.URL != "sqlite://groundskeeper.db" {
			t.Errorf("expected sqlite default, got %s", cfg.Database.URL)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("GK_SERVER_PORT", "9999")
		t.Setenv("GK_SERVER_HOST", "127.0.0.1")
		t.Setenv("GK_CACHE_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("GK_CACHE_TTL", "30s")

		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Server.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
			t.Errorf("expected redis url from env, got %s", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 30*time.Second {
			t.Errorf("expected cache ttl 30s, got %v", cfg.Cache.TTL)
		}
	})

	invalid := []struct {
		name  string
		key   string
		value string
	}{
		{"port above range", "GK_SERVER_PORT", "70000"},
		{"port zero", "GK_SERVER_PORT", "0"},
		{"negative batch size", "GK_SERVER_MAX_BATCH_SIZE", "-1"},
		{"zero request timeout", "GK_SERVER_REQUEST_TIMEOUT", "0s"},
		{"unknown log format", "GK_LOG_FORMAT", "xml"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig("", nil); err == nil {
				t.Errorf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}

	t.Run("cache ttl required with redis", func(t *testing.T) {
		t.Setenv("GK_CACHE_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("GK_CACHE_TTL", "0s")
		if _, err := LoadConfig("", nil); err == nil {
			t.Error("expected error for zero cache ttl")
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/groundskeeper.yaml", nil); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestParseHMACSecret(t *testing.T) {
	t.Run("valid base64", func(t *testing.T) {
		secret, err := ParseHMACSecret("dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecret failed: %v", err)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := ParseHMACSecret("not-valid-base64!!!")
		if err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		_, err := ParseHMACSecret("c2hvcnQ=") // "short" in base64
		if err == nil {
			t.Error("expected error for secret < 32 bytes")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseHMACSecretWithID(testSecret)
		if err != nil {
			t.Fatalf("ParseHMACSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) == 0 {
			t.Error("secret should not be empty")
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef")
		if err == nil {
			t.Error("expected error for missing colon")
		}
	})

	t.Run("invalid secret_id length", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("tooshort:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for short secret_id")
		}
	})

	t.Run("non-hex chars in secret_id", func(t *testing.T) {
		_, _, err := ParseHMACSecretWithID("0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err == nil {
			t.Error("expected error for non-hex secret_id")
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}
