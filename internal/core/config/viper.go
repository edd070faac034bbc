package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
// flags maps config keys (e.g. "database.url") to bound command-line flags;
// it may be nil.
func LoadConfig(configPath string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_batch_size", d.Server.MaxBatchSize)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.ttl", d.Cache.TTL.String())
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	// Bind environment variables with GK_ prefix
	v.SetEnvPrefix("GK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxBatchSize:   v.GetInt("server.max_batch_size"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Cache: CacheConfig{
			RedisURL: v.GetString("cache.redis_url"),
			TTL:      v.GetDuration("cache.ttl"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive timeouts and sizes, and enums.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Server.MaxBatchSize)
	}
	if cfg.Cache.RedisURL != "" && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache.redis_url is set, got %v", cfg.Cache.TTL)
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use GK_HMAC_SECRET environment variable)")
	}
	return nil
}
