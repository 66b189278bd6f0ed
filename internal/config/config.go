package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/spf13/viper"
)

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingRedisURL      = errors.New("REDIS_URL is required when WEBHOOK_MODE=processing")
	ErrMissingWebhookSecret = errors.New("CLERK_WEBHOOK_SECRET is required when WEBHOOK_MODE=processing")
)

// Config holds all configuration for the application.
type Config struct {
	Port           string        `mapstructure:"port"`
	DatabaseURL    string        `mapstructure:"database_url"`
	RedisURL       string        `mapstructure:"redis_url"`
	NumWorkers     int           `mapstructure:"num_workers"`
	MigrateOnStart bool          `mapstructure:"migrate_on_start"`
	Webhook        WebhookConfig `mapstructure:"webhook"`
	Log            LogConfig     `mapstructure:"log"`
}

type WebhookConfig struct {
	Mode      domain.WebhookMode `mapstructure:"mode"`
	Secret    string             `mapstructure:"secret"`
	Tolerance time.Duration      `mapstructure:"tolerance"`
	DedupeTTL time.Duration      `mapstructure:"dedupe_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"port":               "PORT",
	"database_url":       "DATABASE_URL",
	"redis_url":          "REDIS_URL",
	"num_workers":        "NUM_WORKERS",
	"migrate_on_start":   "MIGRATE_ON_START",
	"webhook.mode":       "WEBHOOK_MODE",
	"webhook.secret":     "CLERK_WEBHOOK_SECRET",
	"webhook.tolerance":  "WEBHOOK_TOLERANCE",
	"webhook.dedupe_ttl": "WEBHOOK_DEDUPE_TTL",
	"log.level":          "LOG_LEVEL",
	"log.format":         "LOG_FORMAT",
}

// Load reads configuration from environment variables and, when configPath is
// not empty, from a YAML file. Environment variables win over the file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("num_workers", 4)
	v.SetDefault("migrate_on_start", true)
	v.SetDefault("webhook.mode", string(domain.ModeDisabled))
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.tolerance", "5m")
	v.SetDefault("webhook.dedupe_ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the required settings for the selected webhook mode.
func (c *Config) Validate() error {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	if c.DatabaseURL == "" {
		return fmt.Errorf("invalid config: %w", ErrMissingDatabaseURL)
	}

	mode, err := domain.ParseWebhookMode(string(c.Webhook.Mode))
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.Webhook.Mode = mode

	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}

	if mode == domain.ModeProcessing {
		if c.RedisURL == "" {
			return fmt.Errorf("invalid config: %w", ErrMissingRedisURL)
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("invalid config: %w", ErrMissingWebhookSecret)
		}
	}

	return nil
}
