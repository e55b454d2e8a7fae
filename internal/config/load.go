package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "PANTOGNOSTIS"

// keys lists every configuration key so that environment variables are honoured
// even when neither a default nor a config file mentions the key.
var keys = []string{
	"server.port",
	"server.log_level",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"auth.refresh_token_lifetime_minutes",
	"auth.bcrypt_cost",
	"auth.code_ttl_minutes",
	"payment.secret_key",
	"payment.base_url",
	"payment.currency",
	"payment.timeout_seconds",
	"email.sendgrid_api_key",
	"email.sendgrid_host",
	"email.from_address",
	"email.from_name",
	"email.support_address",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.rate_limit_per_minute",
	"task.queue_size",
	"task.worker_count",
	"reporting.timezone",
	"scheduler.webinar_reminder_spec",
	"scheduler.reminder_window_hours",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.code_ttl_minutes", 10)
	v.SetDefault("payment.base_url", "https://api.stripe.com")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.timeout_seconds", 15)
	v.SetDefault("email.from_name", "Pantognostis")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.rate_limit_per_minute", 60)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("reporting.timezone", "UTC")
	v.SetDefault("scheduler.webinar_reminder_spec", "@hourly")
	v.SetDefault("scheduler.reminder_window_hours", 24)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct constraints and cross-field rules that tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Email.SendGridAPIKey != "" && c.Email.FromAddress == "" {
		return fmt.Errorf("config validation failed: email.from_address is required with a sendgrid api key")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("config validation failed: reporting.timezone: %w", err)
	}
	return nil
}

// Location returns the reporting time zone. Validate guarantees it resolves.
func (c ReportingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
