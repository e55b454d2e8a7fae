package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Payment   PaymentConfig   `mapstructure:"payment"   validate:"required"`
	Email     EmailConfig     `mapstructure:"email"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Task      TaskConfig      `mapstructure:"task"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lte=1440"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	// CodeTTLMinutes bounds the lifetime of e-mailed verification and reset codes.
	CodeTTLMinutes int `mapstructure:"code_ttl_minutes" validate:"gt=0"`
}

// PaymentConfig configures the payment gateway client.
type PaymentConfig struct {
	SecretKey      string `mapstructure:"secret_key"      validate:"required"`
	BaseURL        string `mapstructure:"base_url"        validate:"required,url"`
	Currency       string `mapstructure:"currency"        validate:"required,len=3,lowercase"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
}

// EmailConfig configures outgoing e-mail. An empty API key selects the logging mailer.
type EmailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	SendGridHost   string `mapstructure:"sendgrid_host"    validate:"omitempty,url"`
	FromAddress    string `mapstructure:"from_address"     validate:"omitempty,email"`
	FromName       string `mapstructure:"from_name"`
	// SupportAddress receives contact form messages. Empty falls back to FromAddress.
	SupportAddress string `mapstructure:"support_address"  validate:"omitempty,email"`
}

// SupportInbox returns the address support requests are sent to.
func (c EmailConfig) SupportInbox() string {
	if c.SupportAddress != "" {
		return c.SupportAddress
	}
	return c.FromAddress
}

// RedisConfig configures the optional Redis connection. An empty Addr disables
// rate limiting and keeps one-time codes in process memory.
type RedisConfig struct {
	Addr               string `mapstructure:"addr"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db"                    validate:"gte=0"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
}

// TaskConfig sizes the background e-mail queue.
type TaskConfig struct {
	QueueSize   int `mapstructure:"queue_size"   validate:"gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
}

// ReportingConfig controls how sales statistics are bucketed.
type ReportingConfig struct {
	// Timezone is an IANA location name used for day and month boundaries.
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// SchedulerConfig configures periodic jobs.
type SchedulerConfig struct {
	WebinarReminderSpec string `mapstructure:"webinar_reminder_spec" validate:"required"`
	ReminderWindowHours int    `mapstructure:"reminder_window_hours" validate:"gt=0"`
}
