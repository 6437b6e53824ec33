package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Billing   BillingConfig
	Support   SupportConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
	// Bearer token required on the scheduled-trigger endpoints.
	SchedulerToken string
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled            bool
	SweepInterval      time.Duration // how often the billing sweep runs
	ReconciliationHour int           // hour of day (UTC) for the reconciliation run
	OverdueCheckHour   int           // hour of day (UTC) for the overdue invoice check
	JobTimeout         time.Duration
}

// BillingConfig holds tariff and metering configuration
type BillingConfig struct {
	FreeTierCredit     float64       // complimentary credit ceiling for new accounts, in BRL
	ChargeGracePeriod  time.Duration // evaluated sessions younger than this are left to the next sweep
	SweepBatchSize     int           // max unbilled sessions processed per sweep run
	OrphanMatchWindow  time.Duration // how far around a charge timestamp to look for a matching session
	InvoiceDueInterval time.Duration // time between closing an invoice and its due date
}

// SupportConfig holds the support ticket escalation endpoint settings
type SupportConfig struct {
	WebhookURL string
	Token      string
	Timeout    time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ENTREVISTIA_ prefix (e.g., ENTREVISTIA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("ENTREVISTIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			SchedulerToken: v.GetString("http.scheduler_token"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			SweepInterval:      v.GetDuration("scheduler.sweep_interval"),
			ReconciliationHour: v.GetInt("scheduler.reconciliation_hour"),
			OverdueCheckHour:   v.GetInt("scheduler.overdue_check_hour"),
			JobTimeout:         v.GetDuration("scheduler.job_timeout"),
		},
		Billing: BillingConfig{
			FreeTierCredit:     v.GetFloat64("billing.free_tier_credit"),
			ChargeGracePeriod:  v.GetDuration("billing.charge_grace_period"),
			SweepBatchSize:     v.GetInt("billing.sweep_batch_size"),
			OrphanMatchWindow:  v.GetDuration("billing.orphan_match_window"),
			InvoiceDueInterval: v.GetDuration("billing.invoice_due_interval"),
		},
		Support: SupportConfig{
			WebhookURL: v.GetString("support.webhook_url"),
			Token:      v.GetString("support.token"),
			Timeout:    v.GetDuration("support.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in default values for unset configuration
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "entrevistia-billing"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "entrevistia_billing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Scheduler.SweepInterval == 0 {
		cfg.Scheduler.SweepInterval = 5 * time.Minute
	}
	if cfg.Scheduler.ReconciliationHour == 0 {
		cfg.Scheduler.ReconciliationHour = 3
	}
	if cfg.Scheduler.OverdueCheckHour == 0 {
		cfg.Scheduler.OverdueCheckHour = 4
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Billing.FreeTierCredit == 0 {
		cfg.Billing.FreeTierCredit = 50.00
	}
	if cfg.Billing.ChargeGracePeriod == 0 {
		cfg.Billing.ChargeGracePeriod = 15 * time.Minute
	}
	if cfg.Billing.SweepBatchSize == 0 {
		cfg.Billing.SweepBatchSize = 50
	}
	if cfg.Billing.OrphanMatchWindow == 0 {
		cfg.Billing.OrphanMatchWindow = 24 * time.Hour
	}
	if cfg.Billing.InvoiceDueInterval == 0 {
		cfg.Billing.InvoiceDueInterval = 10 * 24 * time.Hour
	}
	if cfg.Support.Timeout == 0 {
		cfg.Support.Timeout = 10 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Scheduler.ReconciliationHour < 0 || c.Scheduler.ReconciliationHour > 23 {
		return fmt.Errorf("scheduler.reconciliation_hour must be between 0 and 23")
	}
	if c.Scheduler.OverdueCheckHour < 0 || c.Scheduler.OverdueCheckHour > 23 {
		return fmt.Errorf("scheduler.overdue_check_hour must be between 0 and 23")
	}
	if c.Billing.FreeTierCredit < 0 {
		return fmt.Errorf("billing.free_tier_credit cannot be negative")
	}
	if c.Billing.SweepBatchSize <= 0 {
		return fmt.Errorf("billing.sweep_batch_size must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.HTTP.SchedulerToken == "" {
			return fmt.Errorf("http.scheduler_token is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
