package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Env        string           `yaml:"env"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Billing    BillingConfig    `yaml:"billing"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string        `yaml:"driver"` // postgres or sqlite
	DSN                    string        `yaml:"dsn"`
	MaxOpenConns           int           `yaml:"max_open_conns"`
	MaxIdleConns           int           `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int           `yaml:"conn_max_lifetime_minutes"`
	TimeoutMillis          int           `yaml:"timeout_ms"`
	Timeout                time.Duration `yaml:"-"`
	LogLevel               string        `yaml:"log_level"` // silent, error, warn, info
}

// BillingConfig holds tax and numbering settings.
type BillingConfig struct {
	TaxRate                string          `yaml:"tax_rate"`
	TaxRateValue           decimal.Decimal `yaml:"-"`
	Timezone               string          `yaml:"timezone"`
	Location               *time.Location  `yaml:"-"`
	SessionCodePrefix      string          `yaml:"session_code_prefix"`
	InvoicePrefix          string          `yaml:"invoice_prefix"`
	PricingCacheTTLSeconds int             `yaml:"pricing_cache_ttl_seconds"`
	PricingCacheTTL        time.Duration   `yaml:"-"`
}

// Load reads the configuration from the given path, overlays values from a
// .env file or the environment, and fills in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment overrides from .env")
	}
	applyEnv(&cfg)

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"APP_ENV":           &cfg.Env,
		"DATABASE_DRIVER":   &cfg.Database.Driver,
		"DATABASE_DSN":      &cfg.Database.DSN,
		"VAPID_PUBLIC_KEY":  &cfg.Push.PublicKey,
		"VAPID_PRIVATE_KEY": &cfg.Push.PrivateKey,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.TimeoutMillis <= 0 {
		cfg.Database.TimeoutMillis = 5000
	}
	cfg.Database.Timeout = time.Duration(cfg.Database.TimeoutMillis) * time.Millisecond
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Billing.TaxRate == "" {
		cfg.Billing.TaxRate = "0.18"
	}
	rate, err := decimal.NewFromString(cfg.Billing.TaxRate)
	if err != nil {
		return fmt.Errorf("billing.tax_rate %q: %w", cfg.Billing.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("billing.tax_rate must be in [0, 1), got %s", rate)
	}
	cfg.Billing.TaxRateValue = rate

	if cfg.Billing.Timezone == "" {
		cfg.Billing.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return fmt.Errorf("billing.timezone %q: %w", cfg.Billing.Timezone, err)
	}
	cfg.Billing.Location = loc

	if cfg.Billing.SessionCodePrefix == "" {
		cfg.Billing.SessionCodePrefix = "SES"
	}
	if cfg.Billing.InvoicePrefix == "" {
		cfg.Billing.InvoicePrefix = "INV"
	}
	if cfg.Billing.PricingCacheTTLSeconds <= 0 {
		cfg.Billing.PricingCacheTTLSeconds = 30
	}
	cfg.Billing.PricingCacheTTL = time.Duration(cfg.Billing.PricingCacheTTLSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = cfg.WorkerPool.Size * 16
	}
	return nil
}
