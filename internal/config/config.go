package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Webhooks  WebhookConfig   `yaml:"webhooks"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GetHost returns the bind host, defaulting to localhost.
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "localhost"
	}
	return s.Host
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the Redis connection string.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// WebhookConfig holds inbound webhook authentication settings.
//
// DiscountSecretHeaders lists the header names accepted for the discount
// redemption secret. Two names are kept during the x-pepf → x-referlabs
// naming migration; retire the old one by removing it from config.
type WebhookConfig struct {
	DiscountSecret        string   `yaml:"discount_secret"`
	DiscountSecretHeaders []string `yaml:"discount_secret_headers"`
	TwilioToken           string   `yaml:"twilio_token"`
	ResendToken           string   `yaml:"resend_token"`
}

// RateLimitConfig holds fixed-window limits per endpoint class.
type RateLimitConfig struct {
	RedeemPerMinute   int `yaml:"redeem_per_minute"`
	DeliveryPerMinute int `yaml:"delivery_per_minute"`
	LinkPerMinute     int `yaml:"link_per_minute"`
}

// RewardsConfig holds settlement extension points.
type RewardsConfig struct {
	// CreditLedger enables the append-only credit ledger, written in
	// addition to (never instead of) the balance mutation.
	CreditLedger bool `yaml:"credit_ledger"`
}

// NotifyConfig holds reward-notification settings. Notification failures
// never roll back a settled credit.
type NotifyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	FromEmail string `yaml:"from_email"`
	SESRegion string `yaml:"ses_region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if len(c.Webhooks.DiscountSecretHeaders) == 0 {
		c.Webhooks.DiscountSecretHeaders = []string{
			"x-referlabs-discount-secret",
			"x-pepf-discount-secret",
		}
	}
	if c.RateLimit.RedeemPerMinute == 0 {
		c.RateLimit.RedeemPerMinute = 120
	}
	if c.RateLimit.DeliveryPerMinute == 0 {
		c.RateLimit.DeliveryPerMinute = 600
	}
	if c.RateLimit.LinkPerMinute == 0 {
		c.RateLimit.LinkPerMinute = 300
	}
	if c.Notify.SESRegion == "" {
		c.Notify.SESRegion = "us-west-2"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
// If the YAML file is missing, env vars alone are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if v := os.Getenv("DISCOUNT_WEBHOOK_SECRET"); v != "" {
		cfg.Webhooks.DiscountSecret = v
	}
	if v := os.Getenv("DISCOUNT_SECRET_HEADERS"); v != "" {
		cfg.Webhooks.DiscountSecretHeaders = splitCSV(v)
	}
	if v := os.Getenv("TWILIO_WEBHOOK_TOKEN"); v != "" {
		cfg.Webhooks.TwilioToken = v
	}
	if v := os.Getenv("RESEND_WEBHOOK_TOKEN"); v != "" {
		cfg.Webhooks.ResendToken = v
	}
	if v := os.Getenv("CREDIT_LEDGER_ENABLED"); v == "true" || v == "1" {
		cfg.Rewards.CreditLedger = true
	}
	if v := os.Getenv("NOTIFY_FROM_EMAIL"); v != "" {
		cfg.Notify.FromEmail = v
		cfg.Notify.Enabled = true
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notify.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notify.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Notify.SESRegion = v
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
