package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Escrow   EscrowConfig   `mapstructure:"escrow"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the peer address is the client IP.
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// WebhookConfig controls inbound gateway webhook handling.
type WebhookConfig struct {
	// Secret is the gateway's webhook signing secret. Empty means unverified mode,
	// which is only allowed when AllowUnverified is set.
	Secret          string        `mapstructure:"secret"`
	AllowUnverified bool          `mapstructure:"allow_unverified"`
	DedupTTL        time.Duration `mapstructure:"dedup_ttl"`
	// RateLimit is requests per window per client IP. The gateway delivers from
	// a handful of addresses, so keep it well above its burst rate.
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
}

// Verified reports whether webhook signatures are checked.
func (w WebhookConfig) Verified() bool {
	return w.Secret != ""
}

type EscrowConfig struct {
	// PlatformFeePercent is applied to the gross amount when an escrow row carries no fee.
	PlatformFeePercent float64 `mapstructure:"platform_fee_percent"`
	Currency           string  `mapstructure:"currency"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // empty: events are only logged
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether escrow events go to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ESCROW_.
// Nested keys use underscore: ESCROW_DATABASE_HOST, ESCROW_WEBHOOK_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "campaign_escrow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.allow_unverified", false)
	v.SetDefault("webhook.dedup_ttl", "72h")
	v.SetDefault("webhook.rate_limit", 1200)
	v.SetDefault("webhook.rate_window", "1m")
	v.SetDefault("escrow.platform_fee_percent", 10.0)
	v.SetDefault("escrow.currency", "INR")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "escrow.events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: ESCROW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("ESCROW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// ESCROW_KAFKA_BROKERS arrives as one comma-separated string.
	cfg.Kafka.Brokers = splitList(strings.Join(cfg.Kafka.Brokers, ","))
	cfg.Server.TrustedProxies = splitList(strings.Join(cfg.Server.TrustedProxies, ","))

	return &cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Webhook.Secret == "" && !c.Webhook.AllowUnverified {
		errs = append(errs, errors.New("webhook.secret is empty; set webhook.allow_unverified to run without signature checks"))
	}
	if c.Escrow.PlatformFeePercent < 0 || c.Escrow.PlatformFeePercent > 100 {
		errs = append(errs, fmt.Errorf("escrow.platform_fee_percent must be within [0, 100], got %v", c.Escrow.PlatformFeePercent))
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p))
			}
		}
	}
	if c.Webhook.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("webhook.rate_limit must not be negative, got %d", c.Webhook.RateLimit))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when kafka.brokers is set"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
