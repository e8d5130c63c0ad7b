package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/crispydelights/storefront/pkg/config"
)

// Store drivers.
const (
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Snapshot store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"redis"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass   string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`

	// Key prefix of the per-session cart snapshot.
	SnapshotKey string `env:"CART_SNAPSHOT_KEY" envDefault:"cart"`

	// Snapshot TTL in hours; 0 keeps snapshots until the cart is emptied.
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"0"`

	// Checkout simulation
	CheckoutDelay      time.Duration `env:"CHECKOUT_DELAY" envDefault:"3s"`
	OrderNumberCeiling int           `env:"ORDER_NUMBER_CEILING" envDefault:"10000"`

	// Notifications
	NotificationInboxSize int    `env:"NOTIFICATION_INBOX_SIZE" envDefault:"50"`
	NotifyWebhookURL      string `env:"NOTIFY_WEBHOOK_URL" envDefault:""`

	// Circuit breaker for the notification webhook
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Sessions not touched for this long are dropped from memory.
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"24h"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Rate limiting per session on the cart API; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StoreDriver {
	case StoreDriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_DRIVER=redis")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverRedis, StoreDriverMemory, c.StoreDriver)
	}
	if c.SnapshotKey == "" {
		return fmt.Errorf("CART_SNAPSHOT_KEY is required")
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("CART_TTL_HOURS must not be negative, got %d", c.CartTTL)
	}
	if c.CheckoutDelay < 0 {
		return fmt.Errorf("CHECKOUT_DELAY must not be negative, got %s", c.CheckoutDelay)
	}
	if c.OrderNumberCeiling < 1 {
		return fmt.Errorf("ORDER_NUMBER_CEILING must be positive, got %d", c.OrderNumberCeiling)
	}
	if c.NotificationInboxSize < 1 {
		return fmt.Errorf("NOTIFICATION_INBOX_SIZE must be positive, got %d", c.NotificationInboxSize)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdleTimeout)
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED=true")
	}
	if c.NotifyWebhookURL != "" {
		if _, err := url.ParseRequestURI(c.NotifyWebhookURL); err != nil {
			return fmt.Errorf("invalid NOTIFY_WEBHOOK_URL %q: %w", c.NotifyWebhookURL, err)
		}
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive when RATE_LIMIT_RPS is set, got %d", c.RateLimitBurst)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// CartTTLDuration returns the snapshot TTL; zero means no expiry.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}
