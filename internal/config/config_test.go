package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StoreDriverRedis, cfg.StoreDriver)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "cart", cfg.SnapshotKey)
	assert.Equal(t, 3*time.Second, cfg.CheckoutDelay)
	assert.Equal(t, 10000, cfg.OrderNumberCeiling)
	assert.Equal(t, 50, cfg.NotificationInboxSize)
	assert.Equal(t, 24*time.Hour, cfg.SessionIdleTimeout)
	assert.Equal(t, time.Duration(0), cfg.CartTTLDuration())
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CHECKOUT_DELAY", "250ms")
	t.Setenv("CART_TTL_HOURS", "72")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.CheckoutDelay)
	assert.Equal(t, 72*time.Hour, cfg.CartTTLDuration())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"port out of range", "STOREFRONT_HTTP_PORT", "0", "invalid HTTP port"},
		{"unknown driver", "STORE_DRIVER", "etcd", "STORE_DRIVER must be"},
		{"negative ttl", "CART_TTL_HOURS", "-1", "CART_TTL_HOURS must not be negative"},
		{"zero ceiling", "ORDER_NUMBER_CEILING", "0", "ORDER_NUMBER_CEILING must be positive"},
		{"zero inbox", "NOTIFICATION_INBOX_SIZE", "0", "NOTIFICATION_INBOX_SIZE must be positive"},
		{"bad webhook", "NOTIFY_WEBHOOK_URL", "not a url", "invalid NOTIFY_WEBHOOK_URL"},
		{"sample rate", "OTEL_SAMPLE_RATE", "2.0", "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"zero burst", "RATE_LIMIT_BURST", "0", "RATE_LIMIT_BURST must be positive"},
		{"bad delay", "CHECKOUT_DELAY", "soon", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
