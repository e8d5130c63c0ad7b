package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using its
// `env` and `envDefault` tags. Durations use Go syntax ("3s", "24h") and
// slices are comma separated unless the field sets envSeparator.
//
//	type Config struct {
//	    Port          int           `env:"HTTP_PORT" envDefault:"8080"`
//	    CheckoutDelay time.Duration `env:"CHECKOUT_DELAY" envDefault:"3s"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
