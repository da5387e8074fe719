package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port              int    `env:"PORT" envDefault:"8080"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	RedisURL          string `env:"REDIS_URL,required"`
	PairingTTLSeconds int    `env:"PAIRING_TTL_SECONDS" envDefault:"600"`
	RedeemRatePerMin  int    `env:"REDEEM_RATE_PER_MIN" envDefault:"10"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
}

// PairingTTL is the lifetime of an issued pairing token. Callers may request
// a shorter one but never longer than MaxPairingTTL.
func (c *Config) PairingTTL() time.Duration {
	return time.Duration(c.PairingTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.PairingTTLSeconds <= 0 {
		return fmt.Errorf("PAIRING_TTL_SECONDS must be positive")
	}
	if c.PairingTTL() > MaxPairingTTL {
		return fmt.Errorf("PAIRING_TTL_SECONDS must not exceed %d", int(MaxPairingTTL.Seconds()))
	}
	if c.RedeemRatePerMin <= 0 {
		return fmt.Errorf("REDEEM_RATE_PER_MIN must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
