package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("PairingTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{PairingTTLSeconds: 600}
		assert.Equal(t, 600*time.Second, cfg.PairingTTL())
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts default TTL", func(t *testing.T) {
		cfg := &Config{PairingTTLSeconds: 600, RedeemRatePerMin: 10}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects non-positive TTL", func(t *testing.T) {
		cfg := &Config{PairingTTLSeconds: 0, RedeemRatePerMin: 10}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects TTL above cap", func(t *testing.T) {
		cfg := &Config{PairingTTLSeconds: 7200, RedeemRatePerMin: 10}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive redeem rate", func(t *testing.T) {
		cfg := &Config{PairingTTLSeconds: 600, RedeemRatePerMin: 0}
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                os.Getenv("PORT"),
		"DATABASE_URL":        os.Getenv("DATABASE_URL"),
		"REDIS_URL":           os.Getenv("REDIS_URL"),
		"PAIRING_TTL_SECONDS": os.Getenv("PAIRING_TTL_SECONDS"),
		"REDEEM_RATE_PER_MIN": os.Getenv("REDEEM_RATE_PER_MIN"),
		"LOG_LEVEL":           os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("PAIRING_TTL_SECONDS")
		os.Unsetenv("REDEEM_RATE_PER_MIN")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 600, cfg.PairingTTLSeconds)
		assert.Equal(t, 10, cfg.RedeemRatePerMin)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("PAIRING_TTL_SECONDS", "300")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 300, cfg.PairingTTLSeconds)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
