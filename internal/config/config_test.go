package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "LOG_LEVEL", "PORT", "API_BASE_URL", "API_TIMEOUT", "STORAGE_DRIVER",
		"DB_DSN", "DB_HOST", "DB_NAME", "CART_KEY", "RABBITMQ_URL", "CORS_ALLOW_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.APITimeout)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "carrito", cfg.CartKey)
	assert.Equal(t, "aurum_carrito", cfg.LegacyCartKey)
	assert.Equal(t, "", cfg.RabbitURL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.Contains(t, cfg.DBDSN, "dbname=aurum")
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_TIMEOUT", "15")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "postgres://x")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://aurum.com, http://localhost:5500 ,")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "postgres://x", cfg.DBDSN)
	assert.Equal(t, []string{"https://aurum.com", "http://localhost:5500"}, cfg.CORSAllowOrigins)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Minute, parseDuration("2m", 0))
	assert.Equal(t, 5*time.Second, parseDuration("5", 0))
	assert.Equal(t, time.Second, parseDuration("nada", time.Second))
}
