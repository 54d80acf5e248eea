package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type Config struct {
	Env      string
	LogLevel zerolog.Level
	Port     string

	// Backend REST (FastAPI). Se resuelve una sola vez al arrancar.
	APIBaseURL string
	APITimeout time.Duration

	StorageDriver string
	StorageDir    string
	DBDSN         string

	CartKey       string
	LegacyCartKey string

	// vacío = sin broadcast entre procesos
	RabbitURL       string
	StorageExchange string

	CORSAllowOrigins []string
}

// Load lee .env si existe y después las variables de entorno.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:      strings.ToLower(getenv("APP_ENV", "development")),
		LogLevel: parseLevel(getenv("LOG_LEVEL", "info")),
		Port:     getenv("PORT", "8080"),

		APIBaseURL: getenv("API_BASE_URL", "http://127.0.0.1:8000/api"),
		APITimeout: parseDuration(getenv("API_TIMEOUT", "0"), 0),

		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", StorageMemory)),
		StorageDir:    getenv("STORAGE_DIR", "data"),
		DBDSN:         dsn(),

		CartKey:       getenv("CART_KEY", "carrito"),
		LegacyCartKey: getenv("LEGACY_CART_KEY", "aurum_carrito"),

		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		StorageExchange: getenv("STORAGE_EXCHANGE", "aurum.storage"),

		CORSAllowOrigins: splitCSV(getenv("CORS_ALLOW_ORIGINS", "*")),
	}
}

func (c Config) IsProduction() bool { return c.Env == "production" || c.Env == "prod" }

func dsn() string {
	if v := strings.TrimSpace(os.Getenv("DB_DSN")); v != "" {
		return v
	}
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", getenv("POSTGRES_USER", "postgres"))
	pass := getenv("DB_PASSWORD", getenv("POSTGRES_PASSWORD", "postgres"))
	name := getenv("DB_NAME", getenv("POSTGRES_DB", "aurum"))
	ssl := getenv("DB_SSLMODE", "disable")
	return "host=" + host + " user=" + user + " password=" + pass + " dbname=" + name + " port=" + port + " sslmode=" + ssl
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// parseDuration acepta "30s" o un número pelado de segundos.
func parseDuration(v string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if d, err := time.ParseDuration(v + "s"); err == nil {
		return d
	}
	return def
}

func parseLevel(v string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
