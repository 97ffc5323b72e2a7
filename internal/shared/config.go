package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv          string
	LogLevel        string
	HTTPAddr        string
	MetricsAddr     string
	LedgerDriver    string // mysql|sqlite
	MySQLDSN        string
	SQLitePath      string
	MigrationsDir   string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	CatalogPath     string
	CacheTTL        time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "info"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ""),
		LedgerDriver:    env("LEDGER_DRIVER", "mysql"),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4&loc=UTC"),
		SQLitePath:      env("SQLITE_PATH", "data/hotel.db"),
		MigrationsDir:   env("MIGRATIONS_DIR", "migrations/mysql"),
		RedisAddr:       env("REDIS_ADDR", ""),
		RedisPass:       env("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		CatalogPath:     env("CATALOG_PATH", ""),
		CacheTTL:        time.Duration(atoi("AVAILABILITY_CACHE_TTL_SECONDS", 5)) * time.Second,
		RateLimitRPS:    atof("RATE_LIMIT_RPS", 2),
		RateLimitBurst:  atoi("RATE_LIMIT_BURST", 5),
		RequestTimeout:  time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		ShutdownTimeout: time.Duration(atoi("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty, availability cache disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
