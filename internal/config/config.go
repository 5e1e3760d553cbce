package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN  string
	MongoURI     string
	RedisAddr    string
	RabbitURL    string
	ListenAddr   string
	OTLPEndpoint string

	// HoldTTL bounds every hold; the reaper reclaims anything older.
	HoldTTL time.Duration
	// ReaperPeriod is the sweep interval, independent of HoldTTL.
	ReaperPeriod time.Duration
	// SessionTTL is how long a session may go without a heartbeat
	// before the janitor treats it as disconnected.
	SessionTTL time.Duration
	// TaxRateBps is the sales tax applied at commit, in basis points.
	TaxRateBps int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		ListenAddr:   envOr("LISTEN_ADDR", ":8080"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		HoldTTL:      durationOr("HOLD_TTL", 5*time.Minute),
		ReaperPeriod: durationOr("REAPER_PERIOD", 30*time.Second),
		SessionTTL:   durationOr("SESSION_TTL", 90*time.Second),
		TaxRateBps:   intOr("TAX_RATE_BPS", 900),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func intOr(key string, def int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return def
	}
	return n
}
