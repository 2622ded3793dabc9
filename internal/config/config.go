// Package config loads service settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPAddr       string
	StoreDriver    string
	PostgresURL    string
	RedisAddr      string
	KafkaBrokers   []string
	OrderTopic     string
	WorkerGroup    string
	IdentityURL    string
	IdentityAPIKey string
	OTelEnabled    bool
	ServiceName    string
	ServiceVersion string
	RequestTimeout time.Duration
}

// Load reads the environment. Missing values fall back to defaults suitable
// for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		StoreDriver:    getenv("STORE_DRIVER", DriverPostgres),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   splitCSV(os.Getenv("KAFKA_BROKERS")),
		OrderTopic:     getenv("ORDER_EVENTS_TOPIC", "order.events"),
		WorkerGroup:    getenv("WORKER_GROUP", "order-processor"),
		IdentityURL:    strings.TrimRight(os.Getenv("IDENTITY_URL"), "/"),
		IdentityAPIKey: os.Getenv("IDENTITY_API_KEY"),
		ServiceName:    getenv("SERVICE_NAME", "storefront-api"),
		ServiceVersion: getenv("SERVICE_VERSION", "dev"),
	}

	var err error
	if cfg.OTelEnabled, err = parseBool("OTEL_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return Config{}, fmt.Errorf("POSTGRES_URL is required when STORE_DRIVER is %s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", k, err)
	}
	return b, nil
}

func parseDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", k, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
