// Package config loads application configuration from environment
// variables. Required variables halt startup when missing; tunables
// with sensible defaults fall back silently.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	JWTSecret     string // secret used to verify access tokens
	WebhookSecret string // shared secret for payment webhook signatures
	AMQPURL       string // broker URL; empty disables event publishing

	// LockTTL is how long a seat hold lives before passive expiry.
	LockTTL time.Duration
	// CutoffWindow is the lead time before showtime after which new
	// reservations are refused.
	CutoffWindow time.Duration
	// AmountTolerance is the epsilon for matching paid against
	// expected amounts.
	AmountTolerance float64
	// ConfirmMarkerTTL is how long confirmation idempotency markers
	// are kept.
	ConfirmMarkerTTL time.Duration
	// ReconcilerInterval is how often the expiry sweep runs.
	ReconcilerInterval time.Duration
}

// Load reads configuration from the environment. Missing required
// variables cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		WebhookSecret: must("WEBHOOK_SECRET"),
		AMQPURL:       os.Getenv("AMQP_URL"),

		LockTTL:            envDur("BOOKING_LOCK_TTL", 5*time.Minute),
		CutoffWindow:       envDur("BOOKING_CUTOFF", 90*time.Minute),
		AmountTolerance:    envFloat("AMOUNT_TOLERANCE", 0.01),
		ConfirmMarkerTTL:   envDur("CONFIRM_MARKER_TTL", time.Hour),
		ReconcilerInterval: envDur("RECONCILER_INTERVAL", time.Minute),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
