// Package config loads runtime configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store driver names accepted in AQUATRACK_STORE.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port string

	// Store selection. DatabaseURL backs postgres and mongo,
	// SQLitePath backs sqlite.
	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	MongoDBName string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// Billing knobs.
	RateCentsPerUnit     int64
	DueInDays            int
	OverdueSweepInterval time.Duration
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		StoreDriver: fallback(os.Getenv("AQUATRACK_STORE"), DriverMemory),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  fallback(os.Getenv("AQUATRACK_SQLITE_PATH"), "aquatrack.db"),
		MongoDBName: fallback(os.Getenv("AQUATRACK_MONGO_DB"), "aquatrack"),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "aquatrack"),
	}

	cfg.JWTTTL = durationFromMinutes(os.Getenv("JWT_TTL_MINUTES"), 12*time.Hour)
	cfg.RateCentsPerUnit = int64FromEnv(os.Getenv("AQUATRACK_RATE_CENTS"), 15000)
	cfg.DueInDays = int(int64FromEnv(os.Getenv("AQUATRACK_DUE_IN_DAYS"), 30))
	cfg.OverdueSweepInterval = durationFromMinutes(os.Getenv("AQUATRACK_SWEEP_MINUTES"), time.Hour)

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres, DriverMongo:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for the %s store", cfg.StoreDriver)
		}
	default:
		return Config{}, fmt.Errorf("unknown AQUATRACK_STORE %q", cfg.StoreDriver)
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func durationFromMinutes(value string, def time.Duration) time.Duration {
	if minutes, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	return def
}

func int64FromEnv(value string, def int64) int64 {
	if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && n > 0 {
		return n
	}
	return def
}
