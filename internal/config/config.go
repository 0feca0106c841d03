package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port            string
	DatabaseURL     string
	CORSOrigin      string
	SessionLifetime time.Duration
	CookieSecure    bool
	RedisURL        string
	KafkaBrokers    []string
	KafkaTopic      string
	RateLimitRPS    float64
	RateLimitBurst  int
	Debug           bool

	// CSRFKey signs the CSRF cookie. Nil means the server picks a random
	// key at startup, so tokens do not survive a restart.
	CSRFKey []byte
}

// Load reads the configuration from environment variables, applying
// defaults suitable for local development.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://blog.db"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "*"),
		RedisURL:    os.Getenv("REDIS_URL"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "blog.events"),
	}

	var err error
	if cfg.SessionLifetime, err = time.ParseDuration(getEnv("SESSION_LIFETIME", "24h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_LIFETIME: %w", err)
	}
	if cfg.SessionLifetime <= 0 {
		return nil, fmt.Errorf("invalid SESSION_LIFETIME: must be positive")
	}
	if cfg.CookieSecure, err = strconv.ParseBool(getEnv("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}
	if cfg.Debug, err = strconv.ParseBool(getEnv("DEBUG", "false")); err != nil {
		return nil, fmt.Errorf("invalid DEBUG: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0.3333"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "3")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("rate limit must allow at least one request")
	}

	if raw := os.Getenv("CSRF_KEY"); raw != "" {
		if cfg.CSRFKey, err = hex.DecodeString(raw); err != nil {
			return nil, fmt.Errorf("invalid CSRF_KEY: %w", err)
		}
		if len(cfg.CSRFKey) != 32 {
			return nil, fmt.Errorf("invalid CSRF_KEY: want 32 bytes, got %d", len(cfg.CSRFKey))
		}
	}

	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	return cfg, nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
