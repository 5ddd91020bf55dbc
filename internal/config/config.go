package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process-wide settings loaded once at startup. The signing
// secret is mandatory: a process without it must not come up.
type Config struct {
	HTTPAddr      string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	AuthSecret    string
	TokenIssuer   string
	TokenTTL      time.Duration
	RateBurst     int
	RatePerSec    int
	MaxBodyBytes  int64
}

var errMissingSecret = errors.New("config: HAILWAY_AUTH_SECRET is not set")

// Load reads configuration from the environment. It returns an error when the
// auth secret is absent; everything else has a usable default.
func Load() (Config, error) {
	secret := strings.TrimSpace(os.Getenv("HAILWAY_AUTH_SECRET"))
	if secret == "" {
		return Config{}, errMissingSecret
	}
	return Config{
		HTTPAddr:      getenv("HAILWAY_HTTP_ADDR", ":8080"),
		DatabaseDSN:   getenv("HAILWAY_PG_DSN", ""),
		RedisAddr:     getenv("HAILWAY_REDIS_ADDR", ""),
		RedisPassword: getenv("HAILWAY_REDIS_PASSWORD", ""),
		AuthSecret:    secret,
		TokenIssuer:   getenv("HAILWAY_TOKEN_ISSUER", "hailway"),
		TokenTTL:      getenvDuration("HAILWAY_TOKEN_TTL", 24*time.Hour),
		RateBurst:     getenvInt("HAILWAY_RATE_BURST", 20),
		RatePerSec:    getenvInt("HAILWAY_RATE_PER_SEC", 10),
		MaxBodyBytes:  int64(getenvInt("HAILWAY_MAX_BODY_BYTES", 1<<20)),
	}, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
