// Package config centralizes how the service reads environment variables and
// exposes them as strongly typed Go values.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config represents runtime configuration for the service. Empty DatabaseURL
// selects the in-memory stores; empty S3Endpoint keeps image records in the
// primary store; empty JWTSecret disables request authentication; empty
// NotifyEndpoint disables the push fan-out.
type Config struct {
	Address        string
	MaxBodyBytes   int64
	DatabaseURL    string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool
	S3Region       string
	S3Bucket       string
	JWTSecret      []byte
	NotifyEndpoint string
	LogLevel       slog.Level
}

const (
	defaultAddress = ":8080"
	// Base64 inflates the photo by a third; 12 MiB of body comfortably fits
	// the largest camera output the upstream system submits.
	defaultMaxBodyBytes = 12 << 20
	defaultS3Bucket     = "badge-thumbnails"
)

// Load reads configuration from environment variables falling back to
// defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:        readEnv("CONBADGE_ADDRESS", defaultAddress),
		MaxBodyBytes:   parseInt64("CONBADGE_MAX_BODY_BYTES", defaultMaxBodyBytes),
		DatabaseURL:    readEnv("CONBADGE_DATABASE_URL", ""),
		S3Endpoint:     readEnv("CONBADGE_S3_ENDPOINT", ""),
		S3AccessKey:    readEnv("CONBADGE_S3_ACCESS_KEY", ""),
		S3SecretKey:    readEnv("CONBADGE_S3_SECRET_KEY", ""),
		S3UseSSL:       parseBool("CONBADGE_S3_USE_SSL", false),
		S3Region:       readEnv("CONBADGE_S3_REGION", ""),
		S3Bucket:       readEnv("CONBADGE_S3_BUCKET", defaultS3Bucket),
		JWTSecret:      parseSecret("CONBADGE_JWT_SECRET"),
		NotifyEndpoint: readEnv("CONBADGE_NOTIFY_ENDPOINT", ""),
		LogLevel:       parseLevel("CONBADGE_LOG_LEVEL", slog.LevelInfo),
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return cfg, nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func parseLevel(key string, def slog.Level) slog.Level {
	switch strings.ToLower(readEnv(key, "")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}
