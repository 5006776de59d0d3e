// Package config builds process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	LogLevel string

	// AdmissionDisabled switches the gate off entirely (demo/testing).
	AdmissionDisabled bool

	// JWTSigningKey verifies role claims issued by the upstream identity
	// service.
	JWTSigningKey string

	// Detection service endpoints. Empty endpoints select the built-in
	// heuristics (bot) or a no-op (shield).
	BotEndpoint    string
	ShieldEndpoint string
	DetectorAPIKey string
	SignalTimeout  time.Duration
	BotThreshold   float64

	// RedisURL selects the shared window store; empty means in-memory.
	RedisURL string

	// Kafka audit sink; empty brokers keep the in-memory publisher.
	KafkaBrokers []string
	AuditTopic   string

	// Per-role quota overrides as "count/window", e.g. "5/1m".
	GuestQuota string
	UserQuota  string
	AdminQuota string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("GATEKEEPER_ADDR", ":8080"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		BotEndpoint:    os.Getenv("BOT_DETECTOR_URL"),
		ShieldEndpoint: os.Getenv("SHIELD_DETECTOR_URL"),
		DetectorAPIKey: os.Getenv("DETECTOR_API_KEY"),
		SignalTimeout:  durationOr("SIGNAL_TIMEOUT", 300*time.Millisecond),
		BotThreshold:   floatOr("BOT_CONFIDENCE_THRESHOLD", 0.8),
		RedisURL:       os.Getenv("REDIS_URL"),
		AuditTopic:     envOr("AUDIT_TOPIC", "gatekeeper.audit"),
		GuestQuota:     os.Getenv("GUEST_QUOTA"),
		UserQuota:      os.Getenv("USER_QUOTA"),
		AdminQuota:     os.Getenv("ADMIN_QUOTA"),
	}

	cfg.AdmissionDisabled = os.Getenv("ADMISSION_DISABLED") == "true"

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func floatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
