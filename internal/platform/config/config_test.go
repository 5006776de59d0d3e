package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 300*time.Millisecond, cfg.SignalTimeout)
	assert.InDelta(t, 0.8, cfg.BotThreshold, 1e-9)
	assert.Equal(t, "gatekeeper.audit", cfg.AuditTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.AdmissionDisabled)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GATEKEEPER_ADDR", ":9090")
	t.Setenv("SIGNAL_TIMEOUT", "750ms")
	t.Setenv("BOT_CONFIDENCE_THRESHOLD", "0.95")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("ADMISSION_DISABLED", "true")
	t.Setenv("GUEST_QUOTA", "3/30s")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 750*time.Millisecond, cfg.SignalTimeout)
	assert.InDelta(t, 0.95, cfg.BotThreshold, 1e-9)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.AdmissionDisabled)
	assert.Equal(t, "3/30s", cfg.GuestQuota)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SIGNAL_TIMEOUT", "not-a-duration")
	t.Setenv("BOT_CONFIDENCE_THRESHOLD", "very high")

	cfg := FromEnv()

	assert.Equal(t, 300*time.Millisecond, cfg.SignalTimeout)
	assert.InDelta(t, 0.8, cfg.BotThreshold, 1e-9)
}
