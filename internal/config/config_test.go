package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "PROGRESS_BUFFER_TTL", "BACKGROUND_WORKERS", "DB_MAX_OPEN_CONNS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.ProgressBufferTTL)
	assert.Equal(t, 4, cfg.Background.Workers)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("PROGRESS_BUFFER_TTL", "90m")
	t.Setenv("BACKGROUND_WORKERS", "12")
	t.Setenv("BACKGROUND_QUEUE_SIZE", "-3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "soon")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, 90*time.Minute, cfg.ProgressBufferTTL)
	assert.Equal(t, 12, cfg.Background.Workers)
	// Invalid values fall back to defaults.
	assert.Equal(t, 256, cfg.Background.QueueSize)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.GetKafkaBrokers())
}

func TestEventConfig_CreateEventPublisher(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	disabled := EventConfig{Enabled: false, Publisher: "kafka"}
	publisher, err := disabled.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.NotNil(t, publisher)
	require.NoError(t, publisher.Close())

	memory := EventConfig{Enabled: true, Publisher: "memory", Topic: "assessment-events"}
	publisher, err = memory.CreateEventPublisher(logger)
	require.NoError(t, err)
	require.NoError(t, publisher.Close())
}
