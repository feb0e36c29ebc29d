package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Server.Store)
	assert.Equal(t, 10*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, RegistryCacheTTL, cfg.Registry.CacheTTL)
	assert.Equal(t, "placeholder", cfg.OCR.Engine)
	assert.False(t, cfg.Registry.SudregConfigured())
	assert.True(t, cfg.Limits.Enabled)
	assert.Equal(t, 20, cfg.Limits.DocumentsPerHour)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUDREG_CLIENT_ID", "id")
	t.Setenv("SUDREG_CLIENT_SECRET", "secret")
	t.Setenv("NOTIFY_KIND", "kafka")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Registry.SudregConfigured())
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Notify.KafkaBrokerList())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"redis store without url", map[string]string{"RECORD_STORE": "redis"}, "REDIS_URL"},
		{"postgres store without dsn", map[string]string{"RECORD_STORE": "postgres"}, "DATABASE_URL"},
		{"unknown store", map[string]string{"RECORD_STORE": "sqlite"}, "unknown RECORD_STORE"},
		{"kafka without brokers", map[string]string{"NOTIFY_KIND": "kafka"}, "KAFKA_BROKERS"},
		{"amqp without url", map[string]string{"NOTIFY_KIND": "amqp"}, "AMQP_URL"},
		{"unknown ocr engine", map[string]string{"OCR_ENGINE": "tesseract"}, "OCR_ENGINE"},
		{"dev key in production", map[string]string{"APP_ENV": "production"}, "JWT_SIGNING_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
