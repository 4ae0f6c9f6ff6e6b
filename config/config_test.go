package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "log", cfg.Mail.Driver)
	assert.Equal(t, "0 7 * * *", cfg.Reports.DailyCron)
	assert.Equal(t, "0 8 * * 1", cfg.Reports.WeeklyCron)
	assert.Equal(t, 4, cfg.Reports.SendConcurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.ChangePollInterval)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 300, cfg.APIRateLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "bad driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "http mail without key", env: map[string]string{"MAIL_DRIVER": "http"}},
		{name: "smtp without host", env: map[string]string{"MAIL_DRIVER": "smtp"}},
		{name: "bad metrics", env: map[string]string{"REPORT_METRICS": "magic"}},
		{name: "bad interval", env: map[string]string{"CHANGE_POLL_INTERVAL": "soon"}},
		{name: "zero concurrency", env: map[string]string{"REPORT_SEND_CONCURRENCY": "0"}},
		{name: "admin email without password", env: map[string]string{"ADMIN_EMAIL": "a@x.com"}},
		{name: "negative rate limit", env: map[string]string{"API_RATE_LIMIT": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
