package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456789:ABCdefGHIjklMNOpqrsTUVwxyz-1234567"

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Telegram.BotToken = testToken
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 60, cfg.Telegram.DeliveryTimeoutSeconds)
	assert.Equal(t, 2, cfg.Conversion.Workers)
	assert.Equal(t, "wkhtmltopdf", cfg.Conversion.HTMLEngine)
	assert.Equal(t, "@every 30m", cfg.Conversion.JanitorSchedule)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
	assert.False(t, cfg.Metrics.Enabled)

	assert.Equal(t, time.Minute, cfg.DeliveryTimeout())
	assert.Equal(t, 2*time.Minute, cfg.ToolTimeout())
	assert.Equal(t, 2*time.Hour, cfg.JanitorMaxAge())
	assert.Equal(t, 3*time.Second, cfg.QueueNotice())
	assert.Equal(t, int64(20*1024*1024), cfg.MaxDownloadBytes())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }, "bot token is required"},
		{"malformed token", func(c *Config) { c.Telegram.BotToken = "not-a-token" }, "invalid Telegram bot token"},
		{"bad engine", func(c *Config) { c.Conversion.HTMLEngine = "prince" }, "invalid html engine"},
		{"zero workers", func(c *Config) { c.Conversion.Workers = 0 }, "workers must be at least 1"},
		{"bad schedule", func(c *Config) { c.Conversion.JanitorSchedule = "every now and then" }, "invalid janitor schedule"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"debug without dir", func(c *Config) { c.Conversion.DebugMode = true }, "debug_dir is required"},
		{"bad allowlist", func(c *Config) { c.Telegram.Allowlist = []int64{5, -1} }, "invalid user id -1"},
		{"bad metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "nope" }, "invalid metrics address"},
		{"zero delivery timeout", func(c *Config) { c.Telegram.DeliveryTimeoutSeconds = 0 }, "delivery_timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Conversion.Workers = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "log level")
}

func TestValidateConversion_IgnoresToken(t *testing.T) {
	cfg := DefaultConfig()

	assert.NoError(t, cfg.ValidateConversion())
	assert.Error(t, cfg.Validate())
}

func TestString_MasksToken(t *testing.T) {
	s := validConfig().String()

	assert.Contains(t, s, `"bot_token": "123456789:***"`)
	assert.False(t, strings.Contains(s, "ABCdef"))
}

func TestValidateSchedule(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateSchedule(""))
	assert.NoError(t, v.ValidateSchedule("@every 30m"))
	assert.NoError(t, v.ValidateSchedule("*/15 * * * *"))
	assert.Error(t, v.ValidateSchedule("* * *"))
}

func TestDispatcherConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Conversion.WorkDir = "/tmp/work"
	cfg.Conversion.ToolTimeoutSeconds = 30
	cfg.Conversion.TesseractPath = "/opt/tesseract"

	dc := cfg.DispatcherConfig()
	assert.Equal(t, "/tmp/work", dc.WorkDir)
	assert.Equal(t, 30*time.Second, dc.ToolTimeout)
	assert.Equal(t, "wkhtmltopdf", dc.HTMLEngine)
	assert.Equal(t, "/opt/tesseract", dc.TesseractPath)
}
