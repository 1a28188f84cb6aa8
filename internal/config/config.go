package config

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/harun/doc2pdf/pkg/convert"
)

// Config represents the main doc2pdf configuration
type Config struct {
	Telegram   TelegramConfig   `json:"telegram" mapstructure:"telegram"`
	Conversion ConversionConfig `json:"conversion" mapstructure:"conversion"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" mapstructure:"metrics"`

	// DataDir holds logs, the audit trail and the default work dir.
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken               string  `json:"bot_token" mapstructure:"bot_token"`
	Allowlist              []int64 `json:"allowlist" mapstructure:"allowlist"` // empty allows everyone
	DeliveryTimeoutSeconds int     `json:"delivery_timeout_seconds" mapstructure:"delivery_timeout_seconds"`
	MaxDownloadMB          int     `json:"max_download_mb" mapstructure:"max_download_mb"`
	SendRatePerSecond      float64 `json:"send_rate_per_second" mapstructure:"send_rate_per_second"`
	QueueNoticeSeconds     int     `json:"queue_notice_seconds" mapstructure:"queue_notice_seconds"`
}

// ConversionConfig controls the dispatcher and its external tools.
type ConversionConfig struct {
	WorkDir              string `json:"work_dir" mapstructure:"work_dir"`
	DebugMode            bool   `json:"debug_mode" mapstructure:"debug_mode"`
	DebugDir             string `json:"debug_dir" mapstructure:"debug_dir"`
	Workers              int    `json:"workers" mapstructure:"workers"`
	ToolTimeoutSeconds   int    `json:"tool_timeout_seconds" mapstructure:"tool_timeout_seconds"`
	HTMLEngine           string `json:"html_engine" mapstructure:"html_engine"` // wkhtmltopdf, chromium
	AllowLocalURLs       bool   `json:"allow_local_urls" mapstructure:"allow_local_urls"`
	SofficePath          string `json:"soffice_path" mapstructure:"soffice_path"`
	WkhtmltopdfPath      string `json:"wkhtmltopdf_path" mapstructure:"wkhtmltopdf_path"`
	ChromiumPath         string `json:"chromium_path" mapstructure:"chromium_path"`
	TesseractPath        string `json:"tesseract_path" mapstructure:"tesseract_path"`
	OCRmyPDFPath         string `json:"ocrmypdf_path" mapstructure:"ocrmypdf_path"`
	JanitorSchedule      string `json:"janitor_schedule" mapstructure:"janitor_schedule"`
	JanitorMaxAgeMinutes int    `json:"janitor_max_age_minutes" mapstructure:"janitor_max_age_minutes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			DeliveryTimeoutSeconds: 60,
			MaxDownloadMB:          20,
			SendRatePerSecond:      25,
			QueueNoticeSeconds:     3,
		},
		Conversion: ConversionConfig{
			Workers:              2,
			ToolTimeoutSeconds:   120,
			HTMLEngine:           "wkhtmltopdf",
			JanitorSchedule:      "@every 30m",
			JanitorMaxAgeMinutes: 120,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			MaxSize:   50,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// String returns a JSON representation of the config with the token masked.
func (c *Config) String() string {
	masked := *c
	if masked.Telegram.BotToken != "" {
		masked.Telegram.BotToken = maskToken(masked.Telegram.BotToken)
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func maskToken(token string) string {
	if i := strings.IndexByte(token, ':'); i > 0 {
		return token[:i] + ":***"
	}
	return "***"
}

// DeliveryTimeout is the upload bound for one artifact.
func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.Telegram.DeliveryTimeoutSeconds) * time.Second
}

func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Conversion.ToolTimeoutSeconds) * time.Second
}

func (c *Config) JanitorMaxAge() time.Duration {
	return time.Duration(c.Conversion.JanitorMaxAgeMinutes) * time.Minute
}

func (c *Config) QueueNotice() time.Duration {
	return time.Duration(c.Telegram.QueueNoticeSeconds) * time.Second
}

// DispatcherConfig maps the conversion section onto the dispatcher.
func (c *Config) DispatcherConfig() convert.Config {
	conv := c.Conversion
	return convert.Config{
		WorkDir:         conv.WorkDir,
		ToolTimeout:     c.ToolTimeout(),
		HTMLEngine:      conv.HTMLEngine,
		SofficePath:     conv.SofficePath,
		WkhtmltopdfPath: conv.WkhtmltopdfPath,
		ChromiumPath:    conv.ChromiumPath,
		TesseractPath:   conv.TesseractPath,
		OCRmyPDFPath:    conv.OCRmyPDFPath,
		AllowLocalURLs:  conv.AllowLocalURLs,
	}
}

// MaxDownloadBytes is the largest file the bot will fetch.
func (c *Config) MaxDownloadBytes() int64 {
	return int64(c.Telegram.MaxDownloadMB) * 1024 * 1024
}

// Validate checks the settings needed to run the bot. Local CLI commands
// only need ValidateConversion.
func (c *Config) Validate() error {
	v := NewValidator()
	errs := v.ValidateConfig(c)
	if err := v.ValidateTelegramToken(c.Telegram.BotToken); err != nil {
		errs = append([]error{err}, errs...)
	}
	return errors.Join(errs...)
}

// ValidateConversion checks everything except Telegram credentials.
func (c *Config) ValidateConversion() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
