package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token is required (set telegram.bot_token or TELEGRAM_BOT_TOKEN)")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateLogLevel validates a log level
func (v *Validator) ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "", "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be: trace, debug, info, warn, error)", level)
}

// ValidateHTMLEngine validates the HTML renderer name.
func (v *Validator) ValidateHTMLEngine(engine string) error {
	switch strings.ToLower(engine) {
	case "", "wkhtmltopdf", "chromium":
		return nil
	}
	return fmt.Errorf("invalid html engine: %s (must be: wkhtmltopdf, chromium)", engine)
}

// ValidateSchedule checks a cron spec the way the janitor will parse it.
func (v *Validator) ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}
	return nil
}

// ValidateAddr checks a host:port listen address.
func (v *Validator) ValidateAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid metrics address %q: %w", addr, err)
	}
	return nil
}

// ValidateConfig returns every problem found, not just the first.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateHTMLEngine(cfg.Conversion.HTMLEngine); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateSchedule(cfg.Conversion.JanitorSchedule); err != nil {
		errs = append(errs, err)
	}
	if cfg.Conversion.Workers < 1 {
		errs = append(errs, fmt.Errorf("conversion.workers must be at least 1, got %d", cfg.Conversion.Workers))
	}
	if cfg.Conversion.ToolTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("conversion.tool_timeout_seconds cannot be negative"))
	}
	if cfg.Conversion.JanitorMaxAgeMinutes < 0 {
		errs = append(errs, fmt.Errorf("conversion.janitor_max_age_minutes cannot be negative"))
	}
	if cfg.Conversion.DebugMode && cfg.Conversion.DebugDir == "" {
		errs = append(errs, fmt.Errorf("conversion.debug_dir is required when debug_mode is on"))
	}
	if cfg.Telegram.DeliveryTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("telegram.delivery_timeout_seconds must be at least 1"))
	}
	if cfg.Telegram.MaxDownloadMB < 1 {
		errs = append(errs, fmt.Errorf("telegram.max_download_mb must be at least 1"))
	}
	if cfg.Telegram.SendRatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("telegram.send_rate_per_second cannot be negative"))
	}
	for _, id := range cfg.Telegram.Allowlist {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("telegram.allowlist contains invalid user id %d", id))
		}
	}
	if cfg.Metrics.Enabled {
		if err := v.ValidateAddr(cfg.Metrics.Addr); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}
