package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appDir       = ".doc2pdf"
	configFile   = "doc2pdf.json"
	envPrefix    = "DOC2PDF"
	tokenEnv     = "TELEGRAM_BOT_TOKEN"
	debugModeEnv = "DEBUG_MODE"
	logLevelEnv  = "LOG_LEVEL"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFiles   []string
}

// NewLoader creates a new config loader. envFiles are read with godotenv
// before the environment is consulted; missing ones are ignored.
func NewLoader(configPath string, envFiles ...string) *Loader {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &Loader{
		configPath: configPath,
		envFiles:   envFiles,
	}
}

// Load merges defaults, the JSON file (if present) and the environment.
// DOC2PDF_SECTION_KEY variables override file values; TELEGRAM_BOT_TOKEN,
// DEBUG_MODE and LOG_LEVEL are honored for compatibility.
func (l *Loader) Load() (*Config, error) {
	for _, f := range l.envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	configPath, err := l.path()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyCompatEnv(cfg)

	if err := fillPaths(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// bindEnvKeys registers every key so AutomaticEnv can override values that
// are absent from the file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"data_dir",
		"telegram.bot_token", "telegram.delivery_timeout_seconds", "telegram.max_download_mb",
		"telegram.send_rate_per_second", "telegram.queue_notice_seconds",
		"conversion.work_dir", "conversion.debug_mode", "conversion.debug_dir", "conversion.workers",
		"conversion.tool_timeout_seconds", "conversion.html_engine", "conversion.allow_local_urls",
		"conversion.soffice_path", "conversion.wkhtmltopdf_path", "conversion.chromium_path",
		"conversion.tesseract_path", "conversion.ocrmypdf_path",
		"conversion.janitor_schedule", "conversion.janitor_max_age_minutes",
		"logging.level", "logging.file", "logging.pretty", "logging.redaction", "logging.audit_file",
		"metrics.enabled", "metrics.addr",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func applyCompatEnv(cfg *Config) {
	if token := os.Getenv(tokenEnv); token != "" && cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = token
	}
	if raw := os.Getenv(debugModeEnv); raw != "" {
		if on, err := strconv.ParseBool(raw); err == nil {
			cfg.Conversion.DebugMode = on
		}
	}
	if level := os.Getenv(logLevelEnv); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
}

func fillPaths(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, appDir)
	}
	if cfg.Conversion.WorkDir == "" {
		cfg.Conversion.WorkDir = filepath.Join(cfg.DataDir, "work")
	}
	if cfg.Conversion.DebugMode && cfg.Conversion.DebugDir == "" {
		cfg.Conversion.DebugDir = filepath.Join(cfg.DataDir, "debug")
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "doc2pdf.log")
	}
	if cfg.Logging.AuditFile == "" {
		cfg.Logging.AuditFile = filepath.Join(cfg.DataDir, "audit.log")
	}
	return nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("telegram", cfg.Telegram)
	v.Set("conversion", cfg.Conversion)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// The file holds the bot token.
	return os.Chmod(configPath, 0600)
}

func (l *Loader) path() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, appDir, configFile), nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	p, _ := l.path()
	return p
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
