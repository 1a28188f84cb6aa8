package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wizard asks for the few settings a new bot needs.
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard reads answers from in and prints prompts to out.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run starts from base (DefaultConfig when nil) and returns the edited copy.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := DefaultConfig()
	if base != nil {
		copied := *base
		cfg = &copied
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== doc2pdf setup ===")
	fmt.Fprintln(w.out)

	for {
		prompt := "Telegram Bot Token"
		if cfg.Telegram.BotToken != "" {
			prompt += " [keep current]"
		}
		fmt.Fprintf(w.out, "%s: ", prompt)
		token, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if token == "" && cfg.Telegram.BotToken != "" {
			break
		}
		if err := validator.ValidateTelegramToken(token); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Telegram.BotToken = token
		break
	}

	fmt.Fprint(w.out, "Allowed user IDs, comma separated (empty allows everyone): ")
	line, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if line != "" {
		ids, err := parseIDs(line)
		if err != nil {
			fmt.Fprintf(w.out, "Warning: %v, allowlist left unchanged\n", err)
		} else {
			cfg.Telegram.Allowlist = ids
		}
	}

	fmt.Fprintf(w.out, "HTML engine (wkhtmltopdf/chromium) [%s]: ", cfg.Conversion.HTMLEngine)
	engine, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if engine != "" {
		if err := validator.ValidateHTMLEngine(engine); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Conversion.HTMLEngine)
		} else {
			cfg.Conversion.HTMLEngine = strings.ToLower(engine)
		}
	}

	fmt.Fprintf(w.out, "Log level (debug/info/warn/error) [%s]: ", cfg.Logging.Level)
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = strings.ToLower(level)
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func parseIDs(line string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readLine accepts a final line without a trailing newline.
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
