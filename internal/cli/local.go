package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/harun/doc2pdf/internal/logger"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/spf13/cobra"
)

// localLogLevel keeps command output readable unless --log-level is given.
const localLogLevel = "warn"

// runLocal builds a dispatcher from the config and runs fn with a context
// cancelled on SIGINT or SIGTERM.
func runLocal(cmd *cobra.Command, fn func(ctx context.Context, d *convert.Dispatcher) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateConversion(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := localLogLevel
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		level = logLevel
	}
	log, err := logger.New(logger.Config{
		Level:     level,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := convert.NewDispatcher(cfg.DispatcherConfig())
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, d)
}

// siblingPath places a file named after input, with suffix and ext, next to it.
func siblingPath(input, suffix, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+suffix+ext)
}

func printResult(cmd *cobra.Command, verb string, r convert.Result) error {
	if !r.Success {
		return r.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s -> %s)\n", verb, r.OutputPath, r.InputSize(), r.OutputSize())
	return nil
}
