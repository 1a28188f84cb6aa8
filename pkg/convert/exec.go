package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/harun/doc2pdf/internal/observability"
	"github.com/rs/zerolog/log"
)

// lookPath is swapped in tests to simulate missing binaries.
var lookPath = exec.LookPath

const (
	defaultToolTimeout = 2 * time.Minute
	maxToolOutput      = 2000
)

// tool is an external binary and the hint shown when it is missing.
type tool struct {
	name       string
	configured string
	hint       string
}

// resolve returns the binary path, preferring a configured override.
func (t tool) resolve() (string, error) {
	candidate := t.name
	if t.configured != "" {
		candidate = t.configured
	}
	path, err := lookPath(candidate)
	if err != nil {
		return "", &ToolMissingError{Tool: t.name, Hint: t.hint}
	}
	return path, nil
}

func (t tool) available() bool {
	_, err := t.resolve()
	return err == nil
}

type toolOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// runTool executes an external converter and maps failures onto ToolError.
// A zero timeout uses defaultToolTimeout.
func runTool(ctx context.Context, t tool, timeout time.Duration, dir string, args ...string) (toolOutput, error) {
	bin, err := t.resolve()
	if err != nil {
		return toolOutput{}, err
	}

	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, bin, args...)
	cmd.WaitDelay = 5 * time.Second
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	out := toolOutput{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		observability.RecordToolExecution(t.name, out.Duration, false)
		return out, &ToolError{
			Tool:     t.name,
			ExitCode: -1,
			Output:   fmt.Sprintf("timed out after %s", timeout),
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
		} else {
			out.ExitCode = -1
		}
	}

	log.Debug().
		Str("tool", t.name).
		Strs("args", args).
		Int("exit_code", out.ExitCode).
		Dur("duration", out.Duration).
		Msg("External tool executed")

	if runErr != nil {
		observability.RecordToolExecution(t.name, out.Duration, false)
		diag := diagnostic(out)
		if diag == "" {
			diag = runErr.Error()
		}
		return out, &ToolError{Tool: t.name, ExitCode: out.ExitCode, Output: diag}
	}

	observability.RecordToolExecution(t.name, out.Duration, true)
	return out, nil
}

// diagnostic prefers stderr, falls back to stdout and truncates long output.
func diagnostic(out toolOutput) string {
	msg := strings.TrimSpace(string(out.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(out.Stdout))
	}
	if len(msg) > maxToolOutput {
		msg = msg[len(msg)-maxToolOutput:]
	}
	return msg
}
