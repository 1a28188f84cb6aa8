package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor masks credentials before log lines reach a sink.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor for bot tokens and common secret shapes.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Bot API URLs embed the token in the path, including file downloads.
			regexp.MustCompile(`(api\.telegram\.org/(?:file/)?bot)[^/\s"]+`),

			// Bare bot tokens
			regexp.MustCompile(`\b\d{8,10}:[a-zA-Z0-9_-]{30,}`),

			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			regexp.MustCompile(`(?i)password["\s:=]+[^\s"]+`),
			regexp.MustCompile(`(?i)token["\s:=]+[a-zA-Z0-9._:-]{20,}`),
			regexp.MustCompile(`(?i)secret["\s:=]+[^\s"]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact masks every match. A pattern with a capture group keeps the
// group and masks the rest of the match.
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		if pattern.NumSubexp() > 0 {
			s = pattern.ReplaceAllString(s, "${1}"+redacted)
		} else {
			s = pattern.ReplaceAllString(s, redacted)
		}
	}
	return s
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers do not see a short write when
// redaction changes the length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
