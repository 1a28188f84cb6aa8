package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputNotFound is returned when an input path does not exist.
	ErrInputNotFound = errors.New("input file not found")

	// ErrUnsupportedFormat is returned when an extension is not handled by the
	// selected converter.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrToolMissing is returned when an external binary cannot be located.
	ErrToolMissing = errors.New("external tool not installed")

	// ErrToolFailed is returned when an external binary exits non-zero or
	// produces no output.
	ErrToolFailed = errors.New("external tool failed")

	// ErrEmptyInput is returned when an operation is called with nothing to do.
	ErrEmptyInput = errors.New("no input files provided")

	// ErrInvalidPageRange is returned when a split range is out of bounds or inverted.
	ErrInvalidPageRange = errors.New("invalid page range")

	// ErrOCRUnavailable is returned when no OCR engine is installed.
	ErrOCRUnavailable = errors.New("OCR is not available")

	// ErrInvalidImage is returned when an image file cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidURL is returned for URLs that may not be rendered.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidLanguage is returned for malformed OCR language codes.
	ErrInvalidLanguage = errors.New("invalid OCR language")
)

// UnsupportedFormatError carries the offending extension and the accepted set.
type UnsupportedFormatError struct {
	Ext       string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s (supported: %s)", e.Ext, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ToolMissingError names a binary that could not be found.
type ToolMissingError struct {
	Tool string
	Hint string
}

func (e *ToolMissingError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s not found. %s", e.Tool, e.Hint)
	}
	return fmt.Sprintf("%s not found", e.Tool)
}

func (e *ToolMissingError) Is(target error) bool {
	return target == ErrToolMissing
}

// ToolError carries the diagnostic output of a failed external tool.
type ToolError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed with exit code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s failed: %s", e.Tool, e.Output)
}

func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}

// PageRangeError identifies the rejected range and the document's real length.
type PageRangeError struct {
	Start      int
	End        int
	TotalPages int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("invalid page range: %d-%d (total pages: %d)", e.Start, e.End, e.TotalPages)
}

func (e *PageRangeError) Is(target error) bool {
	return target == ErrInvalidPageRange
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrInputNotFound, path)
}
