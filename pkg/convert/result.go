package convert

import (
	"fmt"

	"github.com/harun/doc2pdf/pkg/compression"
)

// Result describes the outcome of one conversion. Success fields and the
// failure fields are never populated together.
type Result struct {
	Success bool

	OutputPath  string
	InputBytes  int64 // sum over inputs for multi-file conversions
	OutputBytes int64
	Format      string // e.g. "JPEG", ".docx", "url"
	Dimensions  string // images only, "WxH"
	Compression compression.Level
	InputCount  int

	ErrorMessage string
	Err          error
}

func succeeded(r Result) Result {
	r.Success = true
	r.ErrorMessage = ""
	r.Err = nil
	if r.InputCount == 0 {
		r.InputCount = 1
	}
	return r
}

func failed(err error) Result {
	return Result{
		Success:      false,
		ErrorMessage: err.Error(),
		Err:          err,
	}
}

// InputSize is the formatted input size.
func (r Result) InputSize() string { return FormatSize(r.InputBytes) }

// TotalInputSize is InputSize under the name used for multi-file results.
func (r Result) TotalInputSize() string { return FormatSize(r.InputBytes) }

func (r Result) OutputSize() string { return FormatSize(r.OutputBytes) }

// MultiFile reports whether the result aggregates several inputs.
func (r Result) MultiFile() bool { return r.InputCount > 1 }

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	size := float64(n) / unit
	for _, suffix := range []string{"KB", "MB", "GB"} {
		if size < unit || suffix == "GB" {
			return fmt.Sprintf("%.1f %s", size, suffix)
		}
		size /= unit
	}
	return fmt.Sprintf("%d B", n)
}
