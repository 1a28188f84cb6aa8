package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

var configDirOnce sync.Once

// NewPDFConfig returns a pdfcpu configuration that never touches the
// user's config directory.
func NewPDFConfig() *model.Configuration {
	configDirOnce.Do(api.DisableConfigDir)
	return model.NewDefaultConfiguration()
}

// PageRange is a 1-based inclusive page span.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParsePageRanges accepts "1-3", "5" and comma separated lists of either,
// spread over any number of arguments.
func ParsePageRanges(args []string) ([]PageRange, error) {
	var ranges []PageRange
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			r, err := parsePageRange(part)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, r)
		}
	}
	return ranges, nil
}

func parsePageRange(s string) (PageRange, error) {
	startStr, endStr, isSpan := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return PageRange{}, fmt.Errorf("%w: %q", ErrInvalidPageRange, s)
	}
	end := start
	if isSpan {
		end, err = strconv.Atoi(strings.TrimSpace(endStr))
		if err != nil {
			return PageRange{}, fmt.Errorf("%w: %q", ErrInvalidPageRange, s)
		}
	}
	return PageRange{Start: start, End: end}, nil
}

// PDFTools wraps pdfcpu for page-level operations. pdfcpu mutates the
// configuration it is handed, so every call gets a fresh one.
type PDFTools struct{}

func NewPDFTools() *PDFTools {
	return &PDFTools{}
}

func (t *PDFTools) PageCount(path string) (int, error) {
	if err := requireFile(path); err != nil {
		return 0, err
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count of %s: %w", path, err)
	}
	return n, nil
}

// Merge concatenates the pages of inputs, in order, into output.
func (t *PDFTools) Merge(inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: nothing to merge", ErrEmptyInput)
	}
	for _, in := range inputs {
		if err := requireFile(in); err != nil {
			return err
		}
	}

	if err := api.MergeCreateFile(inputs, output, false, NewPDFConfig()); err != nil {
		os.Remove(output)
		return fmt.Errorf("merge failed: %w", err)
	}

	log.Debug().Int("inputs", len(inputs)).Str("output", output).Msg("PDFs merged")
	return nil
}

// Split writes one file per page when ranges is empty, named
// <prefix>_page_<n>.pdf, and one file per range otherwise, named
// <prefix>_<start>-<end>.pdf. Every range is validated before anything is
// written, and a failed write removes the outputs of this call.
func (t *PDFTools) Split(input string, ranges []PageRange, prefix string) ([]string, error) {
	total, err := t.PageCount(input)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = filepath.Join(filepath.Dir(input), baseName(input))
	}

	type job struct {
		pages string
		out   string
	}
	var jobs []job

	if len(ranges) == 0 {
		for i := 1; i <= total; i++ {
			jobs = append(jobs, job{
				pages: strconv.Itoa(i),
				out:   fmt.Sprintf("%s_page_%d.pdf", prefix, i),
			})
		}
	} else {
		for _, r := range ranges {
			if r.Start < 1 || r.End > total || r.Start > r.End {
				return nil, &PageRangeError{Start: r.Start, End: r.End, TotalPages: total}
			}
			jobs = append(jobs, job{
				pages: r.String(),
				out:   fmt.Sprintf("%s_%d-%d.pdf", prefix, r.Start, r.End),
			})
		}
	}

	outputs := make([]string, 0, len(jobs))
	for _, j := range jobs {
		if err := api.TrimFile(input, j.out, []string{j.pages}, NewPDFConfig()); err != nil {
			os.Remove(j.out)
			for _, written := range outputs {
				os.Remove(written)
			}
			return nil, fmt.Errorf("failed to extract pages %s: %w", j.pages, err)
		}
		outputs = append(outputs, j.out)
	}

	log.Debug().Str("input", input).Int("outputs", len(outputs)).Msg("PDF split")
	return outputs, nil
}

// Compress rewrites input with optimized streams. An empty output defaults to
// <name>_compressed.pdf next to input.
func (t *PDFTools) Compress(input, output string) (string, error) {
	if err := requireFile(input); err != nil {
		return "", err
	}
	if output == "" {
		output = filepath.Join(filepath.Dir(input), baseName(input)+"_compressed.pdf")
	}

	if err := api.OptimizeFile(input, output, NewPDFConfig()); err != nil {
		os.Remove(output)
		return "", fmt.Errorf("compression failed: %w", err)
	}
	return output, nil
}
