package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// DocumentConverter drives LibreOffice in headless mode.
type DocumentConverter struct {
	soffice tool
	workDir string
	timeout time.Duration
}

func NewDocumentConverter(sofficePath, workDir string, timeout time.Duration) *DocumentConverter {
	return &DocumentConverter{
		soffice: tool{
			name:       "soffice",
			configured: sofficePath,
			hint:       "Install LibreOffice to enable DOCX/PPTX/XLSX conversion.",
		},
		workDir: workDir,
		timeout: timeout,
	}
}

func (c *DocumentConverter) Available() bool { return c.soffice.available() }

func (c *DocumentConverter) Convert(ctx context.Context, input, output string) Result {
	if err := requireCategory(input, CategoryDocument); err != nil {
		return failed(err)
	}
	if err := requireFile(input); err != nil {
		return failed(err)
	}
	if _, err := c.soffice.resolve(); err != nil {
		return failed(err)
	}

	// soffice names its output after the input, so each run gets its own
	// directory.
	outDir, err := os.MkdirTemp(c.workDir, "soffice-*")
	if err != nil {
		return failed(fmt.Errorf("failed to create output directory: %w", err))
	}
	defer os.RemoveAll(outDir)

	absInput, err := filepath.Abs(input)
	if err != nil {
		return failed(err)
	}

	_, err = runTool(ctx, c.soffice, c.timeout, outDir,
		"--headless",
		"--nologo",
		"--nofirststartwizard",
		// A private profile lets concurrent conversions run side by side.
		"-env:UserInstallation=file://"+filepath.ToSlash(filepath.Join(outDir, "profile")),
		"--convert-to", "pdf",
		"--outdir", outDir,
		absInput,
	)
	if err != nil {
		return failed(err)
	}

	generated := filepath.Join(outDir, baseName(input)+".pdf")
	if _, err := os.Stat(generated); err != nil {
		return failed(&ToolError{Tool: c.soffice.name, Output: "LibreOffice did not produce a PDF output"})
	}

	if err := moveFile(generated, output); err != nil {
		return failed(fmt.Errorf("failed to move PDF into place: %w", err))
	}

	inBytes, _ := fileSize(input)
	outBytes, err := fileSize(output)
	if err != nil {
		return failed(err)
	}

	log.Debug().Str("input", input).Str("output", output).Msg("Document converted")

	return succeeded(Result{
		OutputPath:  output,
		InputBytes:  inBytes,
		OutputBytes: outBytes,
		Format:      Ext(input),
	})
}
