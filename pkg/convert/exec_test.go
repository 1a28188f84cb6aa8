package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTool_Missing(t *testing.T) {
	withLookPath(t, missingEverything)

	_, err := runTool(context.Background(), tool{name: "soffice", hint: "Install LibreOffice."}, 0, "")

	assert.ErrorIs(t, err, ErrToolMissing)
	var tme *ToolMissingError
	require.True(t, errors.As(err, &tme))
	assert.Equal(t, "soffice", tme.Tool)
}

func TestRunTool_ConfiguredPathWins(t *testing.T) {
	var asked string
	withLookPath(t, func(file string) (string, error) {
		asked = file
		return file, nil
	})

	bin, err := tool{name: "soffice", configured: "/opt/lo/soffice"}.resolve()

	require.NoError(t, err)
	assert.Equal(t, "/opt/lo/soffice", bin)
	assert.Equal(t, "/opt/lo/soffice", asked)
}

func TestRunTool_NonZeroExit(t *testing.T) {
	if _, err := lookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := runTool(context.Background(), tool{name: "sh"}, time.Minute, "", "-c", "echo boom >&2; exit 3")

	assert.ErrorIs(t, err, ErrToolFailed)
	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.ExitCode)
	assert.Equal(t, "boom", te.Output)
}

func TestRunTool_Timeout(t *testing.T) {
	if _, err := lookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := runTool(context.Background(), tool{name: "sh"}, 50*time.Millisecond, "", "-c", "exec sleep 5")

	var te *ToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, -1, te.ExitCode)
	assert.Contains(t, te.Output, "timed out")
}

func TestRunTool_Success(t *testing.T) {
	if _, err := lookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out, err := runTool(context.Background(), tool{name: "sh"}, time.Minute, "", "-c", "printf ok")

	require.NoError(t, err)
	assert.Equal(t, "ok", string(out.Stdout))
	assert.Equal(t, 0, out.ExitCode)
}

func TestDiagnostic_TruncatesFromTheEnd(t *testing.T) {
	long := make([]byte, maxToolOutput+100)
	for i := range long {
		long[i] = 'x'
	}
	long[len(long)-1] = 'E'

	msg := diagnostic(toolOutput{Stdout: long})

	assert.Len(t, msg, maxToolOutput)
	assert.Equal(t, byte('E'), msg[len(msg)-1])
}

func TestDocumentConversion_ToolMissing(t *testing.T) {
	withLookPath(t, missingEverything)
	d := newTestDispatcher(t)
	in := filepath.Join(t.TempDir(), "report.docx")
	require.NoError(t, os.WriteFile(in, []byte("PK"), 0600))

	r := d.ConvertFile(context.Background(), in, "", "")

	assert.False(t, r.Success)
	assert.ErrorIs(t, r.Err, ErrToolMissing)
	assert.Contains(t, r.ErrorMessage, "soffice")
}

func TestDocumentConversion_MissingInputBeforeTool(t *testing.T) {
	withLookPath(t, missingEverything)
	d := newTestDispatcher(t)

	r := d.ConvertFile(context.Background(), filepath.Join(t.TempDir(), "gone.xlsx"), "", "")

	assert.ErrorIs(t, r.Err, ErrInputNotFound)
}

func TestOCR_Unavailable(t *testing.T) {
	withLookPath(t, missingEverything)
	d := newTestDispatcher(t)
	dir := t.TempDir()
	pdf := writePDF(t, dir, "scan.pdf", 1)
	img := writePNG(t, dir, "scan.png", 10, 10)

	r := d.OCRPDF(context.Background(), pdf, "", "eng")
	assert.ErrorIs(t, r.Err, ErrOCRUnavailable)
	assert.ErrorIs(t, r.Err, ErrToolMissing)

	_, err := d.OCRImage(context.Background(), img, "eng")
	assert.ErrorIs(t, err, ErrOCRUnavailable)

	images, pdfs := NewOCR("", "", 0).Available()
	assert.False(t, images)
	assert.False(t, pdfs)
}

func TestNormalizeOCRLanguage(t *testing.T) {
	tests := []struct {
		in, fallback, want string
		wantErr            bool
	}{
		{"", "", "eng", false},
		{"", "deu", "deu", false},
		{"FAS", "eng", "fas", false},
		{"eng+deu", "", "eng+deu", false},
		{"chi_sim", "", "chi_sim", false},
		{"en", "", "", true},
		{"eng;rm -rf", "", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeOCRLanguage(tt.in, tt.fallback)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidLanguage, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
