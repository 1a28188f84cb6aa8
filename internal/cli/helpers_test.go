package cli

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// execute runs the root command against a fresh home directory. Flag values
// persist between cobra executions, so every flag is reset first.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DOC2PDF_TELEGRAM_BOT_TOKEN", "")
	resetFlags(rootCmd)

	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(home, "doc2pdf.json")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func dataDir(home string) string {
	return filepath.Join(home, ".doc2pdf")
}

func writePIDFile(t *testing.T, home string, pid int) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dataDir(home), 0700))
	path := filepath.Join(dataDir(home), "doc2pdf.pid")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprint(pid)), 0644))
	return path
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 5), G: uint8(y * 7), B: 120, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("%s page %d", name, i))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func mkdir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
