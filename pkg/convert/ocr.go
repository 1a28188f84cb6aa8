package convert

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultOCRLanguage is used when neither the caller nor the locale picks one.
const DefaultOCRLanguage = "eng"

// Tesseract codes: three letters, an optional script suffix (chi_sim), and
// '+' to combine several (eng+deu).
var ocrLanguagePattern = regexp.MustCompile(`^[a-z]{3}(_[a-z]+)?(\+[a-z]{3}(_[a-z]+)?)*$`)

// NormalizeOCRLanguage lower-cases lang and checks it against the tesseract
// code format. An empty lang yields fallback.
func NormalizeOCRLanguage(lang, fallback string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = fallback
	}
	if lang == "" {
		lang = DefaultOCRLanguage
	}
	if !ocrLanguagePattern.MatchString(lang) {
		return "", fmt.Errorf("%w: %q (expected a 3-letter code such as eng)", ErrInvalidLanguage, lang)
	}
	return lang, nil
}

// OCR makes PDFs searchable with ocrmypdf and extracts text from images with
// tesseract.
type OCR struct {
	tesseract tool
	ocrmypdf  tool
	timeout   time.Duration
}

func NewOCR(tesseractPath, ocrmypdfPath string, timeout time.Duration) *OCR {
	return &OCR{
		tesseract: tool{
			name:       "tesseract",
			configured: tesseractPath,
			hint:       "Install Tesseract to enable OCR.",
		},
		ocrmypdf: tool{
			name:       "ocrmypdf",
			configured: ocrmypdfPath,
			hint:       "Install OCRmyPDF to enable searchable PDFs.",
		},
		timeout: timeout,
	}
}

// Available reports which OCR modes can run.
func (o *OCR) Available() (images, pdfs bool) {
	return o.tesseract.available(), o.ocrmypdf.available()
}

// SearchablePDF writes a copy of input with a text layer in lang.
func (o *OCR) SearchablePDF(ctx context.Context, input, output, lang string) Result {
	if err := requireCategory(input, CategoryPDF); err != nil {
		return failed(err)
	}
	if err := requireFile(input); err != nil {
		return failed(err)
	}
	if _, err := o.ocrmypdf.resolve(); err != nil {
		return failed(fmt.Errorf("%w: %w", ErrOCRUnavailable, err))
	}

	// --skip-text leaves pages that already carry text alone instead of
	// failing the whole document.
	_, err := runTool(ctx, o.ocrmypdf, o.timeout, "", "-l", lang, "--skip-text", "--quiet", input, output)
	if err != nil {
		os.Remove(output)
		return failed(err)
	}

	inBytes, _ := fileSize(input)
	outBytes, err := fileSize(output)
	if err != nil {
		return failed(err)
	}

	log.Debug().Str("input", input).Str("lang", lang).Msg("PDF OCR completed")

	return succeeded(Result{
		OutputPath:  output,
		InputBytes:  inBytes,
		OutputBytes: outBytes,
		Format:      "PDF",
	})
}

// ImageText returns the text tesseract recognizes in an image.
func (o *OCR) ImageText(ctx context.Context, input, lang string) (string, error) {
	if err := requireCategory(input, CategoryImage); err != nil {
		return "", err
	}
	if err := requireFile(input); err != nil {
		return "", err
	}
	if _, err := o.tesseract.resolve(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}

	out, err := runTool(ctx, o.tesseract, o.timeout, "", input, "stdout", "-l", lang)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}
