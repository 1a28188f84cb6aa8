package convert

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harun/doc2pdf/internal/observability"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "doc2pdf/convert"

// Config wires the dispatcher to its work dir and external tools. Empty tool
// paths are looked up on PATH.
type Config struct {
	WorkDir         string
	ToolTimeout     time.Duration
	HTMLEngine      string
	SofficePath     string
	WkhtmltopdfPath string
	ChromiumPath    string
	TesseractPath   string
	OCRmyPDFPath    string
	AllowLocalURLs  bool
}

// Dispatcher selects a converter by file type and reports uniform Results.
type Dispatcher struct {
	workDir string

	images    *ImageConverter
	documents *DocumentConverter
	html      *HTMLConverter
	text      *TextConverter
	pdf       *PDFTools
	ocr       *OCR
}

func NewDispatcher(cfg Config) (*Dispatcher, error) {
	observability.EnsureRegistered()

	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.WorkDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	renderer := NewHTMLRenderer(cfg.HTMLEngine, cfg.WkhtmltopdfPath, cfg.ChromiumPath, cfg.ToolTimeout)

	d := &Dispatcher{
		workDir:   cfg.WorkDir,
		images:    NewImageConverter(cfg.WorkDir),
		documents: NewDocumentConverter(cfg.SofficePath, cfg.WorkDir, cfg.ToolTimeout),
		html:      NewHTMLConverter(renderer, cfg.AllowLocalURLs),
		text:      NewTextConverter(),
		pdf:       NewPDFTools(),
		ocr:       NewOCR(cfg.TesseractPath, cfg.OCRmyPDFPath, cfg.ToolTimeout),
	}

	log.Info().
		Str("work_dir", cfg.WorkDir).
		Str("html_engine", renderer.Name()).
		Bool("soffice", d.documents.Available()).
		Bool("html_renderer", renderer.Available()).
		Msg("Conversion dispatcher initialized")

	return d, nil
}

func (d *Dispatcher) WorkDir() string { return d.workDir }

// OutputPath returns a fresh PDF path in the work dir.
func (d *Dispatcher) OutputPath(prefix string) string {
	return tempPath(d.workDir, prefix, ".pdf")
}

// TempPath returns a fresh path with ext in the work dir.
func (d *Dispatcher) TempPath(prefix, ext string) string {
	return tempPath(d.workDir, prefix, ext)
}

func (d *Dispatcher) orOutput(output, prefix string) string {
	if output == "" {
		return d.OutputPath(prefix)
	}
	return output
}

func (d *Dispatcher) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "convert."+op, attrs...)
	return ctx, span, time.Now()
}

func finish(span trace.Span, kind string, start time.Time, err error) {
	observability.RecordConversion(kind, time.Since(start), err == nil)
	tracing.EndSpan(span, err)
}

func logFailure(kind string, r Result) {
	if !r.Success {
		log.Error().Err(r.Err).Str("kind", kind).Msg("Conversion failed")
	}
}

// ImageInfo reads an image header for receipt acknowledgement.
func (d *Dispatcher) ImageInfo(path string) (ImageInfo, error) {
	if err := requireCategory(path, CategoryImage); err != nil {
		return ImageInfo{}, err
	}
	return ReadImageInfo(path)
}

// ConvertImages writes inputs as consecutive pages of one PDF.
func (d *Dispatcher) ConvertImages(ctx context.Context, inputs []string, output string, level compression.Level) Result {
	_, span, start := d.startSpan(ctx, "images",
		attribute.Int("input_count", len(inputs)),
		attribute.String("compression", level.String()),
	)

	r := d.images.Convert(inputs, d.orOutput(output, "images"), level)
	finish(span, "image", start, r.Err)
	logFailure("image", r)
	return r
}

// ConvertFile routes a single non-PDF input to its converter. Images use
// level; other kinds ignore it.
func (d *Dispatcher) ConvertFile(ctx context.Context, input, output string, level compression.Level) Result {
	category := Classify(input)
	if category == CategoryImage {
		return d.ConvertImages(ctx, []string{input}, output, level)
	}

	ctx, span, start := d.startSpan(ctx, string(category), attribute.String("ext", Ext(input)))
	output = d.orOutput(output, baseName(input))

	var r Result
	switch category {
	case CategoryDocument:
		r = d.documents.Convert(ctx, input, output)
	case CategoryText:
		r = d.text.Convert(input, output)
	case CategoryHTML:
		r = d.html.ConvertFile(ctx, input, output)
	default:
		r = failed(&UnsupportedFormatError{Ext: Ext(input), Supported: ConvertibleExtensions()})
	}

	finish(span, string(category), start, r.Err)
	logFailure(string(category), r)
	return r
}

// ConvertURL renders a remote page.
func (d *Dispatcher) ConvertURL(ctx context.Context, rawURL, output string) Result {
	ctx, span, start := d.startSpan(ctx, "url")
	r := d.html.ConvertURL(ctx, rawURL, d.orOutput(output, "webpage"))
	finish(span, "url", start, r.Err)
	logFailure("url", r)
	return r
}

// Merge concatenates PDFs in order.
func (d *Dispatcher) Merge(ctx context.Context, inputs []string, output string) Result {
	_, span, start := d.startSpan(ctx, "merge", attribute.Int("input_count", len(inputs)))
	output = d.orOutput(output, "merged")

	var r Result
	if err := d.pdf.Merge(inputs, output); err != nil {
		r = failed(err)
	} else {
		var total int64
		for _, in := range inputs {
			n, _ := fileSize(in)
			total += n
		}
		outBytes, err := fileSize(output)
		if err != nil {
			r = failed(err)
		} else {
			r = succeeded(Result{
				OutputPath:  output,
				InputBytes:  total,
				OutputBytes: outBytes,
				Format:      "PDF",
				InputCount:  len(inputs),
			})
		}
	}

	finish(span, "merge", start, r.Err)
	logFailure("merge", r)
	return r
}

// Split extracts pages or ranges. An empty prefix writes into the work dir.
func (d *Dispatcher) Split(ctx context.Context, input string, ranges []PageRange, prefix string) ([]string, error) {
	_, span, start := d.startSpan(ctx, "split", attribute.Int("ranges", len(ranges)))
	if prefix == "" {
		prefix = tempPath(d.workDir, baseName(input), "")
	}

	outputs, err := d.pdf.Split(input, ranges, prefix)
	finish(span, "split", start, err)
	if err != nil {
		log.Error().Err(err).Str("kind", "split").Msg("Conversion failed")
	}
	return outputs, err
}

func (d *Dispatcher) PageCount(path string) (int, error) {
	return d.pdf.PageCount(path)
}

// CompressPDF rewrites a PDF with optimized streams.
func (d *Dispatcher) CompressPDF(ctx context.Context, input, output string) Result {
	_, span, start := d.startSpan(ctx, "compress")

	var r Result
	out, err := d.pdf.Compress(input, output)
	if err != nil {
		r = failed(err)
	} else {
		inBytes, _ := fileSize(input)
		outBytes, err := fileSize(out)
		if err != nil {
			r = failed(err)
		} else {
			r = succeeded(Result{
				OutputPath:  out,
				InputBytes:  inBytes,
				OutputBytes: outBytes,
				Format:      "PDF",
			})
		}
	}

	finish(span, "compress", start, r.Err)
	logFailure("compress", r)
	return r
}

// OCRPDF adds a text layer to a PDF.
func (d *Dispatcher) OCRPDF(ctx context.Context, input, output, lang string) Result {
	ctx, span, start := d.startSpan(ctx, "ocr_pdf", attribute.String("lang", lang))
	r := d.ocr.SearchablePDF(ctx, input, d.orOutput(output, baseName(input)+"_ocr"), lang)
	finish(span, "ocr_pdf", start, r.Err)
	logFailure("ocr_pdf", r)
	return r
}

// OCRImage extracts text from an image.
func (d *Dispatcher) OCRImage(ctx context.Context, input, lang string) (string, error) {
	ctx, span, start := d.startSpan(ctx, "ocr_image", attribute.String("lang", lang))
	text, err := d.ocr.ImageText(ctx, input, lang)
	finish(span, "ocr_image", start, err)
	if err != nil {
		log.Error().Err(err).Str("kind", "ocr_image").Msg("Conversion failed")
	}
	return text, err
}

// Close releases a shared headless browser, if one was started.
func (d *Dispatcher) Close() error {
	return d.html.Close()
}

// ConvertibleExtensions lists everything ConvertFile accepts.
func ConvertibleExtensions() []string {
	var out []string
	for _, c := range []Category{CategoryImage, CategoryDocument, CategoryText, CategoryHTML} {
		out = append(out, Extensions(c)...)
	}
	return out
}
