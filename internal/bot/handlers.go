package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harun/doc2pdf/internal/i18n"
	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/harun/doc2pdf/pkg/ledger"
)

func (o *Orchestrator) Start(ctx context.Context, req Request) error {
	loc := o.sessions.Get(req.UserID).Locale()
	o.reply(ctx, req, loc, i18n.Welcome)
	return nil
}

func (o *Orchestrator) Help(ctx context.Context, req Request) error {
	loc := o.sessions.Get(req.UserID).Locale()
	o.reply(ctx, req, loc, i18n.Help)
	return nil
}

// Convert shows the compression menu when images are pending.
func (o *Orchestrator) Convert(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	count := s.Inputs().Count()
	if count == 0 {
		o.reply(ctx, req, loc, i18n.NoImages)
		return nil
	}
	o.reply(ctx, req, loc, i18n.CompressionMenu, count, s.Compression().Label())
	return nil
}

// ConvertNow turns every pending image into one PDF using the session's
// compression level. Pending images are released whatever the outcome.
func (o *Orchestrator) ConvertNow(ctx context.Context, req Request) convert.Result {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	inputs := s.Inputs().Paths()
	if len(inputs) == 0 {
		o.reply(ctx, req, loc, i18n.NoImages)
		return convert.Result{ErrorMessage: convert.ErrEmptyInput.Error(), Err: convert.ErrEmptyInput}
	}
	defer s.Inputs().ClearAll()

	level := s.Compression()
	st := o.startStatus(ctx, req.ChatID, i18n.T(loc, i18n.Processing, len(inputs), level.Label()))

	r := o.toolResult(ctx, func(ctx context.Context) convert.Result {
		return o.converter.ConvertImages(ctx, inputs, "", level)
	})
	o.audit(ctx, req, "image", r)

	if !r.Success {
		o.finishStatus(ctx, req.ChatID, st, i18n.T(loc, i18n.ConversionError, r.ErrorMessage))
		return r
	}

	artifacts := ledger.New("artifacts")
	defer artifacts.ClearAll()
	artifacts.Add(r.OutputPath)

	var done, caption string
	if r.MultiFile() {
		done = i18n.T(loc, i18n.ConversionDoneMany, r.InputCount)
		caption = i18n.T(loc, i18n.SizeInfoMany, r.TotalInputSize(), r.OutputSize(), r.Compression.Label(), r.InputCount)
	} else {
		done = i18n.T(loc, i18n.ConversionDone)
		caption = i18n.T(loc, i18n.SizeInfo, r.InputSize(), r.OutputSize(), r.Compression.Label(), r.Format, r.Dimensions)
	}
	o.finishStatus(ctx, req.ChatID, st, done)
	_ = o.deliver(ctx, req, loc, r.OutputPath, caption)

	return r
}

func (o *Orchestrator) compressAndConvert(level compression.Level) HandlerFunc {
	return func(ctx context.Context, req Request) error {
		s := o.sessions.Get(req.UserID)
		s.SetCompression(level)
		o.reply(ctx, req, s.Locale(), i18n.CompressionSet, level.Label())
		o.ConvertNow(ctx, req)
		return nil
	}
}

// Merge concatenates pending PDFs in the order they were received.
func (o *Orchestrator) Merge(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	pdfs := s.PDFs().Paths()
	if len(pdfs) == 0 {
		o.reply(ctx, req, loc, i18n.NoPDFs)
		return nil
	}
	defer s.PDFs().ClearAll()

	r := o.toolResult(ctx, func(ctx context.Context) convert.Result {
		return o.converter.Merge(ctx, pdfs, "")
	})
	o.audit(ctx, req, "merge", r)
	if !r.Success {
		o.reply(ctx, req, loc, i18n.ConversionError, r.ErrorMessage)
		return nil
	}

	artifacts := ledger.New("artifacts")
	defer artifacts.ClearAll()
	artifacts.Add(r.OutputPath)

	_ = o.deliver(ctx, req, loc, r.OutputPath, i18n.T(loc, i18n.MergeDone, r.InputCount))
	return nil
}

// Split cuts the most recently received PDF. Without arguments every page
// becomes its own file. A malformed range leaves the pending PDFs untouched.
func (o *Orchestrator) Split(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	input, ok := s.PDFs().Last()
	if !ok {
		o.reply(ctx, req, loc, i18n.NoPDFs)
		return nil
	}

	ranges, err := convert.ParsePageRanges(req.Args)
	if err != nil {
		o.reply(ctx, req, loc, i18n.SplitUsage)
		return nil
	}
	defer s.PDFs().ClearAll()

	outputs, err := onTools(ctx, o.queue, func(ctx context.Context) ([]string, error) {
		return o.converter.Split(ctx, input, ranges, "")
	})

	artifacts := ledger.New("artifacts")
	defer artifacts.ClearAll()
	for _, out := range outputs {
		artifacts.Add(out)
	}

	if err != nil {
		o.audit(ctx, req, "split", convert.Result{ErrorMessage: err.Error(), Err: err})
		o.reply(ctx, req, loc, i18n.ConversionError, err.Error())
		return nil
	}
	o.audit(ctx, req, "split", convert.Result{Success: true, InputCount: 1})

	for i, out := range outputs {
		caption := fmt.Sprintf("%d/%d", i+1, len(outputs))
		if err := o.deliver(ctx, req, loc, out, caption); err != nil {
			return nil
		}
	}
	o.reply(ctx, req, loc, i18n.SplitDone, len(outputs))
	return nil
}

// CompressPDF optimizes each pending PDF into its own artifact.
func (o *Orchestrator) CompressPDF(ctx context.Context, req Request) error {
	return o.eachPDF(ctx, req, "compress", func(ctx context.Context, input string) (convert.Result, string) {
		r := o.converter.CompressPDF(ctx, input, "")
		return r, i18n.T(o.sessions.Get(req.UserID).Locale(), i18n.CompressDone, r.InputSize(), r.OutputSize())
	})
}

// OCR makes each pending PDF searchable. The optional argument is a
// tesseract language code; the session locale decides otherwise.
func (o *Orchestrator) OCR(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	lang, err := convert.NormalizeOCRLanguage(firstArg(req.Args), loc.OCRLanguage())
	if err != nil {
		o.reply(ctx, req, loc, i18n.OCRUsage)
		return nil
	}

	return o.eachPDF(ctx, req, "ocr_pdf", func(ctx context.Context, input string) (convert.Result, string) {
		return o.converter.OCRPDF(ctx, input, "", lang), i18n.T(loc, i18n.OCRDone, lang)
	})
}

// eachPDF runs fn on every pending PDF in order. One failure is reported and
// the remaining files are still processed.
func (o *Orchestrator) eachPDF(ctx context.Context, req Request, kind string, fn func(context.Context, string) (convert.Result, string)) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	pdfs := s.PDFs().Paths()
	if len(pdfs) == 0 {
		o.reply(ctx, req, loc, i18n.NoPDFs)
		return nil
	}
	defer s.PDFs().ClearAll()

	artifacts := ledger.New("artifacts")
	defer artifacts.ClearAll()

	for _, input := range pdfs {
		var caption string
		r := o.toolResult(ctx, func(ctx context.Context) convert.Result {
			var r convert.Result
			r, caption = fn(ctx, input)
			return r
		})
		o.audit(ctx, req, kind, r)
		if !r.Success {
			o.reply(ctx, req, loc, i18n.ConversionError, r.ErrorMessage)
			continue
		}
		artifacts.Add(r.OutputPath)
		if err := o.deliver(ctx, req, loc, r.OutputPath, caption); err != nil {
			return nil
		}
	}
	return nil
}

// OCRImage replies with the text recognized in the latest pending image. The
// image stays pending.
func (o *Orchestrator) OCRImage(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	input, ok := s.Inputs().Last()
	if !ok {
		o.reply(ctx, req, loc, i18n.NoImages)
		return nil
	}

	lang, err := convert.NormalizeOCRLanguage(firstArg(req.Args), loc.OCRLanguage())
	if err != nil {
		o.reply(ctx, req, loc, i18n.OCRUsage)
		return nil
	}

	text, err := onTools(ctx, o.queue, func(ctx context.Context) (string, error) {
		return o.converter.OCRImage(ctx, input, lang)
	})
	if err != nil {
		o.audit(ctx, req, "ocr_image", convert.Result{ErrorMessage: err.Error(), Err: err})
		o.reply(ctx, req, loc, i18n.ConversionError, err.Error())
		return nil
	}
	o.audit(ctx, req, "ocr_image", convert.Result{Success: true, InputCount: 1})

	text = strings.TrimSpace(text)
	if text == "" {
		o.reply(ctx, req, loc, i18n.OCRNoText)
		return nil
	}
	o.reply(ctx, req, loc, i18n.OCRText, truncate(text, maxTextReply))
	return nil
}

// URLToPDF renders a web page.
func (o *Orchestrator) URLToPDF(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	target := firstArg(req.Args)
	if target == "" {
		o.reply(ctx, req, loc, i18n.URLUsage)
		return nil
	}

	st := o.startStatus(ctx, req.ChatID, i18n.T(loc, i18n.URLConverting, target))
	r := o.toolResult(ctx, func(ctx context.Context) convert.Result {
		return o.converter.ConvertURL(ctx, target, "")
	})
	o.audit(ctx, req, "url", r)
	if !r.Success {
		o.finishStatus(ctx, req.ChatID, st, i18n.T(loc, i18n.ConversionError, r.ErrorMessage))
		return nil
	}

	artifacts := ledger.New("artifacts")
	defer artifacts.ClearAll()
	artifacts.Add(r.OutputPath)

	o.finishStatus(ctx, req.ChatID, st, i18n.T(loc, i18n.ConversionDone))
	_ = o.deliver(ctx, req, loc, r.OutputPath, target)
	return nil
}

// Clear drops both pending ledgers.
func (o *Orchestrator) Clear(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)
	s.ClearAll()
	o.reply(ctx, req, s.Locale(), i18n.FilesCleared)
	return nil
}

func (o *Orchestrator) Lang(ctx context.Context, req Request) error {
	s := o.sessions.Get(req.UserID)

	loc, ok := i18n.ParseLocale(firstArg(req.Args))
	if !ok {
		o.reply(ctx, req, s.Locale(), i18n.LangUsage)
		return nil
	}
	s.SetLocale(loc)
	o.reply(ctx, req, loc, i18n.LangSet)
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

// outputPrefix turns a user-supplied file name into a safe artifact prefix.
func outputPrefix(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, stem)
	if stem == "" || strings.Trim(stem, "_") == "" {
		return "document"
	}
	return stem
}
