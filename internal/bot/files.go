package bot

import (
	"context"
	"strings"

	"github.com/harun/doc2pdf/internal/i18n"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/harun/doc2pdf/pkg/ledger"
)

// File is a received upload, not yet on disk.
type File struct {
	ID   string
	Name string
	Ext  string // lower-case, with dot
}

// Receive downloads f on the user's lane and routes it.
func (o *Orchestrator) Receive(ctx context.Context, req Request, f File) <-chan error {
	return o.Submit(ctx, req, func(ctx context.Context, req Request) error {
		loc := o.sessions.Get(req.UserID).Locale()

		if convert.Classify(f.Ext) == convert.CategoryUnknown {
			o.reply(ctx, req, loc, i18n.UnsupportedFormat, f.Ext, strings.Join(convert.AllExtensions(), ", "))
			return nil
		}

		path := o.converter.TempPath("upload", f.Ext)
		if _, err := o.transport.Download(ctx, f.ID, path); err != nil {
			o.logger.Warn().Err(err).Str("file_id", f.ID).Int64("user_id", req.UserID).Msg("Download failed")
			o.reply(ctx, req, loc, i18n.DownloadFailed, err.Error())
			return nil
		}
		return o.FileReceived(ctx, req, path, f.Name)
	})
}

// FileReceived takes ownership of a downloaded file. Images and PDFs become
// pending; documents, text and HTML are converted right away; anything else
// is deleted and refused.
func (o *Orchestrator) FileReceived(ctx context.Context, req Request, path, name string) error {
	s := o.sessions.Get(req.UserID)
	loc := s.Locale()

	switch category := convert.Classify(path); category {
	case convert.CategoryImage:
		s.Inputs().Add(path)
		info, err := o.converter.ImageInfo(path)
		if err != nil {
			s.Inputs().Remove(path)
			o.logger.Debug().Err(err).Str("path", path).Msg("Rejected image")
			o.reply(ctx, req, loc, i18n.InvalidImage)
			return nil
		}
		o.reply(ctx, req, loc, i18n.ImageReceived, info.Format, info.Dimensions(), s.Inputs().Count())

	case convert.CategoryPDF:
		s.PDFs().Add(path)
		o.reply(ctx, req, loc, i18n.PDFReceived, name, s.PDFs().Count())

	case convert.CategoryDocument, convert.CategoryText, convert.CategoryHTML:
		o.convertDocument(ctx, req, loc, string(category), path, name)

	default:
		scratch := ledger.New("rejected")
		scratch.Add(path)
		scratch.ClearAll()
		o.reply(ctx, req, loc, i18n.UnsupportedFormat, convert.Ext(name), strings.Join(convert.AllExtensions(), ", "))
	}
	return nil
}

// convertDocument is a one-shot conversion; the upload never becomes pending.
func (o *Orchestrator) convertDocument(ctx context.Context, req Request, loc i18n.Locale, kind, path, name string) {
	scratch := ledger.New("document")
	defer scratch.ClearAll()
	scratch.Add(path)

	level := o.sessions.Get(req.UserID).Compression()
	output := o.converter.TempPath(outputPrefix(name), ".pdf")
	scratch.Add(output)

	st := o.startStatus(ctx, req.ChatID, i18n.T(loc, i18n.DocumentReceived, name))
	r := o.toolResult(ctx, func(ctx context.Context) convert.Result {
		return o.converter.ConvertFile(ctx, path, output, level)
	})
	o.audit(ctx, req, kind, r)

	if !r.Success {
		o.finishStatus(ctx, req.ChatID, st, i18n.T(loc, i18n.DocumentError, r.ErrorMessage))
		return
	}

	o.finishStatus(ctx, req.ChatID, st, i18n.T(loc, i18n.ConversionDone))
	_ = o.deliver(ctx, req, loc, r.OutputPath, i18n.T(loc, i18n.DocumentSuccess, r.InputSize(), r.OutputSize()))
}
