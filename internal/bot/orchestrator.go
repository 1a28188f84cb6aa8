// Package bot turns transport events into session changes and conversions.
//
// Every command and received file runs as one task on the sender's queue
// lane, so a user's events apply in delivery order while different users
// proceed independently. Conversions themselves run on the shared tools lane,
// which bounds how many external converters run at once.
package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harun/doc2pdf/internal/i18n"
	"github.com/harun/doc2pdf/internal/observability"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/harun/doc2pdf/pkg/commandqueue"
	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/harun/doc2pdf/pkg/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Transport delivers replies and fetches files.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
	Download(ctx context.Context, fileID, destPath string) (int64, error)
	StartStatus(ctx context.Context, chatID int64, text string) (Status, error)
}

// Status is a progress message edited in place.
type Status interface {
	Update(ctx context.Context, text string) error
	Finish(ctx context.Context, text string) error
}

// Converter is the conversion surface the handlers need.
type Converter interface {
	TempPath(prefix, ext string) string
	ImageInfo(path string) (convert.ImageInfo, error)
	ConvertImages(ctx context.Context, inputs []string, output string, level compression.Level) convert.Result
	ConvertFile(ctx context.Context, input, output string, level compression.Level) convert.Result
	ConvertURL(ctx context.Context, rawURL, output string) convert.Result
	Merge(ctx context.Context, inputs []string, output string) convert.Result
	Split(ctx context.Context, input string, ranges []convert.PageRange, prefix string) ([]string, error)
	CompressPDF(ctx context.Context, input, output string) convert.Result
	OCRPDF(ctx context.Context, input, output, lang string) convert.Result
	OCRImage(ctx context.Context, input, lang string) (string, error)
}

// Request is one command or file event from a user.
type Request struct {
	UserID  int64
	ChatID  int64
	Command string
	Args    []string
}

// HandlerFunc handles one request. Failures the user should see are rendered
// by the handler itself; a returned error means something unexpected.
type HandlerFunc func(ctx context.Context, req Request) error

// Options tune the orchestrator.
type Options struct {
	Allowlist       []int64 // empty allows everyone
	DebugMode       bool
	DebugDir        string
	DeliveryTimeout time.Duration
	QueueNotice     time.Duration // zero disables the queued notice
}

// Orchestrator owns the session store and routes events to handlers.
type Orchestrator struct {
	opts      Options
	allow     map[int64]bool
	transport Transport
	converter Converter
	sessions  *session.Store
	queue     *commandqueue.CommandQueue
	logger    zerolog.Logger
	now       func() time.Time
	handlers  map[string]HandlerFunc
}

// maxTextReply keeps recognized text under Telegram's message limit.
const maxTextReply = 3500

func New(opts Options, transport Transport, converter Converter, sessions *session.Store, queue *commandqueue.CommandQueue) *Orchestrator {
	observability.EnsureRegistered()

	o := &Orchestrator{
		opts:      opts,
		allow:     make(map[int64]bool, len(opts.Allowlist)),
		transport: transport,
		converter: converter,
		sessions:  sessions,
		queue:     queue,
		logger:    log.With().Str("component", "orchestrator").Logger(),
		now:       time.Now,
	}
	for _, id := range opts.Allowlist {
		o.allow[id] = true
	}

	o.handlers = map[string]HandlerFunc{
		"start":           o.Start,
		"help":            o.Help,
		"convert":         o.Convert,
		"convert_now":     func(ctx context.Context, req Request) error { o.ConvertNow(ctx, req); return nil },
		"compress_high":   o.compressAndConvert(compression.High),
		"compress_medium": o.compressAndConvert(compression.Medium),
		"compress_low":    o.compressAndConvert(compression.Low),
		"merge":           o.Merge,
		"split":           o.Split,
		"compress_pdf":    o.CompressPDF,
		"ocr":             o.OCR,
		"ocr_image":       o.OCRImage,
		"url2pdf":         o.URLToPDF,
		"clear":           o.Clear,
		"lang":            o.Lang,
	}

	return o
}

// Sessions exposes the store, mostly for the janitor.
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

// Handler returns the handler registered for command.
func (o *Orchestrator) Handler(command string) (HandlerFunc, bool) {
	h, ok := o.handlers[command]
	return h, ok
}

// localeOf returns the user's language without creating a session.
func (o *Orchestrator) localeOf(userID int64) i18n.Locale {
	if s, ok := o.sessions.Lookup(userID); ok {
		return s.Locale()
	}
	return i18n.Fallback
}

// Allowed reports whether userID may use the bot.
func (o *Orchestrator) Allowed(userID int64) bool {
	return len(o.allow) == 0 || o.allow[userID]
}

// Submit queues fn on the user's lane and returns without waiting. The
// returned channel receives fn's error once it has run.
func (o *Orchestrator) Submit(ctx context.Context, req Request, fn HandlerFunc) <-chan error {
	done := make(chan error, 1)

	if !o.Allowed(req.UserID) {
		observability.RecordAccessAudit(ctx, req.UserID, "denied")
		o.logger.Warn().Int64("user_id", req.UserID).Msg("User not in allowlist")
		go func() {
			o.send(ctx, req.ChatID, i18n.T(i18n.Fallback, i18n.NotAllowed))
			done <- nil
		}()
		return done
	}

	// Queued work outlives the update loop; the queue cancels it on Close.
	ctx = context.WithoutCancel(ctx)
	if req.Command != "" {
		ctx = tracing.WithCommand(ctx, req.Command)
	}
	if tracing.GetUserID(ctx) == 0 {
		ctx = tracing.WithUserID(ctx, req.UserID)
	}

	var opts *commandqueue.TaskOptions
	if o.opts.QueueNotice > 0 {
		noticeCtx := tracing.CloneContext(ctx)
		opts = &commandqueue.TaskOptions{
			WarnAfterMs: int(o.opts.QueueNotice.Milliseconds()),
			OnWait: func(waitMs int64, queuePos int) {
				o.send(noticeCtx, req.ChatID, i18n.T(o.localeOf(req.UserID), i18n.Queued))
			},
		}
	}

	task := func(ctx context.Context) (interface{}, error) {
		s := o.sessions.Get(req.UserID)
		s.Touch()
		defer o.sessions.RefreshMetrics()
		return nil, fn(ctx, req)
	}

	results := o.queue.Submit(ctx, commandqueue.UserLane(req.UserID), task, opts)
	go func() {
		r := <-results
		if r.Err != nil && !errors.Is(r.Err, commandqueue.ErrClosed) && !errors.Is(r.Err, commandqueue.ErrLaneCleared) {
			logger := tracing.LoggerFromContext(ctx, o.logger)
			logger.Error().Err(r.Err).Str("command", req.Command).Msg("Handler failed")
			o.send(tracing.CloneContext(ctx), req.ChatID, i18n.T(o.localeOf(req.UserID), i18n.InternalError))
		}
		done <- r.Err
	}()
	return done
}

// Dispatch submits the handler registered for req.Command.
func (o *Orchestrator) Dispatch(ctx context.Context, req Request) <-chan error {
	h, ok := o.handlers[req.Command]
	if !ok {
		h = o.Help
	}
	return o.Submit(ctx, req, h)
}

// onTools runs fn on the shared tools lane. Request ids are dropped so one
// command can run several tool calls without hitting the duplicate cache.
func onTools[T any](ctx context.Context, q *commandqueue.CommandQueue, fn func(context.Context) (T, error)) (T, error) {
	ctx = tracing.WithRequestID(ctx, "")
	v, err := q.EnqueueWithContext(ctx, commandqueue.ToolsLane, func(ctx context.Context) (interface{}, error) {
		out, err := fn(ctx)
		return out, err
	}, nil)
	var zero T
	if v == nil {
		return zero, err
	}
	return v.(T), err
}

// toolResult runs a converter call on the tools lane, folding queue errors
// into a failed Result.
func (o *Orchestrator) toolResult(ctx context.Context, fn func(context.Context) convert.Result) convert.Result {
	r, err := onTools(ctx, o.queue, func(ctx context.Context) (convert.Result, error) {
		return fn(ctx), nil
	})
	if err != nil {
		return convert.Result{ErrorMessage: err.Error(), Err: err}
	}
	return r
}

func (o *Orchestrator) send(ctx context.Context, chatID int64, text string) {
	if err := o.transport.SendText(ctx, chatID, text); err != nil {
		logger := tracing.LoggerFromContext(ctx, o.logger)
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func (o *Orchestrator) reply(ctx context.Context, req Request, loc i18n.Locale, key string, args ...any) {
	o.send(ctx, req.ChatID, i18n.T(loc, key, args...))
}

func (o *Orchestrator) startStatus(ctx context.Context, chatID int64, text string) Status {
	st, err := o.transport.StartStatus(ctx, chatID, text)
	if err != nil {
		o.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send status")
		return nil
	}
	return st
}

// finishStatus edits st to text, or sends text when there is no status.
func (o *Orchestrator) finishStatus(ctx context.Context, chatID int64, st Status, text string) {
	if st != nil {
		if err := st.Finish(ctx, text); err == nil {
			return
		}
	}
	o.send(ctx, chatID, text)
}

// deliver uploads path to the user. In debug mode a copy is kept in the debug
// dir first. The caller still owns path and must clean it up.
func (o *Orchestrator) deliver(ctx context.Context, req Request, loc i18n.Locale, path, caption string) error {
	if o.opts.DebugMode {
		if saved, err := o.saveDebugCopy(req.UserID, path); err != nil {
			o.logger.Warn().Err(err).Str("path", path).Msg("Failed to keep debug copy")
		} else {
			o.reply(ctx, req, loc, i18n.DebugSaved, saved)
		}
	}

	dctx := ctx
	if o.opts.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, o.opts.DeliveryTimeout)
		defer cancel()
	}

	err := o.transport.SendDocument(dctx, req.ChatID, path, caption)
	switch {
	case err == nil:
		return nil
	case isDeliveryTimeout(err):
		o.logger.Warn().Err(err).Int64("user_id", req.UserID).Msg("Delivery timed out")
		o.reply(ctx, req, loc, i18n.DeliveryTimeout)
	default:
		o.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("Delivery failed")
		o.reply(ctx, req, loc, i18n.ConversionError, err.Error())
	}
	return err
}

func (o *Orchestrator) saveDebugCopy(userID int64, path string) (string, error) {
	if err := os.MkdirAll(o.opts.DebugDir, 0700); err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dst := filepath.Join(o.opts.DebugDir,
		fmt.Sprintf("user_%d_%s_%s.pdf", userID, o.now().Format("20060102_150405"), name))
	if err := convert.CopyFile(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (o *Orchestrator) audit(ctx context.Context, req Request, kind string, r convert.Result) {
	status := "success"
	meta := map[string]interface{}{"input_count": r.InputCount}
	if !r.Success {
		status = "failure"
		meta = map[string]interface{}{"error": r.ErrorMessage}
	}
	observability.RecordConversionAudit(ctx, req.UserID, kind, status, meta)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
