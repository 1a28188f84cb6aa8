package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/observability"
	"github.com/rs/zerolog"
)

// ErrFileTooLarge is returned when a download exceeds the configured limit.
var ErrFileTooLarge = errors.New("file too large")

// Media handles incoming files
type Media struct {
	bot    *Bot
	logger zerolog.Logger

	onMedia func(context.Context, MediaContext) error
}

// MediaContext describes a received file before it is downloaded.
type MediaContext struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	UserID    int64
	FileID    string
	FileName  string
	Ext       string // lower-case, with dot
	FileSize  int
	Type      string // photo, document
}

// mimeExt covers documents sent without a file name.
var mimeExt = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/bmp":       ".bmp",
	"image/tiff":      ".tiff",
	"text/plain":      ".txt",
	"text/markdown":   ".md",
	"text/html":       ".html",
}

// NewMedia creates a new media handler
func NewMedia(bot *Bot) *Media {
	return &Media{
		bot:    bot,
		logger: bot.logger.With().Str("module", "media").Logger(),
	}
}

// ExtractMedia returns the file carried by msg. Photos arrive as the largest
// available JPEG rendition.
func ExtractMedia(update tgbotapi.Update) (MediaContext, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return MediaContext{}, false
	}

	mc := MediaContext{
		UpdateID:  update.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
	}

	switch {
	case msg.Document != nil:
		doc := msg.Document
		mc.Type = "document"
		mc.FileID = doc.FileID
		mc.FileSize = doc.FileSize
		mc.FileName = doc.FileName
		mc.Ext = strings.ToLower(filepath.Ext(doc.FileName))
		if mc.Ext == "" {
			mc.Ext = mimeExt[strings.ToLower(doc.MimeType)]
		}
		if mc.FileName == "" {
			mc.FileName = "document" + mc.Ext
		}
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		mc.Type = "photo"
		mc.FileID = photo.FileID
		mc.FileSize = photo.FileSize
		mc.Ext = ".jpg"
		mc.FileName = "photo_" + photo.FileUniqueID + ".jpg"
	default:
		return MediaContext{}, false
	}

	return mc, true
}

// HandleMedia processes media messages
func (m *Media) HandleMedia(ctx context.Context, update tgbotapi.Update) error {
	mc, ok := ExtractMedia(update)
	if !ok {
		return nil
	}

	m.logger.Debug().
		Str("file_id", mc.FileID).
		Str("type", mc.Type).
		Str("ext", mc.Ext).
		Int64("chat_id", mc.ChatID).
		Msg("Media received")

	if m.onMedia != nil {
		return m.onMedia(ctx, mc)
	}
	return nil
}

// SetOnMedia sets the media callback
func (m *Media) SetOnMedia(callback func(context.Context, MediaContext) error) {
	m.onMedia = callback
}

// Download fetches a file into destPath, refusing anything above the
// configured size limit. A partial file is removed on failure.
func (b *Bot) Download(ctx context.Context, fileID, destPath string) (int64, error) {
	limit := int64(b.config.MaxDownloadMB) * 1024 * 1024

	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}

	if limit > 0 && int64(file.FileSize) > limit {
		return 0, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, file.FileSize, limit)
	}

	url := fmt.Sprintf(b.fileEndpoint, b.api.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && written > limit {
		err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	if err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	b.logger.Info().
		Str("file_id", fileID).
		Str("path", destPath).
		Int64("size", written).
		Msg("File downloaded")

	return written, nil
}

// SendDocument uploads a file. When ctx expires first the error wraps
// ErrDeliveryTimeout.
func (b *Bot) SendDocument(ctx context.Context, chatID int64, docPath, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(docPath))
	doc.Caption = caption

	_, err := b.send(ctx, doc)
	switch {
	case err == nil:
		observability.RecordDelivery("success")
	case errors.Is(err, context.DeadlineExceeded):
		observability.RecordDelivery("timeout")
		return fmt.Errorf("%w: %s", ErrDeliveryTimeout, filepath.Base(docPath))
	default:
		observability.RecordDelivery("failure")
		return fmt.Errorf("failed to upload document: %w", err)
	}

	b.logger.Info().
		Int64("chat_id", chatID).
		Str("path", docPath).
		Msg("Document uploaded")

	return nil
}
