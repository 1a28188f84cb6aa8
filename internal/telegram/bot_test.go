package telegram

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/config"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		bot, err := New(nil, zerolog.Nop())
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("empty bot token", func(t *testing.T) {
		bot, err := New(&config.TelegramConfig{}, zerolog.Nop())
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "bot token is required")
	})
}

func TestNewWithAPI(t *testing.T) {
	f := newFakeAPI(t)
	bot := newTestBot(t, f, nil)

	assert.Equal(t, "testbot", bot.Username())
	assert.False(t, bot.IsRunning())
	assert.NotNil(t, bot.Statuses())
}

func TestSendText(t *testing.T) {
	f := newFakeAPI(t)
	bot := newTestBot(t, f, nil)

	require.NoError(t, bot.SendText(context.Background(), 77, "*hello*"))

	calls := f.callsTo("sendMessage")
	require.Len(t, calls, 1)
	assert.Equal(t, "77", calls[0].Form.Get("chat_id"))
	assert.Equal(t, "*hello*", calls[0].Form.Get("text"))
	assert.Equal(t, tgbotapi.ModeMarkdown, calls[0].Form.Get("parse_mode"))
}

func TestSendText_FallsBackToPlainText(t *testing.T) {
	f := newFakeAPI(t)
	f.failWhen = func(method string, form url.Values) string {
		if method == "sendMessage" && form.Get("parse_mode") != "" {
			return "Bad Request: can't parse entities: unclosed bold"
		}
		return ""
	}
	bot := newTestBot(t, f, nil)

	require.NoError(t, bot.SendText(context.Background(), 1, "file_name*.pdf"))

	calls := f.callsTo("sendMessage")
	require.Len(t, calls, 2)
	assert.Equal(t, "", calls[1].Form.Get("parse_mode"))
}

func TestSendText_OtherErrorsAreReturned(t *testing.T) {
	f := newFakeAPI(t)
	f.failWhen = func(method string, form url.Values) string {
		if method == "sendMessage" {
			return "Forbidden: bot was blocked by the user"
		}
		return ""
	}
	bot := newTestBot(t, f, nil)

	err := bot.SendText(context.Background(), 1, "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.Len(t, f.callsTo("sendMessage"), 1)
}

func TestSendDocument(t *testing.T) {
	f := newFakeAPI(t)
	bot := newTestBot(t, f, nil)
	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0600))

	require.NoError(t, bot.SendDocument(context.Background(), 5, path, "done"))

	calls := f.callsTo("sendDocument")
	require.Len(t, calls, 1)
	assert.Equal(t, "done", calls[0].Form.Get("caption"))
}

func TestSendDocument_Timeout(t *testing.T) {
	f := newFakeAPI(t)
	f.delay["sendDocument"] = 300 * time.Millisecond
	bot := newTestBot(t, f, nil)
	path := filepath.Join(t.TempDir(), "slow.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0600))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := bot.SendDocument(ctx, 5, path, "")

	assert.ErrorIs(t, err, ErrDeliveryTimeout)
	assert.Contains(t, err.Error(), "slow.pdf")
}

func TestDownload(t *testing.T) {
	f := newFakeAPI(t)
	f.addFile("doc1", []byte("hello world"))
	bot := newTestBot(t, f, nil)
	dest := filepath.Join(t.TempDir(), "sub", "in.txt")

	n, err := bot.Download(context.Background(), "doc1", dest)

	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDownload_DeclaredSizeTooLarge(t *testing.T) {
	f := newFakeAPI(t)
	f.addFile("big", []byte("x"))
	f.sizes["big"] = 2 * 1024 * 1024
	bot := newTestBot(t, f, nil)
	dest := filepath.Join(t.TempDir(), "big.bin")

	_, err := bot.Download(context.Background(), "big", dest)

	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.NoFileExists(t, dest)
}

func TestDownload_BodyTooLarge(t *testing.T) {
	f := newFakeAPI(t)
	f.addFile("sneaky", []byte(strings.Repeat("x", 1024*1024+10)))
	f.sizes["sneaky"] = 10
	bot := newTestBot(t, f, nil)
	dest := filepath.Join(t.TempDir(), "sneaky.bin")

	_, err := bot.Download(context.Background(), "sneaky", dest)

	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.NoFileExists(t, dest)
}

func TestDownload_MissingFile(t *testing.T) {
	f := newFakeAPI(t)
	bot := newTestBot(t, f, nil)
	dest := filepath.Join(t.TempDir(), "none.bin")

	_, err := bot.Download(context.Background(), "nope", dest)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 404")
	assert.NoFileExists(t, dest)
}

type recordingHandlers struct {
	mu       sync.Mutex
	commands []string
	media    []tgbotapi.Update
	messages []tgbotapi.Update
	ctxs     []context.Context
}

func (r *recordingHandlers) HandleCommand(ctx context.Context, u tgbotapi.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, u.Message.Command())
	r.ctxs = append(r.ctxs, ctx)
	return nil
}

func (r *recordingHandlers) HandleMedia(ctx context.Context, u tgbotapi.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media = append(r.media, u)
	return nil
}

func (r *recordingHandlers) HandleMessage(ctx context.Context, u tgbotapi.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, u)
	return nil
}

func (r *recordingHandlers) commandCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

func TestHandleUpdate_Routing(t *testing.T) {
	f := newFakeAPI(t)
	bot := newTestBot(t, f, nil)
	rec := &recordingHandlers{}
	bot.SetCommandHandler(rec)
	bot.SetMediaHandler(rec)
	bot.SetMessageHandler(rec)

	ctx := context.Background()
	require.NoError(t, bot.handleUpdate(ctx, commandUpdate(7, 100, "/convert_now")))

	doc := tgbotapi.Update{UpdateID: 8, Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 100},
		Chat:     &tgbotapi.Chat{ID: 100},
		Document: &tgbotapi.Document{FileID: "f", FileName: "a.pdf"},
	}}
	require.NoError(t, bot.handleUpdate(ctx, doc))

	text := tgbotapi.Update{UpdateID: 9, Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 100},
		Chat: &tgbotapi.Chat{ID: 100},
		Text: "hello",
	}}
	require.NoError(t, bot.handleUpdate(ctx, text))

	// Channel posts and service updates carry no sender.
	require.NoError(t, bot.handleUpdate(ctx, tgbotapi.Update{UpdateID: 10}))

	assert.Equal(t, []string{"convert_now"}, rec.commands)
	assert.Len(t, rec.media, 1)
	assert.Len(t, rec.messages, 1)

	cmdCtx := rec.ctxs[0]
	assert.Equal(t, "7", tracing.GetRequestID(cmdCtx))
	assert.Equal(t, int64(100), tracing.GetUserID(cmdCtx))
	assert.NotEmpty(t, tracing.GetTraceID(cmdCtx))
}

func TestStartStop(t *testing.T) {
	f := newFakeAPI(t)
	f.updates = []tgbotapi.Update{commandUpdate(1, 5, "/start"), commandUpdate(2, 5, "/help")}
	bot := newTestBot(t, f, nil)
	rec := &recordingHandlers{}
	bot.SetCommandHandler(rec)

	require.NoError(t, bot.Start(context.Background()))
	assert.True(t, bot.IsRunning())
	assert.Error(t, bot.Start(context.Background()))

	require.Eventually(t, func() bool { return rec.commandCount() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"start", "help"}, rec.commands)

	require.NoError(t, bot.Stop())
	assert.False(t, bot.IsRunning())
	assert.Error(t, bot.Stop())

	select {
	case <-bot.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("update loop did not exit")
	}
}
