package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/config"
	"github.com/harun/doc2pdf/internal/logger"
	"github.com/harun/doc2pdf/internal/observability"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrDeliveryTimeout is returned when an upload does not finish in time. The
// artifact itself is intact.
var ErrDeliveryTimeout = errors.New("delivery timed out")

// Bot represents a Telegram bot instance
type Bot struct {
	api    *tgbotapi.BotAPI
	config *config.TelegramConfig
	logger zerolog.Logger

	limiter      *rate.Limiter
	httpClient   *http.Client
	fileEndpoint string
	status       *StatusMessages

	// Handlers
	messageHandler MessageHandler
	commandHandler CommandHandler
	mediaHandler   MediaHandler

	// State
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// MessageHandler handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, update tgbotapi.Update) error
}

// CommandHandler handles bot commands
type CommandHandler interface {
	HandleCommand(ctx context.Context, update tgbotapi.Update) error
}

// MediaHandler handles media messages
type MediaHandler interface {
	HandleMedia(ctx context.Context, update tgbotapi.Update) error
}

// New authenticates against the Bot API and creates a bot.
func New(cfg *config.TelegramConfig, log zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	if err := tgbotapi.SetLogger(logger.NewBotLogger(log)); err != nil {
		return nil, fmt.Errorf("failed to set bot logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	return NewWithAPI(cfg, api, log), nil
}

// NewWithAPI wraps an already authenticated client.
func NewWithAPI(cfg *config.TelegramConfig, api *tgbotapi.BotAPI, log zerolog.Logger) *Bot {
	observability.EnsureRegistered()

	limit := rate.Inf
	if cfg.SendRatePerSecond > 0 {
		limit = rate.Limit(cfg.SendRatePerSecond)
	}

	bot := &Bot{
		api:          api,
		config:       cfg,
		logger:       log.With().Str("component", "telegram").Logger(),
		limiter:      rate.NewLimiter(limit, 1),
		httpClient:   &http.Client{},
		fileEndpoint: tgbotapi.FileEndpoint,
	}
	bot.status = NewStatusMessages(bot)

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot
}

// Start begins long polling. Updates are routed one at a time, in the order
// Telegram delivers them; handlers are expected to hand work off quickly.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running = true

	go b.processUpdates(ctx, updates, b.done)

	b.logger.Info().Msg("Telegram bot started")

	return nil
}

// Stop stops polling. Updates already handed to handlers keep running.
func (b *Bot) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return fmt.Errorf("bot is not running")
	}

	b.logger.Info().Msg("Stopping Telegram bot")

	b.running = false
	b.api.StopReceivingUpdates()
	b.cancel()

	b.logger.Info().Msg("Telegram bot stopped")

	return nil
}

// Done is closed once the update loop has exited.
func (b *Bot) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				b.logger.Error().
					Err(err).
					Int("update_id", update.UpdateID).
					Msg("Failed to handle update")
			}
		}
	}
}

// handleUpdate routes an update to the appropriate handler
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	ctx = tracing.NewUpdateContext(ctx, msg.From.ID, strconv.Itoa(update.UpdateID))

	if msg.IsCommand() && b.commandHandler != nil {
		return b.commandHandler.HandleCommand(ctx, update)
	}

	if hasMedia(msg) && b.mediaHandler != nil {
		return b.mediaHandler.HandleMedia(ctx, update)
	}

	if b.messageHandler != nil {
		return b.messageHandler.HandleMessage(ctx, update)
	}

	return nil
}

// hasMedia reports whether a message carries a file the bot can convert.
func hasMedia(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 || msg.Document != nil
}

// send waits for the rate limiter and runs the request, giving up when ctx
// ends.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}

	type sent struct {
		msg tgbotapi.Message
		err error
	}
	ch := make(chan sent, 1)
	go func() {
		msg, err := b.api.Send(c)
		ch <- sent{msg, err}
	}()

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		return tgbotapi.Message{}, ctx.Err()
	}
}

// sendText sends Markdown text, retrying as plain text if Telegram rejects
// the markup.
func (b *Bot) sendText(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := b.send(ctx, msg)
	if err != nil && isParseError(err) {
		b.logger.Debug().Err(err).Int64("chat_id", chatID).Msg("Markdown rejected, sending plain text")
		msg.ParseMode = ""
		sent, err = b.send(ctx, msg)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}

	b.logger.Debug().
		Int64("chat_id", chatID).
		Msg("Message sent")

	return sent.MessageID, nil
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "can't parse entities")
	}
	return false
}

// SendText sends a text message
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := b.sendText(ctx, chatID, text)
	return err
}

// SetMessageHandler sets the message handler
func (b *Bot) SetMessageHandler(handler MessageHandler) {
	b.messageHandler = handler
}

// SetCommandHandler sets the command handler
func (b *Bot) SetCommandHandler(handler CommandHandler) {
	b.commandHandler = handler
}

// SetMediaHandler sets the media handler
func (b *Bot) SetMediaHandler(handler MediaHandler) {
	b.mediaHandler = handler
}

// Username is the bot's Telegram handle.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// IsRunning returns whether the bot is running
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}
