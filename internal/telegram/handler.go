package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Handler handles plain (non-command, non-file) messages.
type Handler struct {
	bot    *Bot
	logger zerolog.Logger

	// Callback for processing messages
	onMessage func(context.Context, MessageContext) error
}

// MessageContext contains message metadata
type MessageContext struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	Text      string
	Timestamp time.Time
	IsGroup   bool
}

// NewHandler creates a new message handler
func NewHandler(bot *Bot) *Handler {
	return &Handler{
		bot:    bot,
		logger: bot.logger.With().Str("module", "handler").Logger(),
	}
}

// HandleMessage processes incoming messages
func (h *Handler) HandleMessage(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}

	mc := MessageContext{
		UpdateID:  update.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		Text:      ParseCaption(msg),
		Timestamp: time.Unix(int64(msg.Date), 0),
		IsGroup:   msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
	}

	h.logger.Debug().
		Int64("chat_id", mc.ChatID).
		Int64("user_id", mc.UserID).
		Bool("is_group", mc.IsGroup).
		Msg("Message received")

	if h.onMessage != nil {
		return h.onMessage(ctx, mc)
	}

	return nil
}

// SetOnMessage sets the message callback
func (h *Handler) SetOnMessage(callback func(context.Context, MessageContext) error) {
	h.onMessage = callback
}

// ParseCaption extracts caption from a message
func ParseCaption(msg *tgbotapi.Message) string {
	if msg.Caption != "" {
		return msg.Caption
	}
	return msg.Text
}
