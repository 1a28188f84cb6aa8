package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/telegram"
)

// telegramTransport adapts *telegram.Bot to Transport.
type telegramTransport struct {
	*telegram.Bot
}

// NewTelegramTransport wraps a telegram bot.
func NewTelegramTransport(b *telegram.Bot) Transport {
	return telegramTransport{Bot: b}
}

func (t telegramTransport) StartStatus(ctx context.Context, chatID int64, text string) (Status, error) {
	st, err := t.Bot.StartStatus(ctx, chatID, text)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func isDeliveryTimeout(err error) bool {
	return errors.Is(err, telegram.ErrDeliveryTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// menu is the command list shown by Telegram clients.
var menu = []tgbotapi.BotCommand{
	{Command: "start", Description: "Show welcome message"},
	{Command: "help", Description: "Show help"},
	{Command: "convert", Description: "Convert pending images"},
	{Command: "convert_now", Description: "Convert with current compression"},
	{Command: "compress_high", Description: "High quality (95%)"},
	{Command: "compress_medium", Description: "Medium quality (85%)"},
	{Command: "compress_low", Description: "Low quality (70%)"},
	{Command: "merge", Description: "Merge pending PDFs"},
	{Command: "split", Description: "Split the last PDF"},
	{Command: "compress_pdf", Description: "Compress pending PDFs"},
	{Command: "ocr", Description: "Make pending PDFs searchable"},
	{Command: "ocr_image", Description: "Extract text from the last image"},
	{Command: "url2pdf", Description: "Convert a web page"},
	{Command: "clear", Description: "Clear pending files"},
	{Command: "lang", Description: "Set language (en, de, fa)"},
}

// Attach registers every command and file handler on b and publishes the
// command menu. A failed menu update is logged, not fatal.
func (o *Orchestrator) Attach(ctx context.Context, b *telegram.Bot) {
	commands := telegram.NewCommands(b)
	for _, item := range menu {
		name := item.Command
		commands.Register(name, func(ctx context.Context, cmd telegram.CommandContext) error {
			o.Dispatch(ctx, Request{
				UserID:  cmd.UserID,
				ChatID:  cmd.ChatID,
				Command: name,
				Args:    cmd.Args,
			})
			return nil
		})
	}
	b.SetCommandHandler(commands)

	media := telegram.NewMedia(b)
	media.SetOnMedia(func(ctx context.Context, mc telegram.MediaContext) error {
		o.Receive(ctx, Request{UserID: mc.UserID, ChatID: mc.ChatID}, File{
			ID:   mc.FileID,
			Name: mc.FileName,
			Ext:  mc.Ext,
		})
		return nil
	})
	b.SetMediaHandler(media)

	handler := telegram.NewHandler(b)
	handler.SetOnMessage(func(ctx context.Context, mc telegram.MessageContext) error {
		o.Submit(ctx, Request{UserID: mc.UserID, ChatID: mc.ChatID}, o.Help)
		return nil
	})
	b.SetMessageHandler(handler)

	if err := commands.SetCommands(ctx, menu); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to publish command menu")
	}
}
