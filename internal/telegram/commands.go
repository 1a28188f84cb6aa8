package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/doc2pdf/internal/tracing"
	"github.com/rs/zerolog"
)

// Commands routes bot commands to registered functions.
type Commands struct {
	bot      *Bot
	logger   zerolog.Logger
	mu       sync.RWMutex
	handlers map[string]CommandFunc
}

// CommandFunc is a function that handles a command
type CommandFunc func(ctx context.Context, cmd CommandContext) error

// CommandContext contains command metadata
type CommandContext struct {
	UpdateID  int
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	Command   string
	Args      []string
	RawArgs   string
}

// NewCommands creates a new command handler
func NewCommands(bot *Bot) *Commands {
	return &Commands{
		bot:      bot,
		logger:   bot.logger.With().Str("module", "commands").Logger(),
		handlers: make(map[string]CommandFunc),
	}
}

// ParseCommand extracts command metadata from a message.
func ParseCommand(update tgbotapi.Update) (CommandContext, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return CommandContext{}, false
	}
	return CommandContext{
		UpdateID:  update.UpdateID,
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		Command:   strings.ToLower(msg.Command()),
		Args:      strings.Fields(msg.CommandArguments()),
		RawArgs:   msg.CommandArguments(),
	}, true
}

// HandleCommand processes incoming commands
func (c *Commands) HandleCommand(ctx context.Context, update tgbotapi.Update) error {
	cmd, ok := ParseCommand(update)
	if !ok {
		return nil
	}

	ctx = tracing.WithCommand(ctx, cmd.Command)

	c.logger.Debug().
		Int64("chat_id", cmd.ChatID).
		Str("command", cmd.Command).
		Strs("args", cmd.Args).
		Msg("Command received")

	c.mu.RLock()
	handler, exists := c.handlers[cmd.Command]
	c.mu.RUnlock()
	if !exists {
		return c.sendUnknownCommand(ctx, cmd)
	}

	return handler(ctx, cmd)
}

// Register registers a command handler
func (c *Commands) Register(command string, handler CommandFunc) {
	c.mu.Lock()
	c.handlers[command] = handler
	c.mu.Unlock()
	c.logger.Debug().Str("command", command).Msg("Command registered")
}

// Unregister removes a command handler
func (c *Commands) Unregister(command string) {
	c.mu.Lock()
	delete(c.handlers, command)
	c.mu.Unlock()
	c.logger.Debug().Str("command", command).Msg("Command unregistered")
}

// SetCommands publishes the command menu shown by Telegram clients.
func (c *Commands) SetCommands(ctx context.Context, commands []tgbotapi.BotCommand) error {
	if err := c.bot.limiter.Wait(ctx); err != nil {
		return err
	}
	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := c.bot.api.Request(cfg); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Info().Int("count", len(commands)).Msg("Bot commands updated")
	return nil
}

// sendUnknownCommand sends an unknown command response
func (c *Commands) sendUnknownCommand(ctx context.Context, cmd CommandContext) error {
	return c.bot.SendText(ctx, cmd.ChatID, fmt.Sprintf("Unknown command: /%s\nSee /help", cmd.Command))
}

// GetRegisteredCommands returns all registered commands, sorted.
func (c *Commands) GetRegisteredCommands() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	commands := make([]string, 0, len(c.handlers))
	for cmd := range c.handlers {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}
