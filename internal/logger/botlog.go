package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// BotLogger routes the Telegram client's Printf-style logging into zerolog at
// debug level. It satisfies tgbotapi.BotLogger.
type BotLogger struct {
	logger zerolog.Logger
}

func NewBotLogger(l zerolog.Logger) *BotLogger {
	return &BotLogger{logger: l.With().Str("component", "telegram-api").Logger()}
}

func (b *BotLogger) Println(v ...interface{}) {
	b.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (b *BotLogger) Printf(format string, v ...interface{}) {
	b.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
