package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// StatusMessages keeps one editable progress message per running operation.
// Intermediate edits are throttled per chat; the final edit always goes out.
type StatusMessages struct {
	bot    *Bot
	logger zerolog.Logger

	minInterval time.Duration

	mu       sync.Mutex
	active   map[string]*Status
	lastEdit map[int64]time.Time
}

// Status is a message that is edited in place as an operation progresses.
type Status struct {
	ChatID    int64
	MessageID int

	owner      *StatusMessages
	mu         sync.Mutex
	text       string
	lastUpdate time.Time
}

// NewStatusMessages creates the tracker. Bot creates one for itself.
func NewStatusMessages(bot *Bot) *StatusMessages {
	return &StatusMessages{
		bot:         bot,
		logger:      bot.logger.With().Str("module", "status").Logger(),
		minInterval: time.Second,
		active:      make(map[string]*Status),
		lastEdit:    make(map[int64]time.Time),
	}
}

func statusKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

// Start sends the initial text.
func (s *StatusMessages) Start(ctx context.Context, chatID int64, text string) (*Status, error) {
	id, err := s.bot.sendText(ctx, chatID, text)
	if err != nil {
		return nil, err
	}

	st := &Status{
		ChatID:     chatID,
		MessageID:  id,
		owner:      s,
		text:       text,
		lastUpdate: time.Now(),
	}

	s.mu.Lock()
	s.active[statusKey(chatID, id)] = st
	s.mu.Unlock()

	s.logger.Debug().
		Int64("chat_id", chatID).
		Int("message_id", id).
		Msg("Status started")

	return st, nil
}

// Update edits the message unless the chat was edited less than a second ago.
func (st *Status) Update(ctx context.Context, text string) error {
	if !st.owner.shouldUpdate(st.ChatID) {
		st.mu.Lock()
		st.text = text
		st.mu.Unlock()
		return nil
	}
	return st.owner.edit(ctx, st, text)
}

// Finish writes the final text and forgets the status.
func (st *Status) Finish(ctx context.Context, text string) error {
	err := st.owner.edit(ctx, st, text)

	st.owner.mu.Lock()
	delete(st.owner.active, statusKey(st.ChatID, st.MessageID))
	st.owner.mu.Unlock()

	return err
}

// Text is the last text set on the status.
func (st *Status) Text() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.text
}

func (s *StatusMessages) edit(ctx context.Context, st *Status, text string) error {
	st.mu.Lock()
	st.text = text
	st.mu.Unlock()

	edit := tgbotapi.NewEditMessageText(st.ChatID, st.MessageID, text)
	if _, err := s.bot.send(ctx, edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("failed to update status: %w", err)
	}

	now := time.Now()
	st.mu.Lock()
	st.lastUpdate = now
	st.mu.Unlock()

	s.mu.Lock()
	s.lastEdit[st.ChatID] = now
	s.mu.Unlock()

	return nil
}

func (s *StatusMessages) shouldUpdate(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastEdit[chatID]
	if !ok {
		return true
	}
	return time.Since(last) >= s.minInterval
}

// Active returns the number of unfinished statuses.
func (s *StatusMessages) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// CleanupStale forgets statuses not touched within maxAge.
func (s *StatusMessages) CleanupStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0

	for key, st := range s.active {
		st.mu.Lock()
		age := now.Sub(st.lastUpdate)
		st.mu.Unlock()

		if age > maxAge {
			delete(s.active, key)
			removed++
		}
	}

	for chatID, last := range s.lastEdit {
		if now.Sub(last) > maxAge {
			delete(s.lastEdit, chatID)
		}
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Cleaned up stale statuses")
	}

	return removed
}

// StartStatus sends a progress message that can be edited later.
func (b *Bot) StartStatus(ctx context.Context, chatID int64, text string) (*Status, error) {
	return b.status.Start(ctx, chatID, text)
}

// Statuses exposes the tracker for housekeeping.
func (b *Bot) Statuses() *StatusMessages {
	return b.status
}
