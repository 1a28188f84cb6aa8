package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/harun/doc2pdf/internal/i18n"
	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/harun/doc2pdf/pkg/ledger"
)

// Session is all state held for one user.
type Session struct {
	userID    int64
	createdAt time.Time

	inputs *ledger.Ledger
	pdfs   *ledger.Ledger

	mu          sync.RWMutex
	compression compression.Level
	locale      i18n.Locale
	lastActive  time.Time
}

func newSession(userID int64) *Session {
	now := time.Now()
	return &Session{
		userID:      userID,
		createdAt:   now,
		lastActive:  now,
		inputs:      ledger.New(fmt.Sprintf("user:%d:inputs", userID)),
		pdfs:        ledger.New(fmt.Sprintf("user:%d:pdfs", userID)),
		compression: compression.Default,
		locale:      i18n.Locales()[0],
	}
}

func (s *Session) UserID() int64 { return s.userID }

// Inputs tracks files waiting for /convert_now, in page order.
func (s *Session) Inputs() *ledger.Ledger { return s.inputs }

// PDFs tracks PDFs waiting for a PDF-tool operation.
func (s *Session) PDFs() *ledger.Ledger { return s.pdfs }

func (s *Session) Compression() compression.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compression
}

// SetCompression stores l, normalizing anything outside the closed set to
// the default level.
func (s *Session) SetCompression(l compression.Level) {
	if !l.Valid() {
		l = compression.Default
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compression = l
}

func (s *Session) Locale() i18n.Locale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

func (s *Session) SetLocale(l i18n.Locale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = l
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// ClearAll empties both ledgers, deleting their files.
func (s *Session) ClearAll() {
	s.inputs.ClearAll()
	s.pdfs.ClearAll()
}

// Owns reports whether path is held by either ledger.
func (s *Session) Owns(path string) bool {
	return s.inputs.Contains(path) || s.pdfs.Contains(path)
}
