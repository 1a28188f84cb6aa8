package session

import (
	"sync"
	"time"

	"github.com/harun/doc2pdf/internal/observability"
	"github.com/rs/zerolog/log"
)

// Store maps user ids to their sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	observability.EnsureRegistered()
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for userID, creating it on first use.
func (st *Store) Get(userID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[userID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		return s
	}

	s = newSession(userID)
	st.sessions[userID] = s
	observability.SetActiveSessions(len(st.sessions))
	log.Debug().Int64("user_id", userID).Msg("Session created")
	return s
}

// Lookup returns the session for userID without creating one.
func (st *Store) Lookup(userID int64) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[userID]
	return s, ok
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// ActiveWithin counts sessions used during the last window.
func (st *Store) ActiveWithin(window time.Duration) int {
	cutoff := time.Now().Add(-window)
	n := 0
	for _, s := range st.snapshot() {
		if s.LastActive().After(cutoff) {
			n++
		}
	}
	return n
}

func (st *Store) snapshot() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Owns reports whether any session's ledger holds path.
func (st *Store) Owns(path string) bool {
	for _, s := range st.snapshot() {
		if s.Owns(path) {
			return true
		}
	}
	return false
}

// RefreshMetrics publishes pending file totals across all sessions.
func (st *Store) RefreshMetrics() {
	inputs, pdfs := 0, 0
	for _, s := range st.snapshot() {
		inputs += s.Inputs().Count()
		pdfs += s.PDFs().Count()
	}
	observability.SetPendingFiles("inputs", inputs)
	observability.SetPendingFiles("pdfs", pdfs)
}

// Close clears every session's ledgers. Sessions stay registered.
func (st *Store) Close() {
	sessions := st.snapshot()
	for _, s := range sessions {
		s.ClearAll()
	}
	st.RefreshMetrics()
	log.Info().Int("sessions", len(sessions)).Msg("Session store closed")
}
