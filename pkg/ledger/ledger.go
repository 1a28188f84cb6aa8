// Package ledger tracks temporary files owned by one holder and guarantees
// their deletion.
//
// Invariants:
// - A path is dropped from the ledger exactly when its deletion is attempted.
// - ClearAll always leaves the ledger empty, even when some deletions fail.
// - One failed deletion never prevents attempts on the remaining paths.
//
// Usage:
//
//	scratch := ledger.New("intermediate")
//	defer scratch.ClearAll()
//	scratch.Add(tmpPath)
package ledger

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Ledger is safe for concurrent use.
type Ledger struct {
	name  string
	paths []string
	mu    sync.Mutex
}

// New creates an empty ledger. The name only shows up in logs.
func New(name string) *Ledger {
	return &Ledger{name: name}
}

// Add registers ownership of path. The file is not required to exist yet.
func (l *Ledger) Add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

// Count returns the number of registered paths.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

// Paths returns a copy of the registered paths in insertion order.
func (l *Ledger) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.paths))
	copy(out, l.paths)
	return out
}

// Last returns the most recently registered path.
func (l *Ledger) Last() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.paths) == 0 {
		return "", false
	}
	return l.paths[len(l.paths)-1], true
}

// Contains reports whether path is registered.
func (l *Ledger) Contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.paths {
		if p == path {
			return true
		}
	}
	return false
}

// Remove deletes a single path from disk and drops it from the ledger.
// It reports whether the path was registered.
func (l *Ledger) Remove(path string) bool {
	l.mu.Lock()
	idx := -1
	for i, p := range l.paths {
		if p == path {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	l.paths = append(l.paths[:idx], l.paths[idx+1:]...)
	l.mu.Unlock()

	l.delete(path)
	return true
}

// ClearAll deletes every registered path and empties the ledger. It returns
// the number of deletions that failed; failures are logged, never returned.
func (l *Ledger) ClearAll() int {
	l.mu.Lock()
	paths := l.paths
	l.paths = nil
	l.mu.Unlock()

	failed := 0
	for _, p := range paths {
		if !l.delete(p) {
			failed++
		}
	}

	if len(paths) > 0 {
		log.Debug().
			Str("ledger", l.name).
			Int("paths", len(paths)).
			Int("failed", failed).
			Msg("Ledger cleared")
	}
	return failed
}

func (l *Ledger) delete(path string) bool {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Debug().Str("ledger", l.name).Str("path", path).Msg("Temporary file removed")
		return true
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("ledger", l.name).Str("path", path).Msg("Temporary file already gone")
		return true
	default:
		log.Warn().Err(err).Str("ledger", l.name).Str("path", path).Msg("Failed to remove temporary file")
		return false
	}
}
