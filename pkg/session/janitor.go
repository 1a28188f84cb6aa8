package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harun/doc2pdf/internal/observability"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultJanitorSchedule = "@every 30m"
	DefaultJanitorMaxAge   = 2 * time.Hour
)

// Owner reports whether a live ledger still holds path.
type Owner interface {
	Owns(path string) bool
}

// JanitorConfig configures work-dir sweeping.
type JanitorConfig struct {
	Dir      string
	Schedule string        // cron spec or descriptor, e.g. "@every 30m"
	MaxAge   time.Duration // entries younger than this are kept
	Exclude  []string      // absolute paths never removed (e.g. a debug dir inside Dir)
}

// Janitor removes work-dir leftovers from crashed or killed processes.
// Sessions themselves are never evicted.
type Janitor struct {
	cfg     JanitorConfig
	owner   Owner
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	now     func() time.Time
}

func NewJanitor(cfg JanitorConfig, owner Owner) *Janitor {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultJanitorSchedule
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultJanitorMaxAge
	}
	return &Janitor{
		cfg:   cfg,
		owner: owner,
		now:   time.Now,
	}
}

// Start sweeps once immediately, then on the configured schedule.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("janitor is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(j.cfg.Schedule, j.sweepLogged); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.cfg.Schedule, err)
	}

	j.sweepLogged()

	c.Start()
	j.cron = c
	j.running = true

	log.Info().
		Str("dir", j.cfg.Dir).
		Str("schedule", j.cfg.Schedule).
		Dur("max_age", j.cfg.MaxAge).
		Msg("Work dir janitor started")
	return nil
}

// Stop waits for a running sweep to finish.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return fmt.Errorf("janitor is not running")
	}

	<-j.cron.Stop().Done()
	j.running = false
	log.Info().Msg("Work dir janitor stopped")
	return nil
}

func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Janitor) sweepLogged() {
	if _, err := j.Sweep(); err != nil {
		log.Error().Err(err).Str("dir", j.cfg.Dir).Msg("Work dir sweep failed")
	}
}

// Sweep deletes stale, unowned top-level entries of the work dir and
// returns how many were removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read work dir: %w", err)
	}

	cutoff := j.now().Add(-j.cfg.MaxAge)
	removed := 0

	for _, entry := range entries {
		path := filepath.Join(j.cfg.Dir, entry.Name())
		if j.excluded(path) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if j.owner != nil && j.owner.Owns(path) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale work file")
			continue
		}
		removed++
		log.Debug().Str("path", path).Time("modified", info.ModTime()).Msg("Stale work file removed")
	}

	if removed > 0 {
		observability.RecordJanitorRemoved(removed)
		log.Info().Int("removed", removed).Str("dir", j.cfg.Dir).Msg("Cleaned up stale work files")
	}
	return removed, nil
}

func (j *Janitor) excluded(path string) bool {
	for _, ex := range j.cfg.Exclude {
		if filepath.Clean(ex) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
