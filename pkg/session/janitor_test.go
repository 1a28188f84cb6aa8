package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestNewJanitor_Defaults(t *testing.T) {
	j := NewJanitor(JanitorConfig{Dir: t.TempDir()}, nil)
	assert.Equal(t, DefaultJanitorSchedule, j.cfg.Schedule)
	assert.Equal(t, DefaultJanitorMaxAge, j.cfg.MaxAge)
}

func TestJanitor_SweepRemovesStaleUnowned(t *testing.T) {
	dir := t.TempDir()
	st := NewStore()

	stale := filepath.Join(dir, "stale.jpg")
	fresh := filepath.Join(dir, "fresh.jpg")
	owned := filepath.Join(dir, "owned.jpg")
	touch(t, stale, 3*time.Hour)
	touch(t, fresh, time.Minute)
	touch(t, owned, 3*time.Hour)
	st.Get(1).Inputs().Add(owned)

	j := NewJanitor(JanitorConfig{Dir: dir, MaxAge: time.Hour}, st)
	removed, err := j.Sweep()

	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(owned)
	assert.NoError(t, err)
}

func TestJanitor_SweepRespectsExclude(t *testing.T) {
	dir := t.TempDir()
	debugDir := filepath.Join(dir, "debug")
	require.NoError(t, os.Mkdir(debugDir, 0700))
	old := time.Now().Add(-24 * time.Hour)
	require.NoError(t, os.Chtimes(debugDir, old, old))

	j := NewJanitor(JanitorConfig{Dir: dir, MaxAge: time.Hour, Exclude: []string{debugDir}}, nil)
	removed, err := j.Sweep()

	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	_, err = os.Stat(debugDir)
	assert.NoError(t, err)
}

func TestJanitor_SweepMissingDir(t *testing.T) {
	j := NewJanitor(JanitorConfig{Dir: filepath.Join(t.TempDir(), "nope")}, nil)
	removed, err := j.Sweep()
	assert.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestJanitor_StartStop(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.txt")
	touch(t, stale, 48*time.Hour)

	j := NewJanitor(JanitorConfig{Dir: dir, MaxAge: time.Hour}, nil)

	require.NoError(t, j.Start())
	assert.True(t, j.IsRunning())
	assert.Error(t, j.Start())

	// Start sweeps synchronously before scheduling.
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, j.Stop())
	assert.False(t, j.IsRunning())
	assert.Error(t, j.Stop())
}

func TestJanitor_InvalidSchedule(t *testing.T) {
	j := NewJanitor(JanitorConfig{Dir: t.TempDir(), Schedule: "not a schedule"}, nil)
	assert.Error(t, j.Start())
	assert.False(t, j.IsRunning())
}
