package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/harun/doc2pdf/internal/i18n"
	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetCreatesOnce(t *testing.T) {
	st := NewStore()

	a := st.Get(42)
	b := st.Get(42)

	assert.Same(t, a, b)
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, int64(42), a.UserID())
}

func TestStore_GetConcurrent(t *testing.T) {
	st := NewStore()

	var wg sync.WaitGroup
	got := make([]*Session, 32)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = st.Get(7)
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, st.Len())
}

func TestStore_Lookup(t *testing.T) {
	st := NewStore()

	_, ok := st.Lookup(1)
	assert.False(t, ok)

	st.Get(1)
	s, ok := st.Lookup(1)
	assert.True(t, ok)
	assert.NotNil(t, s)
}

func TestStore_ActiveWithin(t *testing.T) {
	st := NewStore()

	st.Get(1).Touch()
	idle := st.Get(2)
	idle.mu.Lock()
	idle.lastActive = time.Now().Add(-time.Hour)
	idle.mu.Unlock()

	assert.Equal(t, 1, st.ActiveWithin(15*time.Minute))
	assert.Equal(t, 2, st.ActiveWithin(2*time.Hour))
	assert.True(t, idle.LastActive().Before(st.Get(1).LastActive()))
}

func TestSession_Defaults(t *testing.T) {
	s := NewStore().Get(1)

	assert.Equal(t, compression.Medium, s.Compression())
	assert.Equal(t, i18n.EN, s.Locale())
	assert.Equal(t, 0, s.Inputs().Count())
	assert.Equal(t, 0, s.PDFs().Count())
}

func TestSession_SetCompressionNormalizes(t *testing.T) {
	s := NewStore().Get(1)

	s.SetCompression(compression.Low)
	assert.Equal(t, compression.Low, s.Compression())

	s.SetCompression(compression.Level("ultra"))
	assert.Equal(t, compression.Medium, s.Compression())
}

func TestSession_LedgersAreIndependent(t *testing.T) {
	dir := t.TempDir()
	s := NewStore().Get(1)

	img := filepath.Join(dir, "a.jpg")
	pdf := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(img, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(pdf, []byte("x"), 0600))

	s.Inputs().Add(img)
	s.PDFs().Add(pdf)

	s.Inputs().ClearAll()

	assert.Equal(t, 0, s.Inputs().Count())
	assert.Equal(t, 1, s.PDFs().Count())
	_, err := os.Stat(pdf)
	assert.NoError(t, err)
}

func TestStore_OwnsAndClose(t *testing.T) {
	dir := t.TempDir()
	st := NewStore()

	p1 := filepath.Join(dir, "one.png")
	p2 := filepath.Join(dir, "two.pdf")
	require.NoError(t, os.WriteFile(p1, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(p2, []byte("x"), 0600))

	st.Get(1).Inputs().Add(p1)
	st.Get(2).PDFs().Add(p2)

	assert.True(t, st.Owns(p1))
	assert.True(t, st.Owns(p2))
	assert.False(t, st.Owns(filepath.Join(dir, "other")))

	st.Close()

	assert.False(t, st.Owns(p1))
	assert.Equal(t, 2, st.Len())
	_, err := os.Stat(p1)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(p2)
	assert.True(t, os.IsNotExist(err))
}
