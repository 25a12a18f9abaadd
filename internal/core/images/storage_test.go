package images

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, ttl time.Duration) *DiskStorage {
	t.Helper()
	s, err := NewDiskStorage(t.TempDir(), ttl)
	require.NoError(t, err)
	return s
}

func TestNewDiskStorage_Validation(t *testing.T) {
	_, err := NewDiskStorage("", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidStoragePath)

	_, err = NewDiskStorage(t.TempDir(), -time.Second)
	assert.Error(t, err)
}

func TestDiskStorage_SetGetDelete(t *testing.T) {
	s := newTestStorage(t, 0)

	_, found, err := s.Get("100")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, s.Exists("100"))

	require.NoError(t, s.Set("100", []byte("picture")))
	assert.True(t, s.Exists("100"))

	data, found, err := s.Get("100")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("picture"), data)

	require.NoError(t, s.Set("100", []byte("replaced")))
	data, _, _ = s.Get("100")
	assert.Equal(t, []byte("replaced"), data)

	require.NoError(t, s.Delete("100"))
	assert.False(t, s.Exists("100"))
	assert.NoError(t, s.Delete("100"), "deleting twice is not an error")
}

func TestDiskStorage_EmptyKey(t *testing.T) {
	s := newTestStorage(t, 0)

	_, _, err := s.Get("")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, s.Set("", nil), ErrEmptyKey)
	assert.ErrorIs(t, s.Delete(""), ErrEmptyKey)
	assert.False(t, s.Exists(""))
}

func TestDiskStorage_ConcurrentSetSameKey(t *testing.T) {
	s := newTestStorage(t, 0)

	const writers = 16
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Set("friend7", []byte("same picture"))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	data, found, err := s.Get("friend7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("same picture"), data)

	entries, err := os.ReadDir(s.basePath)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDiskStorage_KeyCannotEscapeBasePath(t *testing.T) {
	s := newTestStorage(t, 0)

	require.NoError(t, s.Set("../../etc/passwd", []byte("x")))

	entries, err := os.ReadDir(s.basePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")
	assert.NotContains(t, entries[0].Name(), "..")
}

func TestDiskStorage_Cleanup_RemovesExpiredTempEntries(t *testing.T) {
	s := newTestStorage(t, time.Hour)

	require.NoError(t, s.Set("temp42", []byte("old temp")))
	require.NoError(t, s.Set("temp43", []byte("fresh temp")))
	require.NoError(t, s.Set("42", []byte("permanent")))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.basePath, "temp42"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(s.basePath, "42"), old, old))

	removed, err := s.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.False(t, s.Exists("temp42"))
	assert.True(t, s.Exists("temp43"))
	assert.True(t, s.Exists("42"), "permanent entries never expire")
}

func TestDiskStorage_Cleanup_ZeroTTLKeepsEverything(t *testing.T) {
	s := newTestStorage(t, 0)
	require.NoError(t, s.Set("temp1", []byte("x")))

	removed, err := s.Cleanup()
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.True(t, s.Exists("temp1"))
}
