package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, `{"a": 1}`)

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(path))
	writeFile(t, path, `{"a": 2}`)

	assert.True(t, waitFor(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second),
		"no reload after write")
}

func TestWatcher_ReloadsOnRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, `{"a": 1}`)

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(path))

	// Atomic save: write a temp file, then rename it over the target.
	tmp := filepath.Join(dir, "conf.json.tmp")
	writeFile(t, tmp, `{"a": 2}`)
	require.NoError(t, os.Rename(tmp, path))

	assert.True(t, waitFor(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second),
		"no reload after rename")
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, "0")

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(300*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(path))

	for i := 0; i < 5; i++ {
		writeFile(t, path, "burst")
		time.Sleep(10 * time.Millisecond)
	}

	require.True(t, waitFor(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second))
	// The burst was close together, so it collapses into very few reloads.
	assert.LessOrEqual(t, reloads.Load(), int32(2))
}

func TestWatcher_IgnoresOtherFilesInDirectory(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "conf.json")
	other := filepath.Join(dir, "other.json")
	writeFile(t, watched, "{}")

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(watched))

	writeFile(t, other, "{}")
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, int32(0), reloads.Load())
}

func TestWatcher_AddErrors(t *testing.T) {
	w, err := New(func(string) error { return nil })
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, "{}")

	require.NoError(t, w.Add(path))
	assert.ErrorIs(t, w.Add(path), ErrAlreadyWatching)
}

func TestWatcher_CloseStopsReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, "{}")

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Add(path))
	require.NoError(t, w.Close())

	writeFile(t, path, "changed")
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(0), reloads.Load())
	assert.ErrorIs(t, w.Add(path), ErrWatcherClosed)
}

func TestWatcher_RemoveStopsWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	writeFile(t, path, "{}")

	var reloads atomic.Int32
	w, err := New(func(string) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(path))
	require.NoError(t, w.Remove(path))

	writeFile(t, path, "changed")
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, int32(0), reloads.Load())
}
