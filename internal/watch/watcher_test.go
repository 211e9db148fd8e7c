package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, paths []string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := New(paths, debounce)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(time.Now().String()), 0600))
}

func waitTrigger(t *testing.T, w *Watcher, timeout time.Duration) (Trigger, bool) {
	t.Helper()
	select {
	case tr := <-w.Triggers():
		return tr, true
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
		return Trigger{}, false
	case <-time.After(timeout):
		return Trigger{}, false
	}
}

func TestWriteEmitsTrigger(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w := startWatcher(t, []string{db}, 50*time.Millisecond)
	touch(t, db)

	tr, ok := waitTrigger(t, w, 2*time.Second)
	require.True(t, ok, "expected a trigger")
	assert.Equal(t, []string{db}, tr.Paths)
}

func TestBurstDebouncesToOneTrigger(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w := startWatcher(t, []string{db}, 100*time.Millisecond)
	for i := 0; i < 5; i++ {
		touch(t, db)
		time.Sleep(10 * time.Millisecond)
	}

	_, ok := waitTrigger(t, w, 2*time.Second)
	require.True(t, ok, "expected a trigger")

	_, again := waitTrigger(t, w, 300*time.Millisecond)
	assert.False(t, again, "burst must collapse into a single trigger")
}

func TestRenameReplaceEmitsTrigger(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w := startWatcher(t, []string{db}, 50*time.Millisecond)

	// Editors save via temp file + rename; the watcher sits on the
	// directory so the replacement is still seen.
	tmp := filepath.Join(dir, ".personal.tmp")
	touch(t, tmp)
	require.NoError(t, os.Rename(tmp, db))

	_, ok := waitTrigger(t, w, 2*time.Second)
	assert.True(t, ok, "expected a trigger after rename-replace")
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w := startWatcher(t, []string{db}, 50*time.Millisecond)
	touch(t, filepath.Join(dir, "notes.txt"))

	_, ok := waitTrigger(t, w, 300*time.Millisecond)
	assert.False(t, ok, "unrelated file must not trigger")
}

func TestSuppressSwallowsOwnSaves(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w := startWatcher(t, []string{db}, 50*time.Millisecond)

	w.Suppress(time.Second)
	touch(t, db)

	_, ok := waitTrigger(t, w, 300*time.Millisecond)
	assert.False(t, ok, "suppressed window must not trigger")
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w, err := New([]string{db}, 0)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestStartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "personal.kdbx")
	touch(t, db)

	w := startWatcher(t, []string{db}, 0)
	assert.Error(t, w.Start())
}
