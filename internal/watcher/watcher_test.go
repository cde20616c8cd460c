package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_DetectsDeletion(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "worklens.db")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	deleted := make(chan struct{}, 1)
	w, err := New(target, func() {
		select {
		case deleted <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.Remove(target))

	select {
	case <-deleted:
	case <-time.After(2 * time.Second):
		t.Fatal("deletion callback was not triggered")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "worklens.db"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
