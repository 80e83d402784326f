package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsNewRecordingAfterDebounce(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var settled []string
	done := make(chan struct{})

	w, err := NewWatcher([]string{dir}, 50*time.Millisecond, func(path string) {
		mu.Lock()
		settled = append(settled, path)
		mu.Unlock()
		close(done)
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "recording.ts")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher to report the new file")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{path}, settled)
}

func TestWatcherIgnoresNonRecordingFiles(t *testing.T) {
	dir := t.TempDir()

	settled := make(chan string, 1)
	w, err := NewWatcher([]string{dir}, 20*time.Millisecond, func(path string) {
		settled <- path
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case path := <-settled:
		t.Fatalf("unexpected settle for non-recording file: %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}
