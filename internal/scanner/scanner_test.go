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

	"github.com/hanatv/hanatv/internal/config"
)

func TestScannerProcessesExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.ts"), []byte("x"), 0o644))

	var mu sync.Mutex
	var processed []string
	processor := func(_ context.Context, path string) error {
		mu.Lock()
		processed = append(processed, filepath.Base(path))
		mu.Unlock()
		return nil
	}

	s := New([]string{dir}, config.ScanConfig{WatchDebounce: 20 * time.Millisecond}, processor, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go s.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.ts"), []byte("y"), 0o644))

	deadline := time.After(800 * time.Millisecond)
	for {
		mu.Lock()
		n := len(processed)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out; processed so far: %v", processed)
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"existing.ts", "fresh.ts"}, processed)
}
