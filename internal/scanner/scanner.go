package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanatv/hanatv/internal/config"
)

// Processor analyzes one discovered recording file. Implemented in
// practice by a closure around internal/metadata.Analyzer.AnalyzeFile plus
// a repository save, matching internal/ingestor's handler-behind-a-
// callback shape rather than giving Scanner a direct dependency on the
// database layer.
type Processor func(ctx context.Context, path string) error

// Scanner walks the configured storage roots once, then keeps watching
// them for newly-written recordings, handing each off to Processor in
// priority order (newest first), per spec.md §4.K.
type Scanner struct {
	roots     []string
	debounce  time.Duration
	processor Processor
	logger    *slog.Logger

	queue *ProcessingQueue
}

// New builds a Scanner over cfg's storage roots and scan tuning.
func New(storageRoots []string, scan config.ScanConfig, processor Processor, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		roots:     storageRoots,
		debounce:  scan.WatchDebounce,
		processor: processor,
		logger:    logger,
		queue:     NewProcessingQueue(),
	}
}

// Run performs the initial batch walk, starts the filesystem watcher, and
// drains the processing queue until ctx is canceled. Processor errors for
// one file are logged and do not stop the scan; only a failed walk of the
// storage roots, a watcher failure or a canceled context return an error.
func (s *Scanner) Run(ctx context.Context) error {
	batch, err := walkRoots(s.roots)
	if err != nil {
		return fmt.Errorf("scanner: walking storage roots: %w", err)
	}
	s.queue.LoadBatchFiles(batch)
	s.logger.Info("scanner: initial batch loaded", "count", len(batch))

	watcher, err := NewWatcher(s.roots, s.debounce, func(path string) {
		s.queue.AddPriorityFile(PrioritizedFile{FilePath: path, CreatedAt: time.Now()})
	})
	if err != nil {
		return fmt.Errorf("scanner: starting filesystem watcher: %w", err)
	}
	defer watcher.Close()

	watchErrCh := make(chan error, 1)
	go func() { watchErrCh <- watcher.Run(ctx) }()

	drainTick := time.NewTicker(250 * time.Millisecond)
	defer drainTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watchErrCh:
			if err != nil && err != context.Canceled {
				return fmt.Errorf("scanner: filesystem watcher stopped: %w", err)
			}
			return err
		case <-drainTick.C:
			s.drainPending(ctx)
		}
	}
}

func (s *Scanner) drainPending(ctx context.Context) {
	for {
		file, ok := s.queue.NextFile()
		if !ok {
			return
		}
		if err := s.processor(ctx, file.FilePath); err != nil {
			s.logger.Warn("scanner: processing recording failed", "file_path", file.FilePath, "error", err)
		}
		s.queue.MarkProcessed(file.FilePath)
	}
}
