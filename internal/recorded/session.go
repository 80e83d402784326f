package recorded

import (
	"context"
	"fmt"
	"sync"
)

// defaultAheadRestartThreshold is how many segments past the in-flight
// cursor a request must be before Session abandons the current encode-ahead
// run and seeks straight to it, per spec.md §4.I: "a request far enough
// ahead of the in-flight segment is cheaper to satisfy by seeking than by
// waiting for the sequential run to reach it." config.RecordedConfig's
// look_ahead_count overrides it when positive.
const defaultAheadRestartThreshold = 3

// Session serializes on-demand, encode-ahead access to one recording's
// planned segments, restarting the underlying Task when a request jumps far
// ahead of the segment currently being produced. Grounded on the teacher's
// buffered "done channel" producer/consumer idiom in
// internal/relay/segment_buffer.go, generalized from a live ring buffer to a
// finite, replayable segment plan.
type Session struct {
	cfg           TaskConfig
	filePath      string
	plan          []Segment
	aheadRestart  int

	mu      sync.Mutex
	futures []*future
	cursor  int
	task    *Task
	cancel  context.CancelFunc
	runDone chan struct{}
	runErr  error
}

// NewSession constructs a Session over plan, ready to start an encode-ahead
// run on the first RequestSegment call. lookAheadCount overrides
// defaultAheadRestartThreshold when positive.
func NewSession(cfg TaskConfig, filePath string, plan []Segment, lookAheadCount int) *Session {
	futures := make([]*future, len(plan))
	for i := range futures {
		futures[i] = newFuture()
	}
	aheadRestart := defaultAheadRestartThreshold
	if lookAheadCount > 0 {
		aheadRestart = lookAheadCount
	}
	return &Session{cfg: cfg, filePath: filePath, plan: plan, futures: futures, aheadRestart: aheadRestart}
}

// RequestSegment returns the finalized bytes for segment index, starting or
// restarting the encode-ahead run as needed, and blocking until it is
// sealed or ctx is cancelled. Closing the session does not wake a waiter;
// its future stays unresolved.
func (s *Session) RequestSegment(ctx context.Context, index int) ([]byte, error) {
	if index < 0 || index >= len(s.plan) {
		return nil, fmt.Errorf("recorded: segment %d out of range (%d segments)", index, len(s.plan))
	}

	s.mu.Lock()
	if s.task == nil {
		s.startLocked(index)
	} else {
		progress := s.progressLocked()
		if index < progress || index-progress > s.aheadRestart {
			s.stopLocked()
			s.startLocked(index)
		}
	}
	fut := s.futures[index]
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fut.C():
		return fut.Value(), nil
	}
}

// progressLocked returns the index of the first not-yet-resolved segment at
// or after the current run's start, i.e. how far the in-flight Task has
// actually gotten. Callers must hold s.mu.
func (s *Session) progressLocked() int {
	i := s.cursor
	for i < len(s.futures) && s.futures[i].Resolved() {
		i++
	}
	return i
}

// startLocked launches a fresh Task beginning at fromIndex. Callers must
// hold s.mu.
func (s *Session) startLocked(fromIndex int) {
	for i := fromIndex; i < len(s.futures); i++ {
		if !s.futures[i].Resolved() {
			s.futures[i] = newFuture()
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	task := NewTask(s.cfg, s.filePath, s.plan, s.futures)
	done := make(chan struct{})

	s.task = task
	s.cancel = cancel
	s.runDone = done
	s.cursor = fromIndex

	go func() {
		defer close(done)
		s.runErr = task.Run(runCtx, fromIndex)
	}()
}

// stopLocked cancels the in-flight Task and waits for it to exit. Callers
// must hold s.mu.
func (s *Session) stopLocked() {
	if s.task == nil {
		return
	}
	s.task.Cancel()
	s.cancel()
	done := s.runDone
	s.mu.Unlock()
	<-done
	s.mu.Lock()
	s.task = nil
}

// Close cancels any in-flight run and releases the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}
