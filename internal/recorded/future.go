package recorded

import "sync"

// future is a one-shot, multi-waiter byte-slice result, grounded on the
// teacher's buffered "done channel" idiom in internal/relay/segment_buffer.go.
// Cancelled/unfinished futures are deliberately left unresolved, per spec.md
// §4.I's cancellation semantics ("the requester will time out").
type future struct {
	mu       sync.Mutex
	done     chan struct{}
	value    []byte
	resolved bool
}

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

func (f *future) C() <-chan struct{} { return f.done }

func (f *future) Resolve(value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return
	}
	f.value = value
	f.resolved = true
	close(f.done)
}

func (f *future) Value() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *future) Resolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}
