package livestream

import "sync"

// Registry is the process-global, insert-only map of LiveStream singletons
// keyed by identity (display_channel_id + "-" + quality), per spec.md §3/§9.
// Entries are never removed during process lifetime.
type Registry struct {
	mu      sync.Mutex
	streams map[string]*Stream
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*Stream)}
}

// GetOrCreate returns the Stream for identity, creating it (Offline) if this
// is the first reference, per spec.md §3's "only one LiveStream object per
// identity process-wide" invariant.
func (r *Registry) GetOrCreate(identity string) *Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[identity]; ok {
		return s
	}
	s := New(identity)
	r.streams[identity] = s
	return s
}

// Get returns the Stream for identity if it already exists.
func (r *Registry) Get(identity string) (*Stream, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[identity]
	return s, ok
}

// FindIdling returns the first Idling stream found, used for the resource
// reclamation spec.md §4.E performs when a new stream transitions
// Offline→Standby (an existing Idling stream is Offlined first).
func (r *Registry) FindIdling() *Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.streams {
		if status, _, _ := s.Status(); status == StatusIdling {
			return s
		}
	}
	return nil
}

// ReclaimIdling forces the first Idling stream other than except to
// Offline, tearing down its encoder and releasing its tuner, per spec.md
// §4.E's Connect step: "If current status is Offline, first Offline an
// existing Idling stream (resource reclamation), flip self to Standby".
func (r *Registry) ReclaimIdling(except *Stream) {
	var idling *Stream
	r.mu.Lock()
	for _, s := range r.streams {
		if s == except {
			continue
		}
		if status, _, _ := s.Status(); status == StatusIdling {
			idling = s
			break
		}
	}
	r.mu.Unlock()
	if idling != nil {
		idling.SetStatus(StatusOffline, "")
	}
}
