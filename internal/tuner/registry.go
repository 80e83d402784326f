// Package tuner implements the tuner session manager of spec.md §4.B: it
// acquires, reuses, locks/unlocks, and releases logical tuners via
// internal/edcb, handling graceful handoff between live streams.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hanatv/hanatv/internal/edcb"
)

// ErrTunerUnavailable surfaces when no tuner can be acquired within the open
// budget, per spec.md §7.
var ErrTunerUnavailable = errors.New("tuner: unavailable")

// ErrDelegatedSession indicates an attempt to Close/retune a session whose
// nwtv_id was handed off to another session. Per spec.md §4.B this is a
// programming error, not a silent no-op.
var ErrDelegatedSession = errors.New("tuner: session was delegated")

// Channel identifies the broadcast service a session tunes to.
type Channel struct {
	NetworkID         uint16
	TransportStreamID uint16
	ServiceID         uint16
}

// Session is a reference-counted handle onto a remote tuner process.
type Session struct {
	NwTVID    uint32
	ProcessID uint32
	Channel   Channel

	mu        sync.Mutex
	locked    bool
	delegated bool
}

func (s *Session) isLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func (s *Session) isDelegated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delegated
}

// Lock marks the session as in-use (Standby/ONAir): it cannot be harvested
// by a new Acquire call.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// Unlock marks the session as idle (Idling), making it eligible for reuse by
// a soon-to-start live stream.
func (s *Session) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

// defaultOpenRetryWindow / openRetryBackoff bound the NwTVIDSetCh retry loop
// (tuners held by just-closed sessions may still be releasing), per spec.md
// §4.B. config.BackendConfig.TunerOpenRetry overrides the window when set.
const (
	defaultOpenRetryWindow = 5 * time.Second
	openRetryBackoff       = 500 * time.Millisecond
)

// backendClient is the subset of *edcb.Client the tuner manager needs,
// narrowed to an interface so it can be exercised against a fake in tests.
type backendClient interface {
	NwTVIDSetCh(ctx context.Context, info edcb.SetChInfo) (uint32, error)
	NwTVIDClose(ctx context.Context, nwtvID uint32) error
	OpenRelayStream(ctx context.Context, pid uint32) (io.ReadCloser, error)
}

// Registry is the process-global list of tuner sessions, including
// tombstoned (nil) slots for delegated sessions, preserving the positional
// indices handed out as nwtv_ids, per spec.md §4.B/§9.
type Registry struct {
	client         backendClient
	openRetryWindow time.Duration

	mu       sync.Mutex
	sessions []*Session // append-only; a freshly minted nwtv_id 500+i lands at index i
}

// NewRegistry constructs a Registry bound to client, retrying NwTVIDSetCh for
// openRetryWindow (defaultOpenRetryWindow when <=0).
func NewRegistry(client *edcb.Client, openRetryWindow time.Duration) *Registry {
	if openRetryWindow <= 0 {
		openRetryWindow = defaultOpenRetryWindow
	}
	return &Registry{client: client, openRetryWindow: openRetryWindow}
}

// allocateNwTVID implements step 1 of spec.md §4.B: scan for the first
// unlocked live session; if found, take its nwtv_id, mark it delegated, and
// tombstone its slot. Otherwise mint a fresh id.
func (r *Registry) allocateNwTVID() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sessions {
		if s == nil {
			continue
		}
		if s.isLocked() {
			continue
		}
		s.mu.Lock()
		s.delegated = true
		s.mu.Unlock()
		r.sessions[i] = nil
		return s.NwTVID
	}
	return 500 + uint32(len(r.sessions))
}

func (r *Registry) register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Tombstoned slots are never refilled: 500+len(sessions) must not
	// repeat an nwtv_id that a live session still holds.
	r.sessions = append(r.sessions, s)
}

func (r *Registry) tombstone(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, slot := range r.sessions {
		if slot == s {
			r.sessions[i] = nil
			return
		}
	}
}

// Acquire implements the full open lifecycle of spec.md §4.B steps 1-3:
// allocate an nwtv_id, call NwTVIDSetCh (retrying for openRetryWindow), then
// RelayViewStream to obtain the raw-TS socket.
func (r *Registry) Acquire(ctx context.Context, ch Channel) (*Session, io.ReadCloser, error) {
	nwtvID := r.allocateNwTVID()

	session := &Session{NwTVID: nwtvID, Channel: ch}

	deadline := time.Now().Add(r.openRetryWindow)
	var lastErr error
	var processID uint32
	for {
		info := edcb.SetChInfo{
			NetworkID:         ch.NetworkID,
			TransportStreamID: ch.TransportStreamID,
			ServiceID:         ch.ServiceID,
			NwTVID:            nwtvID,
			UseSID:            true,
			UseBonCh:          true,
		}
		pid, err := r.client.NwTVIDSetCh(ctx, info)
		if err == nil {
			processID = pid
			break
		}
		lastErr = err
		if time.Now().After(deadline) {
			return nil, nil, fmt.Errorf("%w: NwTVIDSetCh did not succeed within %s: %v", ErrTunerUnavailable, r.openRetryWindow, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(openRetryBackoff):
		}
	}
	session.ProcessID = processID

	stream, err := r.client.OpenRelayStream(ctx, processID)
	if err != nil {
		_ = r.closeSession(ctx, session)
		return nil, nil, fmt.Errorf("%w: RelayViewStream: %v", ErrTunerUnavailable, err)
	}

	r.register(session)
	return session, stream, nil
}

// Close implements spec.md §4.B step 7: NwTVIDClose and tombstone. A
// delegated session must not issue Close.
func (r *Registry) Close(ctx context.Context, s *Session) error {
	if s.isDelegated() {
		return ErrDelegatedSession
	}
	err := r.closeSession(ctx, s)
	r.tombstone(s)
	return err
}

func (r *Registry) closeSession(ctx context.Context, s *Session) error {
	return r.client.NwTVIDClose(ctx, s.NwTVID)
}

// DisconnectGrace is the window a disconnected tuner is kept running before
// a caller should assume it has been released, so a follow-up channel
// change can reuse it (spec.md §4.B step 6).
const DisconnectGrace = 3 * time.Second

