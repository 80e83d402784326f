// Package livestream implements the per-(channel,quality) LiveStream
// singleton of spec.md §4.E: status, client list, PSI/SI archiver, and the
// reference to the tuner session feeding it.
package livestream

import (
	"sync"
	"time"

	"github.com/hanatv/hanatv/internal/llhls"
)

// Status is the lifecycle state of a LiveStream, per spec.md §3.
type Status string

const (
	StatusOffline Status = "Offline"
	StatusStandby Status = "Standby"
	StatusONAir   Status = "ONAir"
	StatusIdling  Status = "Idling"
	StatusRestart Status = "Restart"
)

// ClientType distinguishes raw MPEG-TS passthrough clients (which receive
// every WriteStreamData chunk) from LL-HLS clients (which instead pull from
// internal/llhls).
type ClientType string

const (
	ClientTypeMPEGTS ClientType = "mpegts"
	ClientTypeLLHLS  ClientType = "ll-hls"
)

// chunkQueueSize bounds each mpegts client's pending-chunk queue.
const chunkQueueSize = 4096

// Client is one connected viewer. Disconnect tombstones the slot (sets it
// to nil in Stream.clients) without compacting the list, preserving
// client_id-as-index semantics, per spec.md §4.E/§9.
type Client struct {
	ID   int
	Type ClientType

	queue  chan []byte
	closed chan struct{}
	once   sync.Once
}

func newClient(id int, t ClientType) *Client {
	return &Client{ID: id, Type: t, queue: make(chan []byte, chunkQueueSize), closed: make(chan struct{})}
}

// enqueue pushes a chunk to a mpegts client's queue; it drops the chunk
// rather than blocking forever if the queue is full, since a stalled viewer
// must never back-pressure the Writer shared by all clients.
func (c *Client) enqueue(chunk []byte) {
	select {
	case c.queue <- chunk:
	default:
	}
}

// ReadStreamData pops the next chunk, or returns ok=false once the client
// has been disconnected and its queue drained (one-way EOF).
func (c *Client) ReadStreamData() (chunk []byte, ok bool) {
	select {
	case chunk, ok = <-c.queue:
		return chunk, ok
	}
}

func (c *Client) disconnect() {
	c.once.Do(func() {
		close(c.closed)
		close(c.queue)
	})
}

// Stream is the per-identity singleton: one per (display_channel_id, quality).
type Stream struct {
	Identity string

	mu        sync.Mutex
	status    Status
	detail    string
	updatedAt time.Time
	clients   []*Client // tombstoned slots are nil; never compacted
	nextID    int

	// onTeardown, if set, is invoked when this stream transitions to
	// Offline/Restart, to tear down the encoder task and tuner session
	// owned by internal/liveencoder.
	onTeardown func()

	// onIdleChange, if set, is invoked with idling=true on the ONAir->Idling
	// transition and idling=false on the reverse Idling->ONAir/Standby
	// transition, so internal/liveencoder can Unlock/Lock the underlying
	// tuner session, per spec.md §4.B steps 4-5: a tuner sitting Idling must
	// be unlocked so a different stream's Registry.Acquire can harvest it.
	onIdleChange func(idling bool)

	// llhlsMuxer, if set, is fed every access unit the encoder produces so
	// ll-hls clients can be served; nil until the first LLHLSMuxer call
	// (the encoder task's feed, or an LL-HLS request) and reset to nil on
	// Offline/Restart, per spec.md §4.E/§4.G's data flow from F into G.
	llhlsMuxer *llhls.Muxer
}

// New constructs an Offline Stream for identity.
func New(identity string) *Stream {
	return &Stream{Identity: identity, status: StatusOffline, updatedAt: time.Now()}
}

// SetTeardownHook registers the callback invoked on transition to
// Offline/Restart.
func (s *Stream) SetTeardownHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTeardown = fn
}

// SetIdleHook registers the callback invoked on the ONAir<->Idling
// transitions, per spec.md §4.B steps 4-5.
func (s *Stream) SetIdleHook(fn func(idling bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIdleChange = fn
}

// LLHLSMuxer returns the stream's LL-HLS muxer, creating it (isHEVC-typed)
// on first call; subsequent calls reuse the same instance for the lifetime
// of this encoder run.
func (s *Stream) LLHLSMuxer(isHEVC bool) *llhls.Muxer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.llhlsMuxer == nil {
		s.llhlsMuxer = llhls.NewMuxer(isHEVC)
	}
	return s.llhlsMuxer
}

// Status returns the current (status, detail, updatedAt) tuple.
func (s *Stream) Status() (Status, string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.detail, s.updatedAt
}

// SetStatus is idempotent on equal (status, detail) pairs and rejects
// transitions that would overwrite a stale view: only a strictly later call
// (judged by monotonically increasing internal sequencing, i.e. simply the
// most recent caller wins under the lock) is observable, per spec.md §4.E/§7.
func (s *Stream) SetStatus(status Status, detail string) {
	s.mu.Lock()
	if s.status == status && s.detail == detail {
		s.mu.Unlock()
		return
	}
	prevStatus := s.status
	s.status = status
	s.detail = detail
	s.updatedAt = time.Now()
	teardown := s.onTeardown
	idleHook := s.onIdleChange
	s.mu.Unlock()

	if idleHook != nil {
		if status == StatusIdling && prevStatus != StatusIdling {
			idleHook(true)
		} else if prevStatus == StatusIdling && (status == StatusONAir || status == StatusStandby) {
			idleHook(false)
		}
	}

	if status == StatusOffline || status == StatusRestart {
		s.disconnectAll()
		s.mu.Lock()
		muxer := s.llhlsMuxer
		s.llhlsMuxer = nil
		s.mu.Unlock()
		if muxer != nil {
			muxer.Close()
		}
		if teardown != nil {
			go teardown()
		}
	}
}

// ClientCount returns the number of live (non-tombstoned) clients.
func (s *Stream) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.clients {
		if c != nil {
			n++
		}
	}
	return n
}

// addClient appends a new client slot; tombstoned slots are never reused.
func (s *Stream) addClient(t ClientType) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := newClient(s.nextID, t)
	s.nextID++
	s.clients = append(s.clients, c)
	return c
}

func (s *Stream) findClient(id int) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c != nil && c.ID == id {
			return c
		}
	}
	return nil
}

// Disconnect tombstones client_id's slot (sets it to nil); the client's own
// ReadStreamData observes a one-way EOF once its queue drains.
func (s *Stream) Disconnect(clientID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.clients {
		if c != nil && c.ID == clientID {
			c.disconnect()
			s.clients[i] = nil
			return
		}
	}
}

// disconnectAll tombstones every client slot; called on transition to
// Offline/Restart.
func (s *Stream) disconnectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.clients {
		if c != nil {
			c.disconnect()
			s.clients[i] = nil
		}
	}
}

// WriteStreamData fans chunk out to every live mpegts client's queue, in
// FIFO order relative to the Writer's own enqueue sequence (per spec.md §5;
// relative ordering across distinct clients is not defined).
func (s *Stream) WriteStreamData(chunk []byte) {
	s.mu.Lock()
	clients := make([]*Client, len(s.clients))
	copy(clients, s.clients)
	s.mu.Unlock()

	for _, c := range clients {
		if c != nil && c.Type == ClientTypeMPEGTS {
			c.enqueue(chunk)
		}
	}
}

// Connect implements spec.md §4.E: on Offline, flips to Standby and returns
// needsSpawn=true so the caller starts internal/liveencoder; on Idling,
// flips to ONAir and returns needsSpawn=false (the encoder is already
// running). Returns the new client's id.
func (s *Stream) Connect(clientType ClientType) (clientID int, needsSpawn bool) {
	s.mu.Lock()
	status := s.status
	wasIdling := status == StatusIdling
	if status == StatusOffline {
		s.status = StatusStandby
		s.detail = ""
		s.updatedAt = time.Now()
		needsSpawn = true
	} else if status == StatusIdling {
		s.status = StatusONAir
		s.detail = ""
		s.updatedAt = time.Now()
	}
	idleHook := s.onIdleChange
	s.mu.Unlock()

	if wasIdling && idleHook != nil {
		idleHook(false)
	}

	c := s.addClient(clientType)
	return c.ID, needsSpawn
}

// ReadStreamData pops the next chunk for clientID.
func (s *Stream) ReadStreamData(clientID int) ([]byte, bool) {
	c := s.findClient(clientID)
	if c == nil {
		return nil, false
	}
	return c.ReadStreamData()
}
