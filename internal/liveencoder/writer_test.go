package liveencoder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (s *fakeSink) WriteStreamData(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
}

func (s *fakeSink) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func TestBufferedWriterFlushesAtThreshold(t *testing.T) {
	sink := &fakeSink{}
	w := NewBufferedWriter(sink)

	packet := make([]byte, 188)
	packetsPerFlush := flushThreshold/188 + 1
	for i := 0; i < packetsPerFlush; i++ {
		w.WritePacket(packet)
	}

	assert.Len(t, sink.all(), 1)
}

func TestSubWriterFlushesAfterInterval(t *testing.T) {
	sink := &fakeSink{}
	w := NewBufferedWriter(sink)
	w.WritePacket(make([]byte, 188))

	time.Sleep(subWriterInterval + 5*time.Millisecond)
	w.SubWriterTick()

	assert.Len(t, sink.all(), 1)
}

func TestSubWriterDoesNothingBeforeInterval(t *testing.T) {
	sink := &fakeSink{}
	w := NewBufferedWriter(sink)
	w.WritePacket(make([]byte, 188))

	w.SubWriterTick()

	assert.Empty(t, sink.all())
}
