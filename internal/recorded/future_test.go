package recorded

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolveUnblocksAllWaiters(t *testing.T) {
	f := newFuture()
	results := make(chan []byte, 3)
	for i := 0; i < 3; i++ {
		go func() {
			<-f.C()
			results <- f.Value()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	f.Resolve([]byte("segment-bytes"))

	for i := 0; i < 3; i++ {
		select {
		case v := <-results:
			assert.Equal(t, []byte("segment-bytes"), v)
		case <-time.After(time.Second):
			t.Fatal("waiter did not unblock")
		}
	}
}

func TestFutureResolveIsIdempotent(t *testing.T) {
	f := newFuture()
	f.Resolve([]byte("first"))
	f.Resolve([]byte("second"))
	assert.Equal(t, []byte("first"), f.Value())
}

func TestFutureResolvedReflectsState(t *testing.T) {
	f := newFuture()
	require.False(t, f.Resolved())
	f.Resolve([]byte("x"))
	require.True(t, f.Resolved())
}
