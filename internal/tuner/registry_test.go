package tuner

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/hanatv/hanatv/internal/edcb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	nextPID uint32
	closed  []uint32
	setChs  []edcb.SetChInfo
}

func (f *fakeClient) NwTVIDSetCh(ctx context.Context, info edcb.SetChInfo) (uint32, error) {
	f.setChs = append(f.setChs, info)
	f.nextPID++
	return f.nextPID, nil
}

func (f *fakeClient) NwTVIDClose(ctx context.Context, nwtvID uint32) error {
	f.closed = append(f.closed, nwtvID)
	return nil
}

func (f *fakeClient) OpenRelayStream(ctx context.Context, pid uint32) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func TestAcquireMintsFreshNwTVIDWhenRegistryEmpty(t *testing.T) {
	fc := &fakeClient{}
	r := &Registry{client: fc}

	s, stream, err := r.Acquire(context.Background(), Channel{ServiceID: 1})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, uint32(500), s.NwTVID)
}

func TestAcquireReusesFirstUnlockedSession(t *testing.T) {
	fc := &fakeClient{}
	r := &Registry{client: fc}

	s1, stream1, err := r.Acquire(context.Background(), Channel{ServiceID: 1})
	require.NoError(t, err)
	defer stream1.Close()
	s1.Unlock()

	s2, stream2, err := r.Acquire(context.Background(), Channel{ServiceID: 2})
	require.NoError(t, err)
	defer stream2.Close()

	assert.Equal(t, s1.NwTVID, s2.NwTVID, "reused nwtv_id from the unlocked session")
	assert.True(t, s1.isDelegated())
}

func TestLockedSessionIsNotHarvested(t *testing.T) {
	fc := &fakeClient{}
	r := &Registry{client: fc}

	s1, stream1, err := r.Acquire(context.Background(), Channel{ServiceID: 1})
	require.NoError(t, err)
	defer stream1.Close()
	s1.Lock()

	s2, stream2, err := r.Acquire(context.Background(), Channel{ServiceID: 2})
	require.NoError(t, err)
	defer stream2.Close()

	assert.NotEqual(t, s1.NwTVID, s2.NwTVID)
}

func TestDelegatedSessionCannotClose(t *testing.T) {
	fc := &fakeClient{}
	r := &Registry{client: fc}

	s1, stream1, _ := r.Acquire(context.Background(), Channel{ServiceID: 1})
	defer stream1.Close()
	s1.Unlock()

	_, stream2, _ := r.Acquire(context.Background(), Channel{ServiceID: 2})
	defer stream2.Close()

	err := r.Close(context.Background(), s1)
	assert.ErrorIs(t, err, ErrDelegatedSession)
}

func TestNewRegistryFallsBackToDefaultOpenRetryWindow(t *testing.T) {
	r := NewRegistry(nil, 0)
	assert.Equal(t, defaultOpenRetryWindow, r.openRetryWindow)
}

func TestNewRegistryHonorsConfiguredOpenRetryWindow(t *testing.T) {
	r := NewRegistry(nil, 2*time.Second)
	assert.Equal(t, 2*time.Second, r.openRetryWindow)
}
