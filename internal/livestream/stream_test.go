package livestream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectFromOfflineRequestsSpawn(t *testing.T) {
	s := New("gr011-1080p")
	id, needsSpawn := s.Connect(ClientTypeMPEGTS)
	assert.True(t, needsSpawn)
	status, _, _ := s.Status()
	assert.Equal(t, StatusStandby, status)
	assert.Equal(t, 0, id)
}

func TestConnectFromIdlingDoesNotRespawn(t *testing.T) {
	s := New("gr011-1080p")
	s.SetStatus(StatusIdling, "")
	_, needsSpawn := s.Connect(ClientTypeMPEGTS)
	assert.False(t, needsSpawn)
	status, _, _ := s.Status()
	assert.Equal(t, StatusONAir, status)
}

func TestClientCountMatchesLiveSlots(t *testing.T) {
	s := New("gr011-1080p")
	id1, _ := s.Connect(ClientTypeMPEGTS)
	_, _ = s.Connect(ClientTypeMPEGTS)
	assert.Equal(t, 2, s.ClientCount())

	s.Disconnect(id1)
	assert.Equal(t, 1, s.ClientCount())
}

func TestWriteStreamDataReachesOnlyMPEGTSClients(t *testing.T) {
	s := New("gr011-1080p")
	mpegtsID, _ := s.Connect(ClientTypeMPEGTS)
	hlsID, _ := s.Connect(ClientTypeLLHLS)

	s.WriteStreamData([]byte("chunk"))

	chunk, ok := s.ReadStreamData(mpegtsID)
	require.True(t, ok)
	assert.Equal(t, []byte("chunk"), chunk)

	hlsClient := s.findClient(hlsID)
	require.NotNil(t, hlsClient)
	select {
	case <-hlsClient.queue:
		t.Fatal("ll-hls client must not receive WriteStreamData chunks")
	default:
	}
}

func TestSetStatusIsIdempotentOnEqualPairs(t *testing.T) {
	s := New("gr011-1080p")
	s.SetStatus(StatusStandby, "starting")
	_, _, t1 := s.Status()

	time.Sleep(2 * time.Millisecond)
	s.SetStatus(StatusStandby, "starting")
	_, _, t2 := s.Status()

	assert.Equal(t, t1, t2, "equal (status,detail) must not bump updatedAt")
}

func TestOfflineTransitionDisconnectsAllClients(t *testing.T) {
	s := New("gr011-1080p")
	id, _ := s.Connect(ClientTypeMPEGTS)
	s.SetStatus(StatusONAir, "")

	s.SetStatus(StatusOffline, "tuner shortage")

	assert.Equal(t, 0, s.ClientCount())
	_, ok := s.ReadStreamData(id)
	assert.False(t, ok)
}

func TestIdleHookFiresOnONAirToIdlingAndBack(t *testing.T) {
	s := New("gr011-1080p")
	var transitions []bool
	s.SetIdleHook(func(idling bool) { transitions = append(transitions, idling) })

	s.SetStatus(StatusONAir, "")
	s.SetStatus(StatusIdling, "")
	require.Equal(t, []bool{true}, transitions, "ONAir->Idling must Unlock the tuner session")

	s.Connect(ClientTypeMPEGTS)
	require.Equal(t, []bool{true, false}, transitions, "Idling->ONAir via Connect must re-Lock the tuner session")
}

func TestIdleHookDoesNotFireOnUnrelatedTransitions(t *testing.T) {
	s := New("gr011-1080p")
	var calls int
	s.SetIdleHook(func(bool) { calls++ })

	s.SetStatus(StatusStandby, "")
	s.SetStatus(StatusONAir, "")
	s.SetStatus(StatusOffline, "tuner shortage")

	assert.Equal(t, 0, calls)
}
