package llhls

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sps() []byte { return []byte{0x67, 0x42, 0x00, 0x1e} }
func pps() []byte { return []byte{0x68, 0xce, 0x3c, 0x80} }
func idrSlice() []byte {
	return append([]byte{0x65}, make([]byte, 32)...)
}

func aacConfig() mpeg4audio.AudioSpecificConfig {
	return mpeg4audio.AudioSpecificConfig{Type: mpeg4audio.ObjectTypeAACLC, SampleRate: 48000, ChannelCount: 2}
}

func TestMuxerStartsPrimaryRenditionOnceParamsAndAudioSeen(t *testing.T) {
	m := NewMuxer(false)
	defer m.Close()

	assert.False(t, m.Primary.started())

	require.NoError(t, m.WriteAudioAccessUnit(0, 0, aacConfig(), make([]byte, 100)))
	require.NoError(t, m.WriteVideoAccessUnit(0, 0, [][]byte{sps(), pps(), idrSlice()}))

	assert.True(t, m.Primary.started())
	assert.False(t, m.Secondary.started())
}

func TestMuxerStartsSecondaryRenditionIndependently(t *testing.T) {
	m := NewMuxer(false)
	defer m.Close()

	require.NoError(t, m.WriteAudioAccessUnit(1, 0, aacConfig(), make([]byte, 100)))
	require.NoError(t, m.WriteVideoAccessUnit(0, 0, [][]byte{sps(), pps(), idrSlice()}))

	assert.True(t, m.Secondary.started())
}

func TestMuxerServesPlaylistOnceStarted(t *testing.T) {
	m := NewMuxer(false)
	defer m.Close()

	require.NoError(t, m.WriteAudioAccessUnit(0, 0, aacConfig(), make([]byte, 100)))
	require.NoError(t, m.WriteVideoAccessUnit(0, 0, [][]byte{sps(), pps(), idrSlice()}))
	require.NoError(t, m.WriteVideoAccessUnit(90000, 90000, [][]byte{idrSlice()}))

	req := httptest.NewRequest(http.MethodGet, "/index.m3u8", nil)
	rec := httptest.NewRecorder()
	m.Primary.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRenditionServeHTTPBeforeStartReturns503(t *testing.T) {
	r := newRendition()
	req := httptest.NewRequest(http.MethodGet, "/index.m3u8", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNtpForIsMonotonicWithPTS(t *testing.T) {
	m := NewMuxer(false)
	defer m.Close()

	m.mu.Lock()
	first := m.ntpFor(0)
	second := m.ntpFor(90000)
	m.mu.Unlock()

	assert.Equal(t, time.Second, second.Sub(first))
}
