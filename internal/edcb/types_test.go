package edcb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveDataRoundTrip(t *testing.T) {
	in := ReserveData{
		Title:             "ニュース",
		StartTime:         time.Date(2026, 7, 31, 21, 0, 0, 0, JST),
		DurationSeconds:   1800,
		NetworkID:         4,
		TransportStreamID: 1032,
		ServiceID:         101,
		EventID:           4096,
		Comment:           "auto",
	}

	r := NewReader(encodeReserveData(in))
	got, err := decodeReserveData(r)
	require.NoError(t, err)

	assert.Equal(t, in.Title, got.Title)
	assert.True(t, in.StartTime.Equal(got.StartTime))
	assert.Equal(t, in.DurationSeconds, got.DurationSeconds)
	assert.Equal(t, in.NetworkID, got.NetworkID)
	assert.Equal(t, in.TransportStreamID, got.TransportStreamID)
	assert.Equal(t, in.ServiceID, got.ServiceID)
	assert.Equal(t, in.EventID, got.EventID)
	assert.Equal(t, in.Comment, got.Comment)
}

func TestRecSettingDataRoundTrip(t *testing.T) {
	in := RecSettingData{
		RecMode:        1,
		Priority:       3,
		TunerID:        0,
		StartMarginSec: -30,
		EndMarginSec:   60,
	}

	r := NewReader(encodeRecSettingData(in))
	got, err := decodeRecSettingData(r)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestAutoAddDataRoundTrip(t *testing.T) {
	in := AutoAddData{
		DataID:     7,
		Keyword:    "ニュース番組",
		RegExpFlag: true,
		ServiceID:  101,
		NetworkID:  4,
		RecSetting: RecSettingData{
			RecMode:        2,
			Priority:       1,
			TunerID:        3,
			StartMarginSec: 0,
			EndMarginSec:   120,
		},
	}

	r := NewReader(encodeAutoAddData(in))
	got, err := decodeAutoAddData(r)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}
