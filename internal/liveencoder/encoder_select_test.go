package liveencoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectEncoderPrefersFirstConfiguredPriorityMatch(t *testing.T) {
	kind, path, err := SelectEncoder(
		[]string{"qsv", "nvenc", "software"},
		map[EncoderKind]string{
			EncoderNVEncC: "/opt/bin/NVEncC",
			EncoderFFmpeg: "/usr/bin/ffmpeg",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, EncoderNVEncC, kind)
	assert.Equal(t, "/opt/bin/NVEncC", path)
}

func TestSelectEncoderFallsBackToFFmpegWhenNothingElseConfigured(t *testing.T) {
	kind, path, err := SelectEncoder(
		[]string{"qsv", "vce", "rkmpp"},
		map[EncoderKind]string{EncoderFFmpeg: "/usr/bin/ffmpeg"},
	)
	require.NoError(t, err)
	assert.Equal(t, EncoderFFmpeg, kind)
	assert.Equal(t, "/usr/bin/ffmpeg", path)
}

func TestSelectEncoderIgnoresUnknownPriorityTokens(t *testing.T) {
	kind, path, err := SelectEncoder(
		[]string{"bogus", "software"},
		map[EncoderKind]string{EncoderFFmpeg: "/usr/bin/ffmpeg"},
	)
	require.NoError(t, err)
	assert.Equal(t, EncoderFFmpeg, kind)
	assert.Equal(t, "/usr/bin/ffmpeg", path)
}

func TestSelectEncoderTokensAreCaseAndWhitespaceInsensitive(t *testing.T) {
	kind, path, err := SelectEncoder(
		[]string{" QSV ", "Software"},
		map[EncoderKind]string{
			EncoderQSVEncC: "/opt/bin/QSVEncC",
			EncoderFFmpeg:  "/usr/bin/ffmpeg",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, EncoderQSVEncC, kind)
	assert.Equal(t, "/opt/bin/QSVEncC", path)
}
