package liveencoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveResolutionWidensFullHDAllowlist(t *testing.T) {
	p := Profiles["1080p"]

	width, height := ResolveResolution("gr027", p)
	assert.Equal(t, 1920, width)
	assert.Equal(t, 1080, height)

	width, height = ResolveResolution("gr999", p)
	assert.Equal(t, 1440, width)
	assert.Equal(t, 1080, height)
}

func TestAddFullHDChannelsExtendsAllowlist(t *testing.T) {
	AddFullHDChannels([]string{"gr042"})
	t.Cleanup(func() { delete(fullHDChannels, "gr042") })

	width, height := ResolveResolution("gr042", Profiles["1080p"])
	assert.Equal(t, 1920, width)
	assert.Equal(t, 1080, height)
}

func TestResolveResolutionLeavesNon1440x1080ProfilesAlone(t *testing.T) {
	width, height := ResolveResolution("gr027", Profiles["720p"])
	assert.Equal(t, 1280, width)
	assert.Equal(t, 720, height)
}
