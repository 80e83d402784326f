// Package liveencoder implements the live encoding task of spec.md §4.F: it
// orchestrates a tsreadex preprocessor piped into an encoder subprocess,
// watchdogs the pipeline, retries on transient failure, and classifies
// encoder logs into internal/livestream status transitions.
package liveencoder

// Profile is a quality profile, mapping a user-facing name to concrete
// encode parameters, per spec.md §4.F.
type Profile struct {
	Name             string
	Width, Height    int
	VideoBitrateKbps int
	VideoBitrateMaxKbps int
	AudioBitrateKbps int
	Is60fps          bool
	IsHEVC           bool
}

// Profiles is the fixed set of supported quality profiles.
var Profiles = map[string]Profile{
	"1080p":        {Name: "1080p", Width: 1440, Height: 1080, VideoBitrateKbps: 6000, VideoBitrateMaxKbps: 9200, AudioBitrateKbps: 192},
	"1080p-60fps":  {Name: "1080p-60fps", Width: 1440, Height: 1080, VideoBitrateKbps: 6000, VideoBitrateMaxKbps: 9200, AudioBitrateKbps: 192, Is60fps: true},
	"720p":         {Name: "720p", Width: 1280, Height: 720, VideoBitrateKbps: 4500, VideoBitrateMaxKbps: 6400, AudioBitrateKbps: 192},
	"720p-60fps":   {Name: "720p-60fps", Width: 1280, Height: 720, VideoBitrateKbps: 4500, VideoBitrateMaxKbps: 6400, AudioBitrateKbps: 192, Is60fps: true},
	"360p":         {Name: "360p", Width: 640, Height: 360, VideoBitrateKbps: 800, VideoBitrateMaxKbps: 1200, AudioBitrateKbps: 128},
	"240p":         {Name: "240p", Width: 426, Height: 240, VideoBitrateKbps: 450, VideoBitrateMaxKbps: 700, AudioBitrateKbps: 96},
}

// fullHDChannels is the hard-coded allowlist of terrestrial/BS channels
// known to actually broadcast full-HD (1920x1080) content, per spec.md §9's
// Open Question: "the source does not document how this list is
// maintained" — kept empirical and unresolved, not derived. Operators can
// extend it via config.LiveConfig.FullHDChannels; see AddFullHDChannels.
var fullHDChannels = map[string]bool{
	"gr027": true, // NHK総合 (example placeholder entry; maintained empirically)
	"bs151": true, // NHK BS1
}

// AddFullHDChannels merges operator-supplied display_channel_ids into the
// full-HD allowlist, called once at startup from config.LiveConfig.FullHDChannels.
func AddFullHDChannels(displayChannelIDs []string) {
	for _, id := range displayChannelIDs {
		fullHDChannels[id] = true
	}
}

// ResolveResolution widens a requested 1440x1080 profile to 1920x1080 for
// channels on the full-HD allowlist, per spec.md §4.F.
func ResolveResolution(displayChannelID string, p Profile) (width, height int) {
	if p.Width == 1440 && p.Height == 1080 && fullHDChannels[displayChannelID] {
		return 1920, 1080
	}
	return p.Width, p.Height
}
