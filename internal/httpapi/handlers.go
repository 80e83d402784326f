package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hanatv/hanatv/internal/config"
	"github.com/hanatv/hanatv/internal/liveencoder"
	"github.com/hanatv/hanatv/internal/livestream"
	"github.com/hanatv/hanatv/internal/models"
	"github.com/hanatv/hanatv/internal/recorded"
	"github.com/hanatv/hanatv/internal/repository"
	"github.com/hanatv/hanatv/internal/tuner"
)

// Deps collects every dependency the handlers in this package need, wired up
// once at startup (cmd/hanatv/cmd/serve.go) and never mutated afterward.
type Deps struct {
	Logger *slog.Logger

	Streams *livestream.Registry
	Tuners  *tuner.Registry

	Channels       repository.ChannelRepository
	RecordedVideos repository.RecordedVideoRepository

	Live     config.LiveConfig
	FFmpeg   config.FFmpegConfig
	Recorded config.RecordedConfig

	// Encoder/EncoderPath are resolved once at startup by
	// internal/liveencoder.SelectEncoder from FFmpeg.HWAccelPriority, per
	// spec.md §4.F's "Encoder selection".
	Encoder     liveencoder.EncoderKind
	EncoderPath string

	recordedSessions sessionCache
}

// sessionCache keeps one recorded.Session alive per (video, quality) pair
// for as long as a client keeps requesting its segments; hanatv is a
// single-user player so there is no eviction beyond process lifetime.
type sessionCache struct {
	mu       sync.Mutex
	sessions map[string]*recorded.Session
}

func (c *sessionCache) getOrCreate(key string, build func() (*recorded.Session, error)) (*recorded.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions == nil {
		c.sessions = make(map[string]*recorded.Session)
	}
	if s, ok := c.sessions[key]; ok {
		return s, nil
	}
	s, err := build()
	if err != nil {
		return nil, err
	}
	c.sessions[key] = s
	return s, nil
}

// NewHandlers builds the Handlers table NewServer mounts, closing over d.
func NewHandlers(d *Deps) Handlers {
	return Handlers{
		LiveStream:      d.handleLiveStream,
		Playlist:        d.handlePlaylist,
		Init:            d.handleInit,
		Segment:         d.handleSegment,
		Part:            d.handlePart,
		RecordedSegment: d.handleRecordedSegment,
	}
}

// streamIdentity is the Registry key: display_channel_id + "-" + quality,
// per spec.md §3/§9.
func streamIdentity(displayChannelID, quality string) string {
	return displayChannelID + "-" + quality
}

// resolveStream looks up the LiveStream for the routed channel/quality,
// returning 404 if the channel itself is unknown.
func (d *Deps) resolveStream(w http.ResponseWriter, r *http.Request) (*livestream.Stream, bool) {
	displayChannelID := chi.URLParam(r, "displayChannelId")
	quality := chi.URLParam(r, "quality")

	channel, err := d.Channels.GetByDisplayChannelID(r.Context(), displayChannelID)
	if err != nil || channel == nil {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return nil, false
	}

	return d.Streams.GetOrCreate(streamIdentity(displayChannelID, quality)), true
}

// handleLiveStream implements spec.md §4.E's Connect step: it flips the
// stream Offline->Standby or Idling->ONAir, spawning internal/liveencoder
// when the stream was not already running, then (for mpegts clients only)
// pumps WriteStreamData chunks straight to the response body.
func (d *Deps) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	displayChannelID := chi.URLParam(r, "displayChannelId")
	quality := chi.URLParam(r, "quality")
	clientTypeParam := chi.URLParam(r, "clientType")

	clientType := livestream.ClientType(clientTypeParam)
	if clientType != livestream.ClientTypeMPEGTS && clientType != livestream.ClientTypeLLHLS {
		http.Error(w, "unknown client type", http.StatusBadRequest)
		return
	}

	channel, err := d.Channels.GetByDisplayChannelID(r.Context(), displayChannelID)
	if err != nil || channel == nil {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}

	profile, ok := liveencoder.Profiles[quality]
	if !ok {
		http.Error(w, "unknown quality profile", http.StatusBadRequest)
		return
	}

	stream := d.Streams.GetOrCreate(streamIdentity(displayChannelID, quality))

	if status, _, _ := stream.Status(); status == livestream.StatusOffline {
		d.Streams.ReclaimIdling(stream)
	}

	clientID, needsSpawn := stream.Connect(clientType)

	if needsSpawn {
		if err := d.spawnEncoder(stream, channel, profile); err != nil {
			stream.Disconnect(clientID)
			stream.SetStatus(livestream.StatusOffline, err.Error())
			http.Error(w, fmt.Sprintf("starting live stream: %v", err), http.StatusServiceUnavailable)
			return
		}
	}

	if clientType == livestream.ClientTypeLLHLS {
		// The LL-HLS sub-endpoints (playlist/init/segment/part) serve the
		// actual media; this call only needed to ensure the encoder is
		// running, mirroring spec.md §4.E's Connect/Disconnect contract.
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	d.pumpMPEGTS(w, r, stream, clientID)
}

// spawnEncoder acquires a tuner session and starts internal/liveencoder for
// stream, wiring its idle hook to Unlock/Lock the session across ONAir<->
// Idling transitions and its teardown hook to release it on Offline/Restart.
func (d *Deps) spawnEncoder(stream *livestream.Stream, channel *models.Channel, profile liveencoder.Profile) error {
	tsid := uint16(0)
	if channel.TransportStreamID != nil {
		tsid = *channel.TransportStreamID
	}
	tunerChannel := tuner.Channel{
		NetworkID:         channel.NetworkID,
		TransportStreamID: tsid,
		ServiceID:         channel.ServiceID,
	}

	ctx, cancel := context.WithCancel(context.Background())

	session, rawTS, err := d.Tuners.Acquire(ctx, tunerChannel)
	if err != nil {
		cancel()
		return err
	}
	session.Lock()

	width, height := liveencoder.ResolveResolution(channel.DisplayChannelID(), profile)
	profile.Width, profile.Height = width, height

	source := liveencoder.TunerSource{
		Channel:   liveencoder.ChannelRef{DisplayChannelID: channel.DisplayChannelID(), IsRadio: channel.IsRadioChannel},
		RawTS:     rawTS,
		ServiceID: int(channel.ServiceID),
	}
	cfg := liveencoder.Config{
		Profile:      profile,
		Encoder:      d.Encoder,
		TsreadexPath: d.FFmpeg.TsreadexPath,
		EncoderPath:  d.EncoderPath,
		MaxAliveTime:  d.Live.MaxAliveTime,
		MaxRestarts:   d.Live.MaxEncoderRestarts,
		OffAirTimeout: d.Live.OffAirTimeout,
	}

	task := liveencoder.NewTask(stream, source, cfg, nil)

	// Unlock/Lock the tuner session across ONAir<->Idling transitions so a
	// different stream's Registry.Acquire can harvest this tuner while it
	// sits Idling, per spec.md §4.B steps 4-5.
	stream.SetIdleHook(func(idling bool) {
		if idling {
			session.Unlock()
		} else {
			session.Lock()
		}
	})

	stream.SetTeardownHook(func() {
		cancel()
		// Disconnect leaves the tuner running briefly so a follow-up channel
		// change can reuse it; Close (tombstoning the registry slot) only
		// happens after that grace window, per spec.md §4.B step 6.
		time.Sleep(tuner.DisconnectGrace)
		session.Unlock()
		_ = d.Tuners.Close(context.Background(), session)
	})

	go func() {
		if err := task.Run(ctx); err != nil {
			d.Logger.Error("live encoder task ended", slog.String("error", err.Error()), slog.String("channel", channel.DisplayChannelID()))
		}
	}()

	return nil
}

// pumpMPEGTS streams raw TS chunks to an mpegts passthrough client until it
// disconnects or the request context is cancelled.
func (d *Deps) pumpMPEGTS(w http.ResponseWriter, r *http.Request, stream *livestream.Stream, clientID int) {
	w.Header().Set("Content-Type", "video/mp2t")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	defer stream.Disconnect(clientID)

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		chunk, ok := stream.ReadStreamData(clientID)
		if !ok {
			return
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (d *Deps) serveLLHLS(w http.ResponseWriter, r *http.Request) {
	stream, ok := d.resolveStream(w, r)
	if !ok {
		return
	}
	// isHEVC is irrelevant once the muxer already exists; LLHLSMuxer only
	// uses it to pick the codec on first construction, which by this point
	// has already happened from the encoder's feed, per internal/llhls.
	muxer := stream.LLHLSMuxer(false)
	w.Header().Set("Cache-Control", "no-store")

	rendition := muxer.Primary
	if r.URL.Query().Get("secondary") == "1" {
		rendition = muxer.Secondary
	}
	rendition.ServeHTTP(w, r)
}

func (d *Deps) handlePlaylist(w http.ResponseWriter, r *http.Request) { d.serveLLHLS(w, r) }
func (d *Deps) handleInit(w http.ResponseWriter, r *http.Request)     { d.serveLLHLS(w, r) }
func (d *Deps) handleSegment(w http.ResponseWriter, r *http.Request)  { d.serveLLHLS(w, r) }
func (d *Deps) handlePart(w http.ResponseWriter, r *http.Request)     { d.serveLLHLS(w, r) }

// handleRecordedSegment implements spec.md §4.H/§4.I/§6: it resolves the
// recorded video, plans its segments from the stored key frame index if not
// already cached, and blocks on recorded.Session.RequestSegment until the
// requested segment is sealed.
func (d *Deps) handleRecordedSegment(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	quality := chi.URLParam(r, "quality")
	nParam := chi.URLParam(r, "n")

	id, err := models.ParseULID(idParam)
	if err != nil {
		http.Error(w, "invalid video id", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(nParam)
	if err != nil || index < 0 {
		http.Error(w, "invalid segment index", http.StatusBadRequest)
		return
	}

	video, err := d.RecordedVideos.GetByID(r.Context(), id)
	if err != nil || video == nil {
		http.Error(w, "unknown recorded video", http.StatusNotFound)
		return
	}

	profile, ok := liveencoder.Profiles[quality]
	if !ok {
		http.Error(w, "unknown quality profile", http.StatusBadRequest)
		return
	}

	sessionKey := idParam + "-" + quality
	session, err := d.recordedSessions.getOrCreate(sessionKey, func() (*recorded.Session, error) {
		plan := recorded.Plan(video.KeyFrames, d.recordedSegmentTargetSeconds(), video.Duration.Seconds())
		if len(plan) == 0 {
			return nil, errors.New("recorded video has no key frames")
		}
		cfg := recorded.TaskConfig{
			TsreadexPath: d.FFmpeg.TsreadexPath,
			EncoderPath:  d.EncoderPath,
			Encoder:      d.Encoder,
			Profile:      profile,
			ServiceID:    -1,
			IsHEVC:       profile.IsHEVC,
		}
		return recorded.NewSession(cfg, video.FilePath, plan, d.Recorded.LookAheadCount), nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	data, err := session.RequestSegment(r.Context(), index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}

	w.Header().Set("Content-Type", "video/mp2t")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (d *Deps) recordedSegmentTargetSeconds() float64 {
	if d.Recorded.SegmentDuration <= 0 {
		return 4
	}
	return d.Recorded.SegmentDuration.Seconds()
}
