package liveencoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanatv/hanatv/internal/ffmpeg"
	"github.com/hanatv/hanatv/internal/livestream"
	"github.com/hanatv/hanatv/internal/llhls"
	"github.com/hanatv/hanatv/internal/tsutil"
)

// ErrEncoderFatal is the sentinel wrapped by a permanent-Offline
// classification (e.g. unsupported HEVC on this hardware), per spec.md §7.
var ErrEncoderFatal = errors.New("liveencoder: fatal encoder diagnosis")

// ErrOffAir is raised when the tuner is connected but emits no usable
// video/audio, per spec.md §7.
var ErrOffAir = errors.New("liveencoder: off-air or receive error")

// MaxRetryCount is the default restart budget bounding consecutive restarts
// before the stream is moved to permanent Offline, per spec.md §4.F/§8
// scenario 6. config.LiveConfig.MaxEncoderRestarts overrides it when set.
const MaxRetryCount = 10

// Timings from spec.md §4.F's supervisor tick.
const (
	supervisorTick        = 100 * time.Millisecond
	tunerStallTimeout      = 15 * time.Second
	standbyStallTimeout    = 20 * time.Second
	onAirStallTimeout      = 5 * time.Second
	onAirStallTimeoutVCE   = 10 * time.Second
)

// TunerSource supplies the raw MPEG-TS socket and its channel identity; it
// is satisfied by internal/tuner.Session plus its associated io.ReadCloser.
type TunerSource struct {
	Channel     ChannelRef
	RawTS       io.ReadCloser
	ServiceID   int
}

// ChannelRef is the minimal channel identity the encoder task needs.
type ChannelRef struct {
	DisplayChannelID string
	IsRadio          bool
}

// Config holds per-task parameters resolved once at Task construction.
type Config struct {
	Profile             Profile
	Encoder             EncoderKind
	TsreadexPath        string
	EncoderPath         string
	MaxAliveTime        time.Duration // how long Idling is tolerated before Offline
	MaxRestarts         int           // restart budget override; <=0 uses MaxRetryCount
	OffAirTimeout       time.Duration // tuner-silence duration before off-air classification; <=0 uses tunerStallTimeout
	IsVCEEncC           bool
}

// maxRestarts returns cfg.MaxRestarts if set, else the package default.
func (c Config) maxRestarts() int {
	if c.MaxRestarts > 0 {
		return c.MaxRestarts
	}
	return MaxRetryCount
}

// offAirTimeout returns cfg.OffAirTimeout if set, else the package default.
func (c Config) offAirTimeout() time.Duration {
	if c.OffAirTimeout > 0 {
		return c.OffAirTimeout
	}
	return tunerStallTimeout
}

// Archiver receives every raw TS batch read from the tuner, for the PSI/SI
// archiver (live LL-HLS caption track), satisfied by internal/psiarchive's
// writer side or a no-op.
type Archiver interface {
	Archive(batch []byte)
}

type noopArchiver struct{}

func (noopArchiver) Archive([]byte) {}

// Task orchestrates tsreadex → encoder for one LiveStream, per spec.md §4.F.
type Task struct {
	stream   *livestream.Stream
	source   TunerSource
	cfg      Config
	archiver Archiver

	tsreadexCmd *exec.Cmd
	encoderCmd  *exec.Cmd
	monitor     *ffmpeg.ProcessMonitor

	writer *BufferedWriter

	lastTunerReadAt  atomic.Int64 // unix nano
	lastFlushWriteAt atomic.Int64 // unix nano; tracked separately from BufferedWriter's own bookkeeping for supervisor visibility
	retryCount       int
	currentProgramTitle string

	mu sync.Mutex
}

// NewTask constructs a Task for stream, fed by source, using cfg.
func NewTask(stream *livestream.Stream, source TunerSource, cfg Config, archiver Archiver) *Task {
	if archiver == nil {
		archiver = noopArchiver{}
	}
	return &Task{stream: stream, source: source, cfg: cfg, archiver: archiver, writer: NewBufferedWriter(stream)}
}

// Run drives the task until ctx is cancelled, a fatal diagnosis is made, or
// the restart budget is exhausted. The last two move the stream to Offline
// via stream.SetStatus and also return the cause as an error.
func (t *Task) Run(ctx context.Context) error {
	for {
		err := t.runOnce(ctx)
		if err == nil {
			t.mu.Lock()
			t.retryCount = 0
			t.mu.Unlock()
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		var fatal *fatalError
		if errors.As(err, &fatal) {
			t.stream.SetStatus(livestream.StatusOffline, fatal.Detail)
			return err
		}

		maxRestarts := t.cfg.maxRestarts()
		t.mu.Lock()
		t.retryCount++
		exceeded := t.retryCount > maxRestarts
		t.mu.Unlock()

		if exceeded {
			t.stream.SetStatus(livestream.StatusOffline, "エンコーダーの再起動回数が上限に達しました。")
			return fmt.Errorf("liveencoder: exceeded max retry count (%d): %w", maxRestarts, err)
		}
		t.stream.SetStatus(livestream.StatusRestart, err.Error())
		// brief backoff before restart, scaled with the probe-size/interleave
		// increments spec.md §4.F describes to ride over transient parse
		// failures — represented here as a widening sleep.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(t.retryCount) * 200 * time.Millisecond):
		}
	}
}

type fatalError struct {
	Detail string
	Err    error
}

func (e *fatalError) Error() string { return e.Detail }
func (e *fatalError) Unwrap() error  { return e.Err }

// runOnce spawns tsreadex+encoder, wires the Reader/Writer/SubWriter/
// LogWatcher goroutines, and runs the supervisor until a terminal condition.
func (t *Task) runOnce(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	width, height := ResolveResolution(t.source.Channel.DisplayChannelID, t.cfg.Profile)

	tsreadexArgs := BuildTsreadexArgs(t.source.ServiceID, t.cfg.Encoder != EncoderFFmpeg, false)
	tsreadex := exec.CommandContext(runCtx, t.cfg.TsreadexPath, tsreadexArgs...)
	tsreadexIn, err := tsreadex.StdinPipe()
	if err != nil {
		return err
	}
	tsreadexOut, err := tsreadex.StdoutPipe()
	if err != nil {
		return err
	}

	encArgs := EncoderArgs(t.cfg.Encoder, t.cfg.Profile, width, height, false, 0)
	encoder := exec.CommandContext(runCtx, t.cfg.EncoderPath, encArgs...)
	encoder.Stdin = tsreadexOut
	encoderOut, err := encoder.StdoutPipe()
	if err != nil {
		return err
	}
	encoderErr, err := encoder.StderrPipe()
	if err != nil {
		return err
	}

	if err := tsreadex.Start(); err != nil {
		return fmt.Errorf("liveencoder: start tsreadex: %w", err)
	}
	if err := encoder.Start(); err != nil {
		return fmt.Errorf("liveencoder: start encoder: %w", err)
	}

	monitor := ffmpeg.NewProcessMonitor(encoder.Process.Pid)
	monitor.Start()
	defer monitor.Stop()
	countingOut := ffmpeg.NewCountingReader(encoderOut, monitor)

	t.mu.Lock()
	t.tsreadexCmd, t.encoderCmd, t.monitor = tsreadex, encoder, monitor
	t.mu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	wg.Add(1)
	go func() { defer wg.Done(); t.readerLoop(runCtx, tsreadexIn, errCh) }()

	// muxerFeed gets a second copy of the encoder's TS output so the LL-HLS
	// muxer (spec.md §4.G) can be fed from the same stream that populates
	// mpegts clients, without the two paths sharing a read cursor.
	muxerFeedR, muxerFeedW := io.Pipe()
	wg.Add(1)
	go func() { defer wg.Done(); t.writerLoop(runCtx, io.TeeReader(countingOut, muxerFeedW), errCh) }()

	wg.Add(1)
	go func() { defer wg.Done(); t.feedLLHLS(muxerFeedR) }()

	wg.Add(1)
	stopSubWriter := make(chan struct{})
	go func() { defer wg.Done(); t.writer.RunSubWriter(stopSubWriter) }()

	wg.Add(1)
	logDone := make(chan error, 1)
	go func() { defer wg.Done(); logDone <- t.logWatcherLoop(encoderErr) }()

	supervisorErr := t.supervisorLoop(runCtx, errCh, logDone)

	cancel()
	close(stopSubWriter)
	_ = tsreadexIn.Close()
	_ = tsreadex.Wait()
	_ = encoder.Wait()
	_ = muxerFeedW.Close()
	wg.Wait()

	return supervisorErr
}

// feedLLHLS demuxes the encoder's TS output into access units and forwards
// them to the stream's LL-HLS muxer (spec.md §4.E/§4.G). Runs unconditionally,
// the same way WriteStreamData always fans out to mpegts clients regardless
// of whether any are connected — the muxer itself stays dormant until a real
// access unit with full parameter sets arrives.
func (t *Task) feedLLHLS(r io.Reader) {
	muxer := t.stream.LLHLSMuxer(t.cfg.Profile.IsHEVC)
	feeder := llhls.NewFeeder(muxer)
	_ = feeder.Run(r)
}

// readerLoop reads 188*256-byte batches from the tuner socket, tees them to
// the PSI archiver, and forwards them to tsreadex's stdin, per spec.md §4.F.
func (t *Task) readerLoop(ctx context.Context, out io.WriteCloser, errCh chan<- error) {
	defer out.Close()
	const batchSize = 188 * 256
	buf := make([]byte, batchSize)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := io.ReadFull(t.source.RawTS, buf)
		if n > 0 {
			t.lastTunerReadAt.Store(time.Now().UnixNano())
			batch := make([]byte, n)
			copy(batch, buf[:n])
			t.archiver.Archive(batch)
			if _, werr := out.Write(batch); werr != nil {
				select {
				case errCh <- werr:
				default:
				}
				return
			}
		}
		if err != nil {
			if err != io.ErrUnexpectedEOF && err != io.EOF {
				select {
				case errCh <- err:
				default:
				}
			}
			return
		}
	}
}

// writerLoop reads exactly 188 bytes at a time from the encoder's stdout
// and hands each packet to the BufferedWriter, per spec.md §4.F.
func (t *Task) writerLoop(ctx context.Context, in io.Reader, errCh chan<- error) {
	r := bufio.NewReaderSize(in, 188*64)
	packet := make([]byte, tsutil.PacketSize)
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := io.ReadFull(r, packet); err != nil {
			if err != io.EOF {
				select {
				case errCh <- err:
				default:
				}
			}
			return
		}
		t.writer.WritePacket(packet)
		t.lastFlushWriteAt.Store(time.Now().UnixNano())
	}
}

// logWatcherLoop reads stderr lines, classifies each via Classify, and
// applies the resulting transition to stream.SetStatus, per spec.md §4.F.
func (t *Task) logWatcherLoop(stderr io.Reader) error {
	scanner := bufio.NewScanner(stderr)
	const maxLineSize = 1 << 20
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		tr, ok := Classify(line)
		if !ok {
			continue
		}
		if tr.Fatal {
			return &fatalError{Detail: tr.Detail, Err: ErrEncoderFatal}
		}
		t.stream.SetStatus(livestream.Status(tr.Status), tr.Detail)
	}
	return nil
}

// supervisorLoop runs the 100ms tick of spec.md §4.F parts (b)-(g).
func (t *Task) supervisorLoop(ctx context.Context, errCh <-chan error, logDone <-chan error) error {
	ticker := time.NewTicker(supervisorTick)
	defer ticker.Stop()

	onAirTimeout := onAirStallTimeout
	if t.cfg.IsVCEEncC {
		onAirTimeout = onAirStallTimeoutVCE
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errCh:
			return err

		case err := <-logDone:
			if err != nil {
				return err
			}
			// encoder process exited cleanly with no fatal classification:
			// treat as a transient failure under the restart budget.
			return fmt.Errorf("liveencoder: encoder exited")

		case <-ticker.C:
			status, _, updatedAt := t.stream.Status()

			if status == livestream.StatusONAir && t.stream.ClientCount() == 0 {
				t.stream.SetStatus(livestream.StatusIdling, "")
				status = livestream.StatusIdling
				updatedAt = time.Now()
			}

			if status == livestream.StatusIdling && t.cfg.MaxAliveTime > 0 && time.Since(updatedAt) > t.cfg.MaxAliveTime {
				return &fatalError{Detail: "", Err: fmt.Errorf("liveencoder: idle longer than %s", t.cfg.MaxAliveTime)}
			}

			lastTuner := t.lastTunerReadAt.Load()
			if lastTuner != 0 && time.Since(time.Unix(0, lastTuner)) > t.cfg.offAirTimeout() {
				detail := ClassifyOffAir(t.currentProgramTitle)
				return &fatalError{Detail: detail, Err: ErrOffAir}
			}

			lastWrite := t.lastFlushWriteAt.Load()
			if lastWrite != 0 {
				idle := time.Since(time.Unix(0, lastWrite))
				if (status == livestream.StatusStandby && idle > standbyStallTimeout) ||
					(status == livestream.StatusONAir && idle > onAirTimeout) {
					return fmt.Errorf("liveencoder: no stream output for %s", idle)
				}
			}
		}
	}
}
