package recorded

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/hanatv/hanatv/internal/liveencoder"
)

// killTimeout bounds how long a cancelled subprocess is given to exit on its
// own before Task force-kills it, per spec.md §4.I.
const killTimeout = 5 * time.Second

// TaskConfig parameterizes one recorded-video encode-ahead run.
type TaskConfig struct {
	TsreadexPath string
	EncoderPath  string
	Encoder      liveencoder.EncoderKind
	Profile      liveencoder.Profile
	ServiceID    int
	Interlaced   bool
	IsHEVC       bool
}

// Task drives one tsreadex|encoder pipeline over a recording starting at a
// given segment, re-muxing the encoder's output and sealing each Segment's
// future as its PTS boundary is crossed, per spec.md §4.I. Grounded on
// original_source/server/app/streams/VideoEncodingTask.py for the
// seek/offset/forced-GOP semantics and internal/liveencoder for the Go
// subprocess-pipeline idiom (reused directly: BuildTsreadexArgs,
// EncoderArgs, ResolveResolution).
type Task struct {
	cfg      TaskConfig
	filePath string
	plan     []Segment
	futures  []*future

	cancelled atomic.Bool
}

// NewTask constructs a Task over plan's segments, each paired 1:1 with
// futures by index.
func NewTask(cfg TaskConfig, filePath string, plan []Segment, futures []*future) *Task {
	return &Task{cfg: cfg, filePath: filePath, plan: plan, futures: futures}
}

// Cancel marks the run as cancelled so Run returns context.Canceled; it
// does not stop the subprocesses itself. Cancelling Run's ctx does that:
// they are interrupted and killed after killTimeout. Any not-yet-sealed
// futures are left unresolved so waiters simply time out, per spec.md §4.I.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
}

// Run seeks filePath to plan[fromIndex]'s start file position, spawns
// tsreadex|encoder with -copyts/--output-ts-offset set to the segment's
// start DTS (for PTS continuity with the original recording), and remuxes
// the encoder's TS output, resolving futures[fromIndex:] as each segment's
// PTS boundary is crossed.
func (t *Task) Run(ctx context.Context, fromIndex int) error {
	if fromIndex >= len(t.plan) {
		return fmt.Errorf("recorded: fromIndex %d out of range (%d segments)", fromIndex, len(t.plan))
	}

	f, err := os.Open(t.filePath)
	if err != nil {
		return fmt.Errorf("recorded: opening %s: %w", t.filePath, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(t.plan[fromIndex].StartFilePosition), io.SeekStart); err != nil {
		return fmt.Errorf("recorded: seeking: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tsreadexArgs := liveencoder.BuildTsreadexArgs(t.cfg.ServiceID, isHardwareEncoder(t.cfg.Encoder), false)
	tsreadexCmd := exec.CommandContext(runCtx, t.cfg.TsreadexPath, tsreadexArgs...)
	tsreadexCmd.Stdin = f
	tsreadexOut, err := tsreadexCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recorded: tsreadex stdout pipe: %w", err)
	}

	width, height := liveencoder.ResolveResolution("", t.cfg.Profile)
	outputTSOffset := float64(t.plan[fromIndex].StartDTS) / PCRClockHz
	encArgs := liveencoder.EncoderArgs(t.cfg.Encoder, t.cfg.Profile, width, height, t.cfg.Interlaced, outputTSOffset)
	encoderCmd := exec.CommandContext(runCtx, t.cfg.EncoderPath, encArgs...)
	encoderCmd.Stdin = tsreadexOut
	encoderOut, err := encoderCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recorded: encoder stdout pipe: %w", err)
	}

	if err := tsreadexCmd.Start(); err != nil {
		return fmt.Errorf("recorded: starting tsreadex: %w", err)
	}
	if err := encoderCmd.Start(); err != nil {
		cancel()
		_ = tsreadexCmd.Wait()
		return fmt.Errorf("recorded: starting encoder: %w", err)
	}

	done := make(chan struct{})
	go t.watchCancellation(runCtx, done, tsreadexCmd, encoderCmd)
	defer close(done)

	idx := fromIndex
	sink := &segmentSink{}
	rx := NewRemuxer(sink)

	var lastPTS int64
	onVideo := func(pts, dts int64) {
		lastPTS = pts
		for idx < len(t.plan) && lastPTS >= boundaryFor(t.plan, idx) {
			data := sink.Take()
			t.futures[idx].Resolve(data)
			idx++
			if idx < len(t.plan) {
				_ = rx.Reinitialize()
			}
		}
	}

	runErr := rx.Run(encoderOut, onVideo, nil)

	waitErr := tsreadexCmd.Wait()
	encWaitErr := encoderCmd.Wait()

	if t.cancelled.Load() {
		return context.Canceled
	}
	if runErr != nil {
		return fmt.Errorf("recorded: remux: %w", runErr)
	}
	if waitErr != nil {
		return fmt.Errorf("recorded: tsreadex exited: %w", waitErr)
	}
	if encWaitErr != nil {
		return fmt.Errorf("recorded: encoder exited: %w", encWaitErr)
	}

	// the run reached EOF with bytes still pending for the final segment
	// (its boundary, being derived from total duration, may never be
	// crossed exactly); seal whatever remains.
	if idx < len(t.plan) {
		t.futures[idx].Resolve(sink.Take())
	}
	return nil
}

// boundaryFor returns the PTS (90kHz ticks) at which segment i seals: the
// next segment's start DTS, or for the last segment, its own start plus
// its planned duration.
func boundaryFor(plan []Segment, i int) int64 {
	if i+1 < len(plan) {
		return int64(plan[i+1].StartDTS)
	}
	return int64(plan[i].StartDTS) + int64(plan[i].DurationSeconds*PCRClockHz)
}

// watchCancellation kills both subprocesses within killTimeout once either
// the run is cancelled or ctx is done, per spec.md §4.I.
func (t *Task) watchCancellation(ctx context.Context, done <-chan struct{}, cmds ...*exec.Cmd) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	for _, cmd := range cmds {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(os.Interrupt)
		}
	}
	timer := time.NewTimer(killTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		for _, cmd := range cmds {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		}
	}
}

func isHardwareEncoder(kind liveencoder.EncoderKind) bool {
	return kind != liveencoder.EncoderFFmpeg
}
