package liveencoder

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/hanatv/hanatv/internal/livestream"
	"github.com/stretchr/testify/assert"
)

func TestLogWatcherLoopAppliesClassifiedTransitions(t *testing.T) {
	stream := livestream.New("gr011-1080p")
	task := &Task{stream: stream}

	r, w := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- task.logWatcherLoop(r) }()

	go func() {
		w.Write([]byte("arib parser was created\n"))
		w.Write([]byte("frame=   12 fps=30\n"))
		w.Close()
	}()

	err := <-done
	assert.NoError(t, err)

	status, _, _ := stream.Status()
	assert.Equal(t, livestream.StatusONAir, status)
}

func TestLogWatcherLoopReturnsFatalErrorOnHEVCUnsupported(t *testing.T) {
	stream := livestream.New("bs01-1080p")
	task := &Task{stream: stream}

	r, w := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- task.logWatcherLoop(r) }()

	go func() {
		w.Write([]byte("HEVC encoding is not supported on current platform\n"))
		w.Close()
	}()

	err := <-done
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEncoderFatal)
}

// blockingReader never yields data, so runOnce's only way out is the
// subprocess itself exiting, which /bin/false guarantees immediately.
type blockingReader struct {
	closed chan struct{}
}

func newBlockingReader() *blockingReader { return &blockingReader{closed: make(chan struct{})} }

func (r *blockingReader) Read(p []byte) (int, error) {
	<-r.closed
	return 0, io.EOF
}

func (r *blockingReader) Close() error {
	close(r.closed)
	return nil
}

func TestRunStopsPermanentlyAfterMaxRetryCount(t *testing.T) {
	stream := livestream.New("gr022-720p")

	cfg := Config{
		Profile:      Profiles["720p"],
		Encoder:      EncoderFFmpeg,
		TsreadexPath: "/bin/false",
		EncoderPath:  "/bin/false",
	}
	task := NewTask(stream, TunerSource{RawTS: newBlockingReader()}, cfg, nil)

	err := task.Run(context.Background())
	assert.Error(t, err)

	status, _, _ := stream.Status()
	assert.Equal(t, livestream.StatusOffline, status)
}

func TestSupervisorLoopOffersFatalErrorWhenIdleLongerThanMaxAliveTime(t *testing.T) {
	stream := livestream.New("gr030-720p")
	stream.SetStatus(livestream.StatusIdling, "")

	task := &Task{stream: stream, cfg: Config{MaxAliveTime: 50 * time.Millisecond}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := task.supervisorLoop(ctx, make(chan error), make(chan error))
	assert.Error(t, err)

	var fatal *fatalError
	assert.ErrorAs(t, err, &fatal)
}

func TestSupervisorLoopGoesFatalOnTunerStall(t *testing.T) {
	stream := livestream.New("gr031-720p")
	stream.SetStatus(livestream.StatusStandby, "")

	task := &Task{stream: stream, cfg: Config{OffAirTimeout: 30 * time.Millisecond}}
	task.lastTunerReadAt.Store(time.Now().Add(-time.Hour).UnixNano())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := task.supervisorLoop(ctx, make(chan error), make(chan error))
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrOffAir)

	var fatal *fatalError
	assert.ErrorAs(t, err, &fatal)
}
