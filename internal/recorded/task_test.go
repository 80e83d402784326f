package recorded

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hanatv/hanatv/internal/liveencoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() []Segment {
	return []Segment{
		{Index: 0, StartFilePosition: 0, StartDTS: 0, DurationSeconds: 1.0},
		{Index: 1, StartFilePosition: 188000, StartDTS: 90000, DurationSeconds: 1.0},
	}
}

func testConfig() TaskConfig {
	return TaskConfig{
		TsreadexPath: "/bin/false",
		EncoderPath:  "/bin/false",
		Encoder:      liveencoder.EncoderFFmpeg,
		Profile:      liveencoder.Profiles["720p"],
	}
}

func TestTaskRunReturnsErrorWhenSubprocessesFail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.ts")
	require.NoError(t, os.WriteFile(path, make([]byte, 188*10), 0o644))

	plan := testPlan()
	futures := []*future{newFuture(), newFuture()}
	task := NewTask(testConfig(), path, plan, futures)

	err := task.Run(context.Background(), 0)
	assert.Error(t, err)
	assert.False(t, futures[0].Resolved())
}

func TestTaskRunRejectsOutOfRangeStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.ts")
	require.NoError(t, os.WriteFile(path, make([]byte, 188), 0o644))

	plan := testPlan()
	futures := []*future{newFuture(), newFuture()}
	task := NewTask(testConfig(), path, plan, futures)

	err := task.Run(context.Background(), len(plan))
	assert.Error(t, err)
}

func TestBoundaryForLastSegmentUsesDuration(t *testing.T) {
	plan := testPlan()
	assert.Equal(t, int64(90000), boundaryFor(plan, 0))
	assert.Equal(t, int64(180000), boundaryFor(plan, 1))
}
