package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEPGRefreshNowRunsRegisteredJob(t *testing.T) {
	var epgRuns, gcRuns int32

	s := New("0 * * * *", "0 * * * *", func(ctx context.Context) error {
		atomic.AddInt32(&epgRuns, 1)
		return nil
	}, func(ctx context.Context) error {
		atomic.AddInt32(&gcRuns, 1)
		return nil
	}, nil)

	// robfig/cron's default parser is 5-field (minute granularity); use
	// RunEPGRefreshNow instead of waiting a full hour for scheduled fire.
	require.NoError(t, s.RunEPGRefreshNow(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&epgRuns))
}

func TestSchedulerStartRequiresCronScheduleWhenJobConfigured(t *testing.T) {
	s := New("", "0 * * * *", func(ctx context.Context) error { return nil }, nil, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "epg refresh")
}

func TestSchedulerStartSkipsNilJobs(t *testing.T) {
	s := New("", "", nil, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestRunEPGRefreshNowRequiresConfiguredJob(t *testing.T) {
	s := New("", "", nil, nil, nil)
	err := s.RunEPGRefreshNow(context.Background())
	require.Error(t, err)
}

func TestSchedulerStartAndStop(t *testing.T) {
	var runs int32
	s := New("@every 50ms", "@every 50ms", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, func(ctx context.Context) error {
		return nil
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	// robfig/cron rounds "@every" delays below one second up to one second,
	// so the first run lands within a second of Start.
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
}
