package recorded

import (
	"testing"

	"github.com/hanatv/hanatv/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanGroupsKeyFramesToAtLeastTargetDuration(t *testing.T) {
	keyFrames := []models.KeyFrame{
		{DTS: 0, Offset: 0},
		{DTS: 45000, Offset: 1000},   // +0.5s
		{DTS: 90000, Offset: 2000},   // +1.0s total -> seals first group (target 1s)
		{DTS: 135000, Offset: 3000},  // +0.5s into next group
		{DTS: 180000, Offset: 4000},  // +1.0s -> seals second group
	}

	segments := Plan(keyFrames, 1.0, 3.0)
	require.Len(t, segments, 3)

	assert.Equal(t, uint64(0), segments[0].StartDTS)
	assert.InDelta(t, 1.0, segments[0].DurationSeconds, 1e-9)

	assert.Equal(t, uint64(90000), segments[1].StartDTS)
	assert.InDelta(t, 1.0, segments[1].DurationSeconds, 1e-9)
}

func TestPlanLastSegmentUsesTotalDuration(t *testing.T) {
	keyFrames := []models.KeyFrame{
		{DTS: 0, Offset: 0},
		{DTS: 90000, Offset: 1000},
	}

	segments := Plan(keyFrames, 100.0, 1.5)
	require.Len(t, segments, 1)
	assert.InDelta(t, 1.5, segments[0].DurationSeconds, 1e-9)
}

func TestPlanEmptyKeyFramesReturnsNil(t *testing.T) {
	assert.Nil(t, Plan(nil, 1.0, 0))
}
