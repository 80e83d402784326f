package livestream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOrCreateReturnsSameStreamForIdentity(t *testing.T) {
	r := NewRegistry()
	s1 := r.GetOrCreate("gr011-1080p")
	s2 := r.GetOrCreate("gr011-1080p")
	assert.Same(t, s1, s2)
}

func TestFindIdlingReturnsIdlingStream(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("gr011-1080p")
	idling := r.GetOrCreate("gr022-720p")
	idling.SetStatus(StatusIdling, "")

	found := r.FindIdling()
	assert.Same(t, idling, found)
}

func TestFindIdlingReturnsNilWhenNoneIdling(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("gr011-1080p")
	assert.Nil(t, r.FindIdling())
}

func TestReclaimIdlingOfflinesTheIdlingStream(t *testing.T) {
	r := NewRegistry()
	incoming := r.GetOrCreate("gr011-1080p")
	idling := r.GetOrCreate("gr022-720p")
	idling.SetStatus(StatusIdling, "")

	r.ReclaimIdling(incoming)

	status, _, _ := idling.Status()
	assert.Equal(t, StatusOffline, status)
}

func TestReclaimIdlingSkipsExceptedStream(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate("gr011-1080p")
	s.SetStatus(StatusIdling, "")

	r.ReclaimIdling(s)

	status, _, _ := s.Status()
	assert.Equal(t, StatusIdling, status, "the stream being reclaimed for must never reclaim itself")
}

func TestReclaimIdlingIsNoOpWhenNoneIdling(t *testing.T) {
	r := NewRegistry()
	incoming := r.GetOrCreate("gr011-1080p")
	other := r.GetOrCreate("gr022-720p")

	r.ReclaimIdling(incoming)

	status, _, _ := other.Status()
	assert.Equal(t, StatusOffline, status)
}
