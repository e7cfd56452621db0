package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdash/console/internal/live"
	"trackdash/console/internal/tracker"
)

func TestTrackerRows(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	list := []tracker.Tracker{
		{ID: "t1", Name: "Van", Type: tracker.KindTracker, Status: tracker.StatusOnline,
			LastFix: &tracker.Fix{Battery: 81.4, Timestamp: now.Add(-5 * time.Minute)}},
		{ID: "t2", Name: "Phone", Type: tracker.KindMobile, Status: tracker.StatusOffline},
	}
	rows := trackerRows(list, "t2", now)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{" ", "t1", "Van", "tracker", "online", "81%", "5m ago"}, []string(rows[0]))
	assert.Equal(t, []string{"*", "t2", "Phone", "mobile", "offline", "-", "-"}, []string(rows[1]))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "-", formatAge(time.Time{}, now))
	assert.Equal(t, "just now", formatAge(now.Add(-10*time.Second), now))
	assert.Equal(t, "3h ago", formatAge(now.Add(-3*time.Hour), now))
}

func TestBuildOptions(t *testing.T) {
	def := CommandDef{Name: "start-video", Fields: []FieldDef{
		{Name: "camera"},
		{Name: "maxSeconds", Int: true},
		{Name: "note", Required: true},
	}}

	opts, err := buildOptions(def, []string{"front", "45", "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"camera": "front", "maxSeconds": 45, "note": "x"}, opts)

	_, err = buildOptions(def, []string{"front", "soon", "x"})
	assert.ErrorContains(t, err, "maxSeconds must be a number")

	_, err = buildOptions(def, []string{"", "", ""})
	assert.ErrorContains(t, err, "note is required")
}

type staticLive struct {
	device string
	fix    *tracker.Fix
	path   []tracker.LatLng
	err    error
}

func (s staticLive) Device() string    { return s.device }
func (s staticLive) State() live.State { return live.StateStreaming }
func (s staticLive) Err() error        { return s.err }
func (s staticLive) Path() []tracker.LatLng {
	return s.path
}
func (s staticLive) Latest() (tracker.Fix, bool) {
	if s.fix == nil {
		return tracker.Fix{}, false
	}
	return *s.fix, true
}

func TestLiveSectionHidesOtherDevice(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	src := staticLive{
		device: "A",
		fix:    &tracker.Fix{Latitude: 10.12345, Longitude: 20.54321, Battery: 50, Timestamp: now},
		path:   []tracker.LatLng{{10.12345, 20.54321}},
		err:    errors.New("snapshot A: boom"),
	}

	own := liveSection(src, "A", now)
	assert.Contains(t, own, "10.12345, 20.54321")
	assert.Contains(t, own, "1 points")
	assert.Contains(t, own, "boom")

	other := liveSection(src, "B", now)
	assert.NotContains(t, other, "10.12345")
	assert.NotContains(t, other, "points")
	assert.NotContains(t, other, "boom")
	assert.Contains(t, other, "waiting for fix")
}
