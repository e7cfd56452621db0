package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdash/console/internal/tracker"
)

type fakeHistory struct {
	fixes []tracker.Fix
	err   error
	calls int
}

func (f *fakeHistory) History(context.Context, string, time.Time, time.Time) ([]tracker.Fix, error) {
	f.calls++
	return f.fixes, f.err
}

func fixes(pts ...[2]float64) []tracker.Fix {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]tracker.Fix, 0, len(pts))
	for i, p := range pts {
		out = append(out, tracker.Fix{Latitude: p[0], Longitude: p[1], Timestamp: t0.Add(time.Duration(i) * time.Minute)})
	}
	return out
}

func loaded(t *testing.T, step time.Duration, pts ...[2]float64) *Player {
	t.Helper()
	p := New(&fakeHistory{fixes: fixes(pts...)}, step)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Load(context.Background(), "t1", from, from.Add(time.Hour)))
	return p
}

func TestPlayRunsToEnd(t *testing.T) {
	p := loaded(t, 5*time.Millisecond, [2]float64{1, 1}, [2]float64{2, 2}, [2]float64{3, 3})
	require.NoError(t, p.Play(context.Background()))

	require.Eventually(t, func() bool { return !p.Playing() }, time.Second, 5*time.Millisecond)
	_, idx, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, []tracker.LatLng{{1, 1}, {2, 2}, {3, 3}}, p.Trail())
}

func TestPauseSeekStop(t *testing.T) {
	p := loaded(t, time.Hour, [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{2, 2}, [2]float64{3, 3})
	require.NoError(t, p.Play(context.Background()))
	assert.True(t, p.Playing())
	p.Pause()
	assert.False(t, p.Playing())

	require.NoError(t, p.Seek(2))
	fix, idx, _ := p.Current()
	assert.Equal(t, 2, idx)
	assert.Equal(t, 2.0, fix.Latitude)
	assert.Equal(t, []tracker.LatLng{{1, 1}, {2, 2}}, p.Trail())

	assert.ErrorIs(t, p.Seek(4), ErrOutOfRange)
	assert.ErrorIs(t, p.Seek(-1), ErrOutOfRange)

	p.Stop()
	_, idx, _ = p.Current()
	assert.Equal(t, 0, idx)
}

func TestPlayRestartsFromEnd(t *testing.T) {
	p := loaded(t, time.Hour, [2]float64{1, 1}, [2]float64{2, 2})
	require.NoError(t, p.Seek(1))
	require.NoError(t, p.Play(context.Background()))
	defer p.Pause()
	_, idx, _ := p.Current()
	assert.Equal(t, 0, idx)
}

func TestPlayWithoutHistory(t *testing.T) {
	p := New(&fakeHistory{}, 0)
	assert.Equal(t, time.Second, p.step)
	assert.ErrorIs(t, p.Play(context.Background()), ErrEmpty)
	assert.ErrorIs(t, p.Seek(0), ErrEmpty)
	_, _, ok := p.Current()
	assert.False(t, ok)
	assert.Nil(t, p.Trail())
}

func TestLoadValidatesRangeAndErrors(t *testing.T) {
	src := &fakeHistory{err: errors.New("500")}
	p := New(src, time.Second)
	now := time.Now()

	assert.Error(t, p.Load(context.Background(), "t1", now, now))
	assert.Zero(t, src.calls)

	err := p.Load(context.Background(), "t1", now.Add(-time.Hour), now)
	assert.ErrorContains(t, err, "500")
	assert.Zero(t, p.Len())
}

func TestCancelledContextStopsPlayback(t *testing.T) {
	p := loaded(t, time.Hour, [2]float64{1, 1}, [2]float64{2, 2})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Play(ctx))
	cancel()
	p.Pause()
	assert.False(t, p.Playing())
}
