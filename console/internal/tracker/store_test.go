package tracker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (m *memSaver) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, id)
	return m.err
}

func (m *memSaver) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return ""
	}
	return m.saved[len(m.saved)-1]
}

func sample(ids ...string) []Tracker {
	out := make([]Tracker, 0, len(ids))
	for _, id := range ids {
		out = append(out, Tracker{ID: id, Name: "tracker " + id, Type: KindTracker, Status: StatusOffline})
	}
	return out
}

func TestStore_LoadSelectsFirst(t *testing.T) {
	saver := &memSaver{}
	s := NewStore(saver)

	var got []string
	s.OnSelect(func(id string) { got = append(got, id) })

	s.Load(sample("a", "b"))
	assert.Equal(t, "a", s.Selected())
	assert.Equal(t, "a", saver.last())
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 2, s.Len())

	// Reloading with the selection still present keeps it.
	require.NoError(t, s.Select("b"))
	s.Load(sample("a", "b", "c"))
	assert.Equal(t, "b", s.Selected())

	// Reloading without it falls back to the first tracker.
	s.Load(sample("c", "d"))
	assert.Equal(t, "c", s.Selected())
}

func TestStore_LoadJSON(t *testing.T) {
	s := NewStore(nil)
	require.NoError(t, s.LoadJSON([]byte(`[{"id":"x","name":"Car","type":"tracker","status":"online"}]`)))
	tr, ok := s.Get("x")
	require.True(t, ok)
	assert.Equal(t, "Car", tr.Name)
	assert.Equal(t, StatusOnline, tr.Status)

	for _, payload := range []string{`{"id":"y"}`, `null`, ``, `[{"id":`} {
		err := s.LoadJSON([]byte(payload))
		assert.True(t, errors.Is(err, ErrMalformedCollection), "payload %q", payload)
	}
	// Store unchanged after rejected payloads.
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "x", s.Selected())
}

func TestStore_Select(t *testing.T) {
	saver := &memSaver{}
	s := NewStore(saver)
	s.Load(sample("a", "b"))

	assert.ErrorIs(t, s.Select("zzz"), ErrUnknownTracker)
	require.NoError(t, s.Select("b"))
	assert.Equal(t, "b", s.Selected())
	assert.Equal(t, "b", saver.last())
}

func TestStore_UpsertAutoSelects(t *testing.T) {
	s := NewStore(nil)
	assert.True(t, s.Upsert(Tracker{ID: "a"}))
	assert.Equal(t, "a", s.Selected())

	assert.False(t, s.Upsert(Tracker{ID: "a", Name: "dup"}))
	assert.True(t, s.Upsert(Tracker{ID: "b"}))
	assert.Equal(t, "a", s.Selected())
	tr, _ := s.Get("a")
	assert.Empty(t, tr.Name)
}

func TestStore_Patch(t *testing.T) {
	s := NewStore(nil)
	s.Load(sample("a"))

	name := "Family car"
	fence := Geofence{Home: LatLng{12.97, 77.59}, Radius: 250, Active: true}
	require.NoError(t, s.Patch("a", Patch{Name: &name, Geofence: &fence}))

	tr, _ := s.Get("a")
	assert.Equal(t, "Family car", tr.Name)
	assert.Equal(t, KindTracker, tr.Type)
	assert.Equal(t, fence, tr.Geofence)

	assert.ErrorIs(t, s.Patch("nope", Patch{Name: &name}), ErrUnknownTracker)
}

func TestStore_RemoveReselects(t *testing.T) {
	s := NewStore(nil)
	s.Load(sample("a", "b", "c"))
	require.NoError(t, s.Select("b"))

	assert.True(t, s.Remove("b"))
	assert.Equal(t, "a", s.Selected())

	assert.True(t, s.Remove("c"))
	assert.Equal(t, "a", s.Selected())

	assert.True(t, s.Remove("a"))
	assert.Equal(t, "", s.Selected())
	assert.False(t, s.Remove("a"))
}

func TestStore_Adopt(t *testing.T) {
	saver := &memSaver{}
	s := NewStore(saver)

	// Before load the adopted id is kept pending.
	assert.True(t, s.Adopt("b"))
	s.Load(sample("a", "b"))
	assert.Equal(t, "b", s.Selected())
	assert.Empty(t, saver.saved)

	assert.False(t, s.Adopt("unknown"))
	assert.False(t, s.Adopt("b"))
	assert.True(t, s.Adopt("a"))
	assert.Equal(t, "a", s.Selected())
	assert.Empty(t, saver.saved)
}

func TestStore_StatusAndFix(t *testing.T) {
	s := NewStore(nil)
	s.Load(sample("a"))

	s.SetStatus("a", StatusOnline)
	s.SetStatus("a", Status("bogus"))
	fix := Fix{Latitude: 1, Longitude: 2, Timestamp: time.Unix(100, 0), Battery: 80}
	s.ApplyFix("a", fix)

	tr, _ := s.Get("a")
	assert.Equal(t, StatusOnline, tr.Status)
	require.NotNil(t, tr.LastFix)
	assert.Equal(t, fix, *tr.LastFix)

	// Returned copies do not alias store state.
	tr.LastFix.Battery = 1
	again, _ := s.Get("a")
	assert.Equal(t, 80.0, again.LastFix.Battery)
}

func TestStore_ErrorSlot(t *testing.T) {
	s := NewStore(nil)
	assert.NoError(t, s.Err())
	s.SetError(errors.New("boom"))
	assert.EqualError(t, s.Err(), "boom")
	s.SetError(nil)
	assert.NoError(t, s.Err())
}
