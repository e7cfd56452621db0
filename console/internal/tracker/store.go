package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"trackdash/console/internal/logger"
)

var (
	ErrMalformedCollection = errors.New("tracker collection is not an array")
	ErrUnknownTracker      = errors.New("unknown tracker")
)

// SelectionSaver persists the selected tracker id so other consoles observe it.
type SelectionSaver interface {
	Save(id string) error
}

// Store is the normalized in-memory table of the user's trackers with a single
// selection pointer. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	order    []string
	byID     map[string]*Tracker
	selected string
	err      error
	saver    SelectionSaver

	lmu       sync.Mutex
	listeners map[int]func(string)
	nextID    int
}

func NewStore(saver SelectionSaver) *Store {
	return &Store{
		byID:      make(map[string]*Tracker),
		saver:     saver,
		listeners: make(map[int]func(string)),
	}
}

// OnSelect registers fn to run after every selection change.
func (s *Store) OnSelect(fn func(id string)) (off func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) notify(id string) {
	s.lmu.Lock()
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(id)
	}
}

func (s *Store) persist(id string) {
	if s.saver == nil {
		return
	}
	if err := s.saver.Save(id); err != nil {
		logger.Warnf("persist selection %q failed: %v", id, err)
	}
}

// LoadJSON replaces the collection from a raw API payload. Anything other than
// a JSON array is rejected and the store is left unchanged.
func (s *Store) LoadJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		logger.Errorf("rejecting tracker payload: %v", ErrMalformedCollection)
		return ErrMalformedCollection
	}
	var list []Tracker
	if err := json.Unmarshal(trimmed, &list); err != nil {
		logger.Errorf("rejecting tracker payload: %v", err)
		return fmt.Errorf("%w: %v", ErrMalformedCollection, err)
	}
	s.Load(list)
	return nil
}

// Load replaces the collection. A selection that is missing or no longer
// present falls back to the first tracker.
func (s *Store) Load(list []Tracker) {
	s.mu.Lock()
	s.order = s.order[:0]
	s.byID = make(map[string]*Tracker, len(list))
	for _, t := range list {
		if t.ID == "" {
			logger.Warnf("skipping tracker without id: %q", t.Name)
			continue
		}
		if _, dup := s.byID[t.ID]; dup {
			continue
		}
		t := t
		s.byID[t.ID] = &t
		s.order = append(s.order, t.ID)
	}
	changed, next := s.ensureSelectionLocked()
	s.mu.Unlock()

	if changed {
		s.persist(next)
		s.notify(next)
	}
}

// ensureSelectionLocked applies the selection invariant and reports whether it moved.
func (s *Store) ensureSelectionLocked() (bool, string) {
	if _, ok := s.byID[s.selected]; ok {
		return false, s.selected
	}
	prev := s.selected
	s.selected = ""
	if len(s.order) > 0 {
		s.selected = s.order[0]
	}
	return prev != s.selected, s.selected
}

// Select sets and persists the selection.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTracker, id)
	}
	changed := s.selected != id
	s.selected = id
	s.mu.Unlock()

	s.persist(id)
	if changed {
		s.notify(id)
	}
	return nil
}

// Adopt applies a selection observed in durable storage (another console)
// without writing it back. Ids the store does not know are ignored once the
// collection is loaded; before that they are kept until Load validates them.
func (s *Store) Adopt(id string) bool {
	s.mu.Lock()
	if s.selected == id {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.byID[id]; !ok && id != "" && len(s.byID) > 0 {
		s.mu.Unlock()
		return false
	}
	s.selected = id
	s.mu.Unlock()

	s.notify(id)
	return true
}

// Upsert inserts t if its id is absent.
func (s *Store) Upsert(t Tracker) bool {
	if t.ID == "" {
		return false
	}
	s.mu.Lock()
	if _, ok := s.byID[t.ID]; ok {
		s.mu.Unlock()
		return false
	}
	s.byID[t.ID] = &t
	s.order = append(s.order, t.ID)
	changed, next := s.ensureSelectionLocked()
	s.mu.Unlock()

	if changed {
		s.persist(next)
		s.notify(next)
	}
	return true
}

// Patch merges the non-nil fields of p into tracker id.
func (s *Store) Patch(id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTracker, id)
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Owner != nil {
		t.Owner = *p.Owner
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Platform != nil {
		t.Platform = *p.Platform
	}
	if p.Geofence != nil {
		t.Geofence = *p.Geofence
	}
	return nil
}

// Remove deletes tracker id; a removed selection moves to the first remaining tracker.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	changed, next := s.ensureSelectionLocked()
	s.mu.Unlock()

	if changed {
		s.persist(next)
		s.notify(next)
	}
	return true
}

func (s *Store) SetStatus(id string, st Status) {
	if !st.Valid() {
		return
	}
	s.mu.Lock()
	if t, ok := s.byID[id]; ok {
		t.Status = st
	}
	s.mu.Unlock()
}

// ApplyFix publishes the latest fix of tracker id for the other panels.
func (s *Store) ApplyFix(id string, f Fix) {
	s.mu.Lock()
	if t, ok := s.byID[id]; ok {
		fix := f
		t.LastFix = &fix
	}
	s.mu.Unlock()
}

func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Get returns a copy of tracker id.
func (s *Store) Get(id string) (Tracker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return Tracker{}, false
	}
	return copyTracker(t), true
}

// List returns copies of all trackers in load order.
func (s *Store) List() []Tracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tracker, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyTracker(s.byID[id]))
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func copyTracker(t *Tracker) Tracker {
	c := *t
	if t.LastFix != nil {
		f := *t.LastFix
		c.LastFix = &f
	}
	return c
}
