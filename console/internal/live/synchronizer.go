package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"trackdash/console/internal/api"
	"trackdash/console/internal/connection"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/socket"
	"trackdash/console/internal/tracker"
)

type State int

const (
	StateIdle State = iota
	StateSnapshotLoading
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateSnapshotLoading:
		return "snapshot-loading"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Channel is the subset of connection.Manager the synchronizer needs.
type Channel interface {
	Acquire(ctx context.Context) error
	Release()
	Emit(event string, v any) error
	On(event string, h connection.Handler) (off func())
	Connected() bool
}

type SnapshotSource interface {
	Live(ctx context.Context, trackerID string) (*api.LiveSnapshot, error)
}

// Synchronizer keeps the latest fix and trail of the selected tracker.
type Synchronizer struct {
	ch    Channel
	src   SnapshotSource
	store *tracker.Store

	mu      sync.Mutex
	started bool
	gen     uint64
	state   State
	device  string
	latest  *tracker.Fix
	path    []tracker.LatLng
	details *api.LiveSnapshot
	err     error
	offLive func()
	offChan []func()
	updates chan struct{}
}

func New(ch Channel, src SnapshotSource, store *tracker.Store) *Synchronizer {
	return &Synchronizer{
		ch:      ch,
		src:     src,
		store:   store,
		updates: make(chan struct{}, 1),
	}
}

// Updates is signalled (coalesced) after every state, trail or error change.
func (s *Synchronizer) Updates() <-chan struct{} { return s.updates }

func (s *Synchronizer) changed() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Start acquires the channel and wires lifecycle handlers. Connect failures
// land in the error slot and are not retried.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.offChan = []func(){
		s.ch.On(socket.EventConnect, func(json.RawMessage) { s.resubscribe() }),
		s.ch.On(socket.EventConnectError, s.channelError),
		s.ch.On(socket.EventError, s.channelError),
		s.ch.On(socket.EventDisconnect, func(json.RawMessage) {
			logger.Warn("Live channel disconnected")
		}),
	}
	s.mu.Unlock()

	if err := s.ch.Acquire(ctx); err != nil {
		s.fail(fmt.Errorf("live channel: %w", err))
		return err
	}
	return nil
}

func (s *Synchronizer) channelError(data json.RawMessage) {
	var ce socket.ConnectError
	msg := "channel error"
	if json.Unmarshal(data, &ce) == nil && ce.Message != "" {
		msg = ce.Message
	}
	s.fail(errors.New(msg))
}

func (s *Synchronizer) fail(err error) {
	logger.Errorf("Live sync error: %v", err)
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if s.store != nil {
		s.store.SetError(err)
	}
	s.changed()
}

// resubscribe re-announces the current device after every (re)connect.
func (s *Synchronizer) resubscribe() {
	s.mu.Lock()
	id, st := s.device, s.state
	s.mu.Unlock()
	if id == "" || st != StateStreaming {
		return
	}
	if err := s.ch.Emit(socket.EventSubscribeTracker, id); err != nil {
		logger.Warnf("resubscribe %s failed: %v", id, err)
	}
}

// Select tears down the current device and loads id. An empty id goes idle.
// A snapshot failure is surfaced but streaming still starts.
func (s *Synchronizer) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.detachLocked()
	s.device = id
	s.err = nil
	if id == "" {
		s.state = StateIdle
		s.mu.Unlock()
		s.changed()
		return nil
	}
	s.state = StateSnapshotLoading
	s.mu.Unlock()
	s.changed()

	snap, snapErr := s.src.Live(ctx, id)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		logger.Debugf("discarding snapshot for %s, selection moved on", id)
		return nil
	}
	if snapErr != nil && ctx.Err() != nil {
		s.mu.Unlock()
		logger.Debugf("snapshot for %s cancelled", id)
		return ctx.Err()
	}
	if snapErr != nil {
		s.err = fmt.Errorf("snapshot %s: %w", id, snapErr)
	} else {
		s.details = snap
		if snap.Fix != nil {
			fix := *snap.Fix
			s.latest = &fix
			s.path = []tracker.LatLng{fix.Point()}
		}
	}
	s.state = StateStreaming
	s.offLive = s.ch.On(socket.EventLiveLocation, s.liveHandler(gen, id))
	err := s.err
	s.mu.Unlock()

	if snapErr != nil {
		logger.Errorf("Live snapshot for %s failed: %v", id, snapErr)
		if s.store != nil {
			s.store.SetError(err)
		}
	} else if s.store != nil {
		s.store.SetStatus(id, snap.Status)
		if snap.Fix != nil {
			s.store.ApplyFix(id, *snap.Fix)
		}
	}

	if s.current(gen) && s.ch.Connected() {
		if emitErr := s.ch.Emit(socket.EventSubscribeTracker, id); emitErr != nil {
			logger.Warnf("subscribe %s failed: %v", id, emitErr)
		}
	}
	s.changed()
	return err
}

func (s *Synchronizer) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Synchronizer) liveHandler(gen uint64, id string) connection.Handler {
	return func(data json.RawMessage) {
		var ll socket.LiveLocation
		if socket.Decode(socket.EventLiveLocation, data, &ll) != nil {
			return
		}
		if ll.TrackerID != id {
			return
		}
		fix := ll.Fix()

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.latest = &fix
		pt := fix.Point()
		if n := len(s.path); n == 0 || s.path[n-1] != pt {
			s.path = append(s.path, pt)
		}
		s.mu.Unlock()

		if s.store != nil {
			s.store.SetStatus(id, tracker.StatusOnline)
			s.store.ApplyFix(id, fix)
		}
		s.changed()
	}
}

func (s *Synchronizer) detachLocked() {
	if s.offLive != nil {
		s.offLive()
		s.offLive = nil
	}
	s.latest = nil
	s.path = nil
	s.details = nil
}

// Follow re-selects whenever the store selection changes, one selection at a time.
func (s *Synchronizer) Follow(ctx context.Context, store *tracker.Store) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	kick := make(chan struct{}, 1)

	// The in-flight Select runs under its own context so a newer selection
	// can abandon a slow snapshot instead of queueing behind it.
	var mu sync.Mutex
	abort := func() {}
	poke := func() {
		mu.Lock()
		abort()
		mu.Unlock()
		select {
		case kick <- struct{}{}:
		default:
		}
	}
	off := store.OnSelect(func(string) { poke() })
	if store.Selected() != "" {
		poke()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
				sel, selCancel := context.WithCancel(ctx)
				mu.Lock()
				abort = selCancel
				mu.Unlock()
				_ = s.Select(sel, store.Selected())
				selCancel()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			off()
			cancel()
			<-done
		})
	}
}

// Close detaches every handler and releases the channel.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.gen++
	s.detachLocked()
	s.device = ""
	s.state = StateIdle
	offs := s.offChan
	s.offChan = nil
	started := s.started
	s.started = false
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if started {
		s.ch.Release()
	}
	s.changed()
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *Synchronizer) Latest() (tracker.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return tracker.Fix{}, false
	}
	return *s.latest, true
}

// Path returns a copy of the deduplicated trail.
func (s *Synchronizer) Path() []tracker.LatLng {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tracker.LatLng(nil), s.path...)
}

// Details returns the last snapshot of the selected device, if any.
func (s *Synchronizer) Details() *api.LiveSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.details == nil {
		return nil
	}
	d := *s.details
	return &d
}

func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
