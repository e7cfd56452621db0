package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trackdash/console/internal/logger"
	"trackdash/console/internal/tracker"
)

var (
	ErrEmpty      = errors.New("no history loaded")
	ErrOutOfRange = errors.New("position out of range")
)

type HistorySource interface {
	History(ctx context.Context, trackerID string, from, to time.Time) ([]tracker.Fix, error)
}

// Player replays a tracker's history one fix per step.
type Player struct {
	src  HistorySource
	step time.Duration

	mu      sync.Mutex
	device  string
	points  []tracker.Fix
	index   int
	playing bool
	stop    context.CancelFunc
	done    chan struct{}
	updates chan struct{}
}

func New(src HistorySource, step time.Duration) *Player {
	if step <= 0 {
		step = time.Second
	}
	return &Player{src: src, step: step, updates: make(chan struct{}, 1)}
}

func (p *Player) Updates() <-chan struct{} { return p.updates }

func (p *Player) changed() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Load fetches [from, to] for trackerID and rewinds to the first fix.
func (p *Player) Load(ctx context.Context, trackerID string, from, to time.Time) error {
	if !to.After(from) {
		return fmt.Errorf("invalid range %s - %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	p.Pause()
	fixes, err := p.src.History(ctx, trackerID, from, to)
	if err != nil {
		return fmt.Errorf("load history %s: %w", trackerID, err)
	}
	p.mu.Lock()
	p.device = trackerID
	p.points = fixes
	p.index = 0
	p.mu.Unlock()
	logger.Debugf("loaded %d history points for %s", len(fixes), trackerID)
	p.changed()
	return nil
}

// Play advances from the current position until the end or Pause.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if len(p.points) == 0 {
		p.mu.Unlock()
		return ErrEmpty
	}
	if p.playing {
		p.mu.Unlock()
		return nil
	}
	if p.index >= len(p.points)-1 {
		p.index = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.playing = true
	p.stop = cancel
	p.done = done
	p.mu.Unlock()
	p.changed()

	go p.run(ctx, done)
	return nil
}

func (p *Player) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.done == done {
				p.playing = false
				p.stop, p.done = nil, nil
			}
			p.mu.Unlock()
			return
		case <-ticker.C:
			p.mu.Lock()
			if !p.playing {
				p.mu.Unlock()
				return
			}
			p.index++
			end := p.index >= len(p.points)-1
			if end {
				p.index = len(p.points) - 1
				p.playing = false
				if p.done == done {
					p.stop()
					p.stop, p.done = nil, nil
				}
			}
			p.mu.Unlock()
			p.changed()
			if end {
				return
			}
		}
	}
}

// Pause stops advancing and waits for the ticker goroutine to exit.
func (p *Player) Pause() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	wasPlaying := p.playing
	p.playing = false
	p.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
	if wasPlaying {
		p.changed()
	}
}

// Stop pauses and rewinds.
func (p *Player) Stop() {
	p.Pause()
	p.mu.Lock()
	p.index = 0
	p.mu.Unlock()
	p.changed()
}

func (p *Player) Seek(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.points) == 0 {
		return ErrEmpty
	}
	if i < 0 || i >= len(p.points) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(p.points))
	}
	p.index = i
	p.changed()
	return nil
}

// Current returns the fix at the play head.
func (p *Player) Current() (tracker.Fix, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.points) == 0 {
		return tracker.Fix{}, 0, false
	}
	return p.points[p.index], p.index, true
}

// Trail is the deduplicated route up to and including the play head.
func (p *Player) Trail() []tracker.LatLng {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.points) == 0 {
		return nil
	}
	out := make([]tracker.LatLng, 0, p.index+1)
	for _, f := range p.points[:p.index+1] {
		pt := f.Point()
		if n := len(out); n > 0 && out[n-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	return out
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points)
}

func (p *Player) Device() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device
}
