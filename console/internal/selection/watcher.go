package selection

import (
	"context"
	"time"

	"trackdash/console/internal/logger"
)

// Storage is durable selection storage shared between consoles.
type Storage interface {
	Load() (string, error)
	Save(id string) error
}

// Notifier is implemented by storage that can push changes.
type Notifier interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Target receives selections made elsewhere.
type Target interface {
	Selected() string
	Adopt(id string) bool
}

const DefaultPollInterval = 500 * time.Millisecond

// Watcher keeps the in-memory selection in line with durable storage.
type Watcher struct {
	storage  Storage
	target   Target
	interval time.Duration
}

func NewWatcher(storage Storage, target Target, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{storage: storage, target: target, interval: interval}
}

// Run blocks until ctx is done. Change notification is used when the storage
// supports it; polling takes over if it is unavailable or stops.
func (w *Watcher) Run(ctx context.Context) error {
	w.check()

	if n, ok := w.storage.(Notifier); ok {
		changes, err := n.Watch(ctx)
		if err != nil {
			logger.Warnf("Selection change notification unavailable, polling every %s: %v", w.interval, err)
		} else {
			for id := range changes {
				w.apply(id)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Selection change notification stopped, falling back to polling")
		}
	}
	return w.poll(ctx)
}

func (w *Watcher) poll(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	id, err := w.storage.Load()
	if err != nil {
		logger.Debugf("load selection: %v", err)
		return
	}
	w.apply(id)
}

func (w *Watcher) apply(id string) {
	if id == "" || id == w.target.Selected() {
		return
	}
	if w.target.Adopt(id) {
		logger.Infof("Selection changed elsewhere, following %s", id)
	}
}
