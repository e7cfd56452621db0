package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackdash/console/internal/connection"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/socket"
)

type Server interface {
	Notifications(ctx context.Context) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context) error
}

// Subscriber is where pushed alerts come from.
type Subscriber interface {
	On(event string, h connection.Handler) (off func())
}

// Reconciler keeps the notification list and unread count. Marking read is
// applied locally first and never rolled back if the server call fails.
type Reconciler struct {
	srv Server
	now func() time.Time

	mu      sync.Mutex
	items   []Notification
	unread  int
	open    bool
	updates chan struct{}
}

func NewReconciler(srv Server) *Reconciler {
	return &Reconciler{srv: srv, now: time.Now, updates: make(chan struct{}, 1)}
}

func (r *Reconciler) Updates() <-chan struct{} { return r.updates }

func (r *Reconciler) changed() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Receive prepends a pushed notification as unread. Repeated ids are ignored.
func (r *Reconciler) Receive(n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = r.now()
	}
	n.Read = false

	r.mu.Lock()
	for _, it := range r.items {
		if it.ID == n.ID {
			r.mu.Unlock()
			return
		}
	}
	r.items = append([]Notification{n}, r.items...)
	r.unread++
	r.mu.Unlock()
	r.changed()
}

// Attach feeds alertNotification events into Receive.
func (r *Reconciler) Attach(sub Subscriber) (detach func()) {
	return sub.On(socket.EventAlertNotification, func(data json.RawMessage) {
		var an socket.AlertNotification
		if socket.Decode(socket.EventAlertNotification, data, &an) != nil {
			return
		}
		r.Receive(Notification{ID: an.ID, Message: an.Message, Timestamp: an.Timestamp.Time})
	})
}

// FetchAll replaces the list with the server's and recomputes the unread count.
func (r *Reconciler) FetchAll(ctx context.Context) error {
	list, err := r.srv.Notifications(ctx)
	if err != nil {
		logger.Errorf("fetch notifications: %v", err)
		return fmt.Errorf("fetch notifications: %w", err)
	}
	r.mu.Lock()
	r.items = append([]Notification(nil), list...)
	r.unread = 0
	for _, it := range r.items {
		if !it.Read {
			r.unread++
		}
	}
	r.mu.Unlock()
	r.changed()
	return nil
}

// SetOpen records the dropdown state and reports whether this call closed it.
func (r *Reconciler) SetOpen(open bool) (closed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	closed = r.open && !open
	r.open = open
	return closed
}

// Reconcile marks everything read locally, then tells the server.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	r.mu.Lock()
	for i := range r.items {
		r.items[i].Read = true
	}
	r.unread = 0
	r.mu.Unlock()
	r.changed()

	if err := r.srv.MarkNotificationsRead(ctx); err != nil {
		logger.Warnf("mark notifications read: %v", err)
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// Toggle applies SetOpen and reconciles when the dropdown closes.
func (r *Reconciler) Toggle(ctx context.Context, open bool) error {
	if !r.SetOpen(open) {
		return nil
	}
	return r.Reconcile(ctx)
}

func (r *Reconciler) Items() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *Reconciler) Unread() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}
