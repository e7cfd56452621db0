package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdash/console/internal/connection"
	"trackdash/console/internal/socket"
)

type fakeServer struct {
	mu      sync.Mutex
	list    []Notification
	marks   int
	markErr error
	block   chan struct{}
}

func (f *fakeServer) Notifications(context.Context) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.list...), nil
}

func (f *fakeServer) MarkNotificationsRead(context.Context) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks++
	return f.markErr
}

type fakeSub struct {
	h connection.Handler
}

func (f *fakeSub) On(event string, h connection.Handler) func() {
	if event == socket.EventAlertNotification {
		f.h = h
	}
	return func() { f.h = nil }
}

func unreadOf(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

func TestFetchAllRecomputesUnread(t *testing.T) {
	srv := &fakeServer{list: []Notification{
		{ID: "1", Message: "a", Read: false},
		{ID: "2", Message: "b", Read: true},
		{ID: "3", Message: "c", Read: false},
	}}
	r := NewReconciler(srv)
	r.Receive(Notification{Message: "pushed"})

	require.NoError(t, r.FetchAll(context.Background()))
	assert.Len(t, r.Items(), 3)
	assert.Equal(t, 2, r.Unread())
	assert.Equal(t, unreadOf(r.Items()), r.Unread())
}

func TestReceivePrependsUnread(t *testing.T) {
	r := NewReconciler(&fakeServer{})
	r.Receive(Notification{ID: "a", Message: "first"})
	r.Receive(Notification{ID: "b", Message: "second", Read: true})
	r.Receive(Notification{ID: "a", Message: "first again"})

	items := r.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Message)
	assert.False(t, items[0].Read)
	assert.False(t, items[0].Timestamp.IsZero())
	assert.Equal(t, 2, r.Unread())
}

func TestAttachReceivesAlerts(t *testing.T) {
	r := NewReconciler(&fakeServer{})
	sub := &fakeSub{}
	detach := r.Attach(sub)
	require.NotNil(t, sub.h)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	b, err := json.Marshal(socket.AlertNotification{Message: "geofence exit", Timestamp: socket.Time{Time: at}})
	require.NoError(t, err)
	sub.h(b)
	sub.h(json.RawMessage(`not json`))

	items := r.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "geofence exit", items[0].Message)
	assert.True(t, items[0].Timestamp.Equal(at))
	assert.NotEmpty(t, items[0].ID)

	detach()
	assert.Nil(t, sub.h)
}

func TestSetOpenEdge(t *testing.T) {
	r := NewReconciler(&fakeServer{})
	assert.False(t, r.SetOpen(false))
	assert.False(t, r.SetOpen(true))
	assert.False(t, r.SetOpen(true))
	assert.True(t, r.SetOpen(false))
	assert.False(t, r.SetOpen(false))
}

func TestOpenCloseReconcilesOnce(t *testing.T) {
	srv := &fakeServer{block: make(chan struct{})}
	r := NewReconciler(srv)
	for _, m := range []string{"a", "b", "c"} {
		r.Receive(Notification{Message: m})
	}
	require.Equal(t, 3, r.Unread())

	require.NoError(t, r.Toggle(context.Background(), true))

	done := make(chan error, 1)
	go func() { done <- r.Toggle(context.Background(), false) }()

	require.Eventually(t, func() bool { return r.Unread() == 0 }, time.Second, 5*time.Millisecond)
	for _, it := range r.Items() {
		assert.True(t, it.Read)
	}
	close(srv.block)
	require.NoError(t, <-done)

	require.NoError(t, r.Toggle(context.Background(), false))
	srv.mu.Lock()
	assert.Equal(t, 1, srv.marks)
	srv.mu.Unlock()
}

func TestReconcileFailureDoesNotRollBack(t *testing.T) {
	srv := &fakeServer{markErr: errors.New("503")}
	r := NewReconciler(srv)
	r.Receive(Notification{Message: "x"})

	err := r.Reconcile(context.Background())
	assert.ErrorContains(t, err, "503")
	assert.Equal(t, 0, r.Unread())
	assert.True(t, r.Items()[0].Read)
}
