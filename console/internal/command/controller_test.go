package command

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackdash/console/internal/api"
	"trackdash/console/internal/connection"
	"trackdash/console/internal/socket"
)

type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	emitErr   error
	refs      int
	handlers  map[string][]connection.Handler
	emits     []socket.RemoteCommand
}

func newFakeChannel(connected bool) *fakeChannel {
	return &fakeChannel{connected: connected, handlers: map[string][]connection.Handler{}}
}

func (f *fakeChannel) Acquire(context.Context) error {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) Release() {
	f.mu.Lock()
	f.refs--
	f.mu.Unlock()
}

func (f *fakeChannel) Emit(event string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	if rc, ok := v.(socket.RemoteCommand); ok && event == socket.EventRemoteCommand {
		f.emits = append(f.emits, rc)
	}
	return nil
}

func (f *fakeChannel) On(event string, h connection.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
	idx := len(f.handlers[event]) - 1
	return func() {
		f.mu.Lock()
		f.handlers[event][idx] = nil
		f.mu.Unlock()
	}
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeChannel) fire(t *testing.T, event string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	f.mu.Lock()
	hs := append([]connection.Handler(nil), f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(b)
		}
	}
}

func (f *fakeChannel) emitted() []socket.RemoteCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]socket.RemoteCommand(nil), f.emits...)
}

type fakeBackend struct {
	issued    []api.CommandRequest
	emergency []string
}

func (b *fakeBackend) IssueCommand(_ context.Context, req api.CommandRequest) (*api.CommandRecord, error) {
	b.issued = append(b.issued, req)
	return &api.CommandRecord{ID: "r1", DeviceID: req.DeviceID, CommandType: req.CommandType, Status: "sent"}, nil
}

func (b *fakeBackend) Commands(_ context.Context, deviceID string) ([]api.CommandRecord, error) {
	return []api.CommandRecord{{ID: "r1", DeviceID: deviceID, Status: "completed"}}, nil
}

func (b *fakeBackend) Emergency(_ context.Context, deviceID string) (*api.CommandRecord, error) {
	b.emergency = append(b.emergency, deviceID)
	return &api.CommandRecord{ID: "e1", DeviceID: deviceID, CommandType: "emergency"}, nil
}

func started(t *testing.T, ch *fakeChannel, device string, opts ...Option) *Controller {
	t.Helper()
	c := New(ch, &fakeBackend{}, device, opts...)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func TestDispatchFailsFastWithoutConnection(t *testing.T) {
	ch := newFakeChannel(false)
	c := started(t, ch, "D1")

	cmd := c.Dispatch(TypeLock, nil)
	assert.Equal(t, StatusError, cmd.Status)
	assert.Equal(t, "Not connected to device", cmd.Error)
	assert.Empty(t, ch.emitted())
	assert.False(t, c.Recording())
}

func TestDispatchFailsFastWithoutDevice(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "")

	cmd := c.Dispatch(TypeCapturePhoto, nil)
	assert.Equal(t, StatusError, cmd.Status)
	assert.Empty(t, ch.emitted())
}

func TestCommandLifecycle(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")

	cmd := c.Dispatch(TypeLock, map[string]any{"pin": "1234"})
	assert.Equal(t, StatusSending, cmd.Status)
	require.Len(t, ch.emitted(), 1)
	sent := ch.emitted()[0]
	assert.Equal(t, "D1", sent.DeviceID)
	assert.Equal(t, TypeLock, sent.CommandType)
	assert.Equal(t, cmd.ID, sent.RequestID)

	ch.fire(t, socket.EventCommandSent, socket.CommandEvent{RequestID: cmd.ID, CommandType: TypeLock, Status: "sent"})
	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{CommandType: TypeLock, Status: "received"})
	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{CommandType: TypeLock, Status: "completed", Response: json.RawMessage(`{"locked":true}`)})

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, cur.Status)
	assert.JSONEq(t, `{"locked":true}`, string(cur.Response))
	var seen []Status
	for _, h := range cur.History {
		seen = append(seen, h.Status)
	}
	assert.Equal(t, []Status{StatusSending, StatusSent, StatusReceived, StatusCompleted}, seen)
}

func TestTerminalCommandIsNeverReverted(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")
	cmd := c.Dispatch(TypeAlarm, nil)

	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{RequestID: cmd.ID, Status: "failed", Error: "device busy"})
	ch.fire(t, socket.EventCommandSent, socket.CommandEvent{RequestID: cmd.ID})
	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{RequestID: cmd.ID, Status: "received"})
	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{RequestID: cmd.ID, Status: "completed"})

	cur, _ := c.Current()
	assert.Equal(t, StatusFailed, cur.Status)
	assert.Equal(t, "device busy", cur.Error)
}

func TestCommandErrorEvent(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")
	c.Dispatch(TypeLocate, nil)

	ch.fire(t, socket.EventCommandError, socket.CommandEvent{CommandType: TypeLocate})
	cur, _ := c.Current()
	assert.Equal(t, StatusError, cur.Status)
	assert.Equal(t, "command error", cur.Error)
}

func TestMediaNotificationCompletesCapture(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")

	c.Dispatch(TypeStartVideo, nil)
	assert.True(t, c.Recording())
	ch.fire(t, socket.EventCommandSent, socket.CommandEvent{CommandType: TypeStartVideo})

	ch.fire(t, socket.EventMediaNotification, socket.MediaNotification{DeviceID: "other", Media: socket.Media{Type: "video"}})
	cur, _ := c.Current()
	assert.Equal(t, StatusSent, cur.Status)

	ch.fire(t, socket.EventMediaNotification, socket.MediaNotification{Media: socket.Media{Type: "video", URL: "https://m/v.mp4"}})
	cur, _ = c.Current()
	assert.Equal(t, StatusCompleted, cur.Status)
	assert.Contains(t, string(cur.Response), "v.mp4")
	assert.False(t, c.Recording())
}

func TestMediaNotificationIgnoresNonCapture(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")
	c.Dispatch(TypeLock, nil)

	ch.fire(t, socket.EventMediaNotification, socket.MediaNotification{Media: socket.Media{Type: "photo"}})
	cur, _ := c.Current()
	assert.Equal(t, StatusSending, cur.Status)
}

func TestStopVideoClearsRecording(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")

	c.Dispatch(TypeStartVideo, nil)
	require.True(t, c.Recording())
	c.Dispatch(TypeStopVideo, nil)
	assert.False(t, c.Recording())
}

func TestOtherCommandsLeaveRecordingAlone(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")

	c.Dispatch(TypeStartVideo, nil)
	require.True(t, c.Recording())

	lock := c.Dispatch(TypeLock, nil)
	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{RequestID: lock.ID, Status: "completed"})
	cur, _ := c.Current()
	require.Equal(t, StatusCompleted, cur.Status)
	assert.True(t, c.Recording())

	ch.mu.Lock()
	ch.connected = false
	ch.mu.Unlock()
	alarm := c.Dispatch(TypeAlarm, nil)
	assert.Equal(t, StatusError, alarm.Status)
	assert.True(t, c.Recording())
}

func TestLastDispatchWins(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1")

	first := c.Dispatch(TypeLock, nil)
	second := c.Dispatch(TypeAlarm, nil)

	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{RequestID: first.ID, Status: "completed"})
	cur, _ := c.Current()
	assert.Equal(t, second.ID, cur.ID)
	assert.Equal(t, StatusSending, cur.Status)

	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{CommandType: TypeLock, Status: "completed"})
	cur, _ = c.Current()
	assert.Equal(t, StatusSending, cur.Status)
}

func TestCommandTimeout(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1", WithTimeout(30*time.Millisecond))

	cmd := c.Dispatch(TypeCapturePhoto, nil)
	ch.fire(t, socket.EventCommandSent, socket.CommandEvent{RequestID: cmd.ID})

	require.Eventually(t, func() bool {
		cur, _ := c.Current()
		return cur.Status == StatusTimeout
	}, time.Second, 5*time.Millisecond)
	assert.False(t, c.Recording())

	ch.fire(t, socket.EventCommandStatus, socket.CommandEvent{RequestID: cmd.ID, Status: "completed"})
	cur, _ := c.Current()
	assert.Equal(t, StatusTimeout, cur.Status)
}

func TestTimeoutDisabled(t *testing.T) {
	ch := newFakeChannel(true)
	c := started(t, ch, "D1", WithTimeout(0))
	c.Dispatch(TypeLock, nil)

	time.Sleep(30 * time.Millisecond)
	cur, _ := c.Current()
	assert.Equal(t, StatusSending, cur.Status)
}

func TestEmitFailureIsAnError(t *testing.T) {
	ch := newFakeChannel(true)
	ch.emitErr = errors.New("write: broken pipe")
	c := started(t, ch, "D1")

	cmd := c.Dispatch(TypeLock, nil)
	assert.Equal(t, StatusError, cmd.Status)
	assert.Equal(t, "write: broken pipe", cmd.Error)
}

func TestCloseReleasesChannel(t *testing.T) {
	ch := newFakeChannel(true)
	c := New(ch, &fakeBackend{}, "D1")
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 1, ch.refs)
	c.Close()
	c.Close()
	assert.Equal(t, 0, ch.refs)
}

func TestRESTFallback(t *testing.T) {
	be := &fakeBackend{}
	c := New(newFakeChannel(false), be, "D1")
	ctx := context.Background()

	rec, err := c.Send(ctx, TypeLock, map[string]any{"pin": "0000"})
	require.NoError(t, err)
	assert.Equal(t, "D1", rec.DeviceID)
	require.Len(t, be.issued, 1)
	assert.NotEmpty(t, be.issued[0].RequestID)

	_, err = c.Emergency(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, be.emergency)

	hist, err := c.History(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	_, err = New(newFakeChannel(true), be, "").Send(ctx, TypeLock, nil)
	assert.ErrorIs(t, err, ErrNoDevice)
}
