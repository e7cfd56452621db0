package command

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"trackdash/console/internal/api"
	"trackdash/console/internal/connection"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/socket"
)

var ErrNoDevice = errors.New("no device selected")

type Channel interface {
	Acquire(ctx context.Context) error
	Release()
	Emit(event string, v any) error
	On(event string, h connection.Handler) (off func())
	Connected() bool
}

// Backend is the REST fallback for non-realtime commands.
type Backend interface {
	IssueCommand(ctx context.Context, req api.CommandRequest) (*api.CommandRecord, error)
	Commands(ctx context.Context, deviceID string) ([]api.CommandRecord, error)
	Emergency(ctx context.Context, deviceID string) (*api.CommandRecord, error)
}

// Controller drives remote commands for one device. Only the most recent
// command is retained; dispatching again replaces it.
type Controller struct {
	ch      Channel
	rest    Backend
	device  string
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	current   *Command
	recording bool
	timer     *time.Timer
	offs      []func()
	started   bool
	updates   chan struct{}
}

type Option func(*Controller)

// WithTimeout forces a stuck command to timeout after d; 0 disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

func New(ch Channel, rest Backend, deviceID string, opts ...Option) *Controller {
	c := &Controller{
		ch:      ch,
		rest:    rest,
		device:  deviceID,
		timeout: 2 * time.Minute,
		now:     time.Now,
		updates: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Updates() <-chan struct{} { return c.updates }

func (c *Controller) changed() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Start registers the lifecycle handlers and acquires the channel.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	handlers := map[string]connection.Handler{
		socket.EventCommandSent:       c.onSent,
		socket.EventCommandError:      c.onError,
		socket.EventCommandStatus:     c.onStatus,
		socket.EventMediaNotification: c.onMedia,
	}
	for event, h := range handlers {
		c.offs = append(c.offs, c.ch.On(event, h))
	}
	c.mu.Unlock()

	if err := c.ch.Acquire(ctx); err != nil {
		logger.Errorf("Command channel for %s unavailable: %v", c.device, err)
		return err
	}
	return nil
}

// Close detaches handlers, stops the timeout and releases the channel.
func (c *Controller) Close() {
	c.mu.Lock()
	offs := c.offs
	c.offs = nil
	started := c.started
	c.started = false
	c.stopTimerLocked()
	c.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if started {
		c.ch.Release()
	}
}

// Dispatch issues commandType over the channel. Without a device or a live
// connection the command fails immediately and nothing is sent.
func (c *Controller) Dispatch(commandType string, options map[string]any) Command {
	cmd := &Command{
		ID:        uuid.NewString(),
		Type:      commandType,
		DeviceID:  c.device,
		Options:   options,
		Status:    StatusIdle,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	c.stopTimerLocked()
	c.current = cmd
	if c.device == "" || !c.ch.Connected() {
		c.setLocked(cmd, StatusError, notConnectedMsg, nil)
		out := cmd.clone()
		c.mu.Unlock()
		c.changed()
		return out
	}
	c.setLocked(cmd, StatusSending, "", nil)
	switch commandType {
	case TypeStartVideo, TypeCapturePhoto:
		c.recording = true
	case TypeStopVideo:
		c.recording = false
	}
	if c.timeout > 0 {
		id := cmd.ID
		c.timer = time.AfterFunc(c.timeout, func() { c.expire(id) })
	}
	c.mu.Unlock()
	c.changed()

	err := c.ch.Emit(socket.EventRemoteCommand, socket.RemoteCommand{
		DeviceID:    c.device,
		CommandType: commandType,
		Options:     options,
		RequestID:   cmd.ID,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil && c.current == cmd && !cmd.Status.Terminal() {
		logger.Errorf("emit %s to %s failed: %v", commandType, c.device, err)
		c.setLocked(cmd, StatusError, err.Error(), nil)
		c.changed()
	}
	return cmd.clone()
}

// setLocked applies a validated transition. Terminal commands never move again.
func (c *Controller) setLocked(cmd *Command, to Status, msg string, resp json.RawMessage) bool {
	if err := Transition(cmd.Status, to); err != nil {
		logger.Debugf("command %s: %v", cmd.ID, err)
		return false
	}
	cmd.Status = to
	cmd.History = append(cmd.History, StatusChange{Status: to, At: c.now(), Error: msg})
	if msg != "" {
		cmd.Error = msg
	}
	if len(resp) > 0 {
		cmd.Response = append(json.RawMessage(nil), resp...)
	}
	if to.Terminal() {
		if captureTypes[cmd.Type] {
			c.recording = false
		}
		c.stopTimerLocked()
	}
	return true
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) expire(id string) {
	c.mu.Lock()
	cmd := c.current
	if cmd == nil || cmd.ID != id {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	ok := c.setLocked(cmd, StatusTimeout, "command timed out", nil)
	c.mu.Unlock()
	if ok {
		logger.Warnf("command %s (%s) timed out", id, cmd.Type)
		c.changed()
	}
}

// matchLocked returns the in-flight command an event refers to, or nil.
func (c *Controller) matchLocked(ev socket.CommandEvent) *Command {
	cmd := c.current
	if cmd == nil {
		return nil
	}
	if ev.RequestID != "" {
		if ev.RequestID != cmd.ID {
			return nil
		}
		return cmd
	}
	if ev.CommandType != "" && ev.CommandType != cmd.Type {
		return nil
	}
	return cmd
}

func (c *Controller) apply(event string, data json.RawMessage, status func(*socket.CommandEvent) (Status, bool)) {
	var ev socket.CommandEvent
	if socket.Decode(event, data, &ev) != nil {
		return
	}
	to, ok := status(&ev)
	if !ok {
		logger.Warnf("%s: unknown status %q", event, ev.Status)
		return
	}
	c.mu.Lock()
	cmd := c.matchLocked(ev)
	applied := cmd != nil && c.setLocked(cmd, to, ev.Error, ev.Response)
	c.mu.Unlock()
	if applied {
		c.changed()
	}
}

func (c *Controller) onSent(data json.RawMessage) {
	c.apply(socket.EventCommandSent, data, func(*socket.CommandEvent) (Status, bool) {
		return StatusSent, true
	})
}

func (c *Controller) onError(data json.RawMessage) {
	c.apply(socket.EventCommandError, data, func(ev *socket.CommandEvent) (Status, bool) {
		if ev.Error == "" {
			ev.Error = "command error"
		}
		return StatusError, true
	})
}

func (c *Controller) onStatus(data json.RawMessage) {
	c.apply(socket.EventCommandStatus, data, func(ev *socket.CommandEvent) (Status, bool) {
		return ParseStatus(ev.Status)
	})
}

// onMedia resolves an in-flight capture command through the media side channel.
func (c *Controller) onMedia(data json.RawMessage) {
	var mn socket.MediaNotification
	if socket.Decode(socket.EventMediaNotification, data, &mn) != nil {
		return
	}
	if mn.DeviceID != "" && mn.DeviceID != c.device {
		return
	}
	c.mu.Lock()
	cmd := c.current
	applied := false
	if cmd != nil && captureTypes[cmd.Type] && !cmd.Status.Terminal() {
		applied = c.setLocked(cmd, StatusCompleted, "", data)
	}
	c.mu.Unlock()
	if applied {
		c.changed()
	}
}

// Current returns the most recent command.
func (c *Controller) Current() (Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Command{}, false
	}
	return c.current.clone(), true
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Controller) Device() string { return c.device }

// Send issues a command through the REST fallback.
func (c *Controller) Send(ctx context.Context, commandType string, options map[string]any) (*api.CommandRecord, error) {
	if c.device == "" {
		return nil, ErrNoDevice
	}
	return c.rest.IssueCommand(ctx, api.CommandRequest{
		DeviceID:    c.device,
		CommandType: commandType,
		Options:     options,
		RequestID:   uuid.NewString(),
	})
}

func (c *Controller) Emergency(ctx context.Context) (*api.CommandRecord, error) {
	if c.device == "" {
		return nil, ErrNoDevice
	}
	return c.rest.Emergency(ctx, c.device)
}

// History reads the server-side command log for the device.
func (c *Controller) History(ctx context.Context) ([]api.CommandRecord, error) {
	if c.device == "" {
		return nil, ErrNoDevice
	}
	return c.rest.Commands(ctx, c.device)
}
