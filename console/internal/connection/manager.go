package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"trackdash/console/internal/auth"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/socket"
	"trackdash/network"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrUnauthorized = errors.New("channel credentials rejected")
)

// Handler receives the raw payload of one event.
type Handler func(data json.RawMessage)

type entry struct {
	id uint64
	fn Handler
}

// Manager owns one persistent channel connection. Owners share it through
// Acquire/Release; the socket is closed when the last owner releases it.
type Manager struct {
	url        string
	clientType string

	maxRetries int
	baseDelay  time.Duration

	connMu sync.Mutex // serializes Connect

	mu     sync.Mutex
	token  string
	client *network.Client
	refs   int
	stopCh chan struct{}
	doneCh chan struct{}

	hmu      sync.RWMutex
	handlers map[string][]entry
	nextID   uint64
}

type Option func(*Manager)

// WithRetry sets the reconnect policy used after an established connection drops.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(m *Manager) {
		if maxRetries > 0 {
			m.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			m.baseDelay = baseDelay
		}
	}
}

// New creates a connection manager for a channel endpoint such as ws://host:port/ws.
func New(url, token, clientType string, opts ...Option) *Manager {
	m := &Manager{
		url:        url,
		token:      token,
		clientType: clientType,
		maxRetries: 10,
		baseDelay:  time.Second,
		handlers:   make(map[string][]entry),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetToken replaces the credential used by the next (re)connect.
func (m *Manager) SetToken(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *Manager) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// On registers h for event and returns a function that detaches it.
func (m *Manager) On(event string, h Handler) (off func()) {
	m.hmu.Lock()
	m.nextID++
	id := m.nextID
	m.handlers[event] = append(m.handlers[event], entry{id: id, fn: h})
	m.hmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.hmu.Lock()
			defer m.hmu.Unlock()
			list := m.handlers[event]
			for i, e := range list {
				if e.id == id {
					m.handlers[event] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(m.handlers[event]) == 0 {
				delete(m.handlers, event)
			}
		})
	}
}

func (m *Manager) dispatch(event string, data json.RawMessage) {
	m.hmu.RLock()
	list := append([]entry(nil), m.handlers[event]...)
	m.hmu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	for _, e := range list {
		e.fn(data)
	}
}

func (m *Manager) dispatchError(event, msg string) {
	b, _ := json.Marshal(socket.ConnectError{Message: msg})
	m.dispatch(event, b)
}

// Acquire registers an owner and connects if the channel is not up yet.
func (m *Manager) Acquire(ctx context.Context) error {
	m.mu.Lock()
	m.refs++
	m.mu.Unlock()
	return m.Connect(ctx)
}

// Release drops an owner; the last release closes the channel.
func (m *Manager) Release() {
	m.mu.Lock()
	if m.refs == 0 {
		m.mu.Unlock()
		return
	}
	m.refs--
	last := m.refs == 0
	m.mu.Unlock()
	if last {
		_ = m.Close()
	}
}

// Refs returns the number of current owners.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Connect dials the channel once. Rejected or expired credentials surface as a
// connect_error event and are not retried.
func (m *Manager) Connect(ctx context.Context) error {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if m.Connected() {
		return nil
	}
	token := m.currentToken()
	if auth.TokenExpired(token) {
		logger.Warn("Session token missing or expired, not connecting channel")
		m.dispatchError(socket.EventConnectError, "session expired")
		return fmt.Errorf("%w: session expired", ErrUnauthorized)
	}

	logger.Infof("Console is connecting to channel %s...", m.url)
	client, err := network.Dial(ctx, m.url, network.DialOptions{Token: token, ClientType: m.clientType})
	if err != nil {
		logger.Errorf("Console cannot connect to channel: %v", err)
		m.dispatchError(socket.EventConnectError, err.Error())
		if errors.Is(err, network.ErrUnauthorized) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return err
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	m.mu.Lock()
	// A receive loop still backing off from an earlier drop is superseded.
	if m.stopCh != nil {
		close(m.stopCh)
	}
	m.client = client
	m.stopCh = stopCh
	m.doneCh = doneCh
	m.mu.Unlock()

	go m.receiveLoop(client, stopCh, doneCh)
	logger.Info("Console connected to channel")
	return nil
}

// Emit sends one event over the channel.
func (m *Manager) Emit(event string, v any) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}
	return client.Send(event, v)
}

// Connected reports whether a socket is currently up.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// receiveLoop delivers inbound events in order and reconnects after a drop.
func (m *Manager) receiveLoop(client *network.Client, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	m.dispatch(socket.EventConnect, nil)

	for {
		env, err := client.Recv()
		if err == nil {
			m.dispatch(env.Event, env.Data)
			continue
		}
		select {
		case <-stopCh:
			return
		default:
		}
		if errors.Is(err, network.ErrEmptyEvent) || errors.Is(err, network.ErrMalformedFrame) {
			logger.Warnf("Dropping channel frame: %v", err)
			continue
		}

		logger.Errorf("Channel receive failed: %v", err)
		m.mu.Lock()
		if m.client == client {
			m.client = nil
		}
		m.mu.Unlock()
		_ = client.Close()
		m.dispatchError(socket.EventDisconnect, err.Error())

		next, ok := m.reconnect(stopCh)
		if !ok {
			return
		}
		client = next
		m.dispatch(socket.EventConnect, nil)
	}
}

func (m *Manager) reconnect(stopCh chan struct{}) (*network.Client, bool) {
	const (
		maxDelay      = 30 * time.Second
		backoffFactor = 1.5
	)
	delay := m.baseDelay
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		logger.Infof("Channel will retry in %v (attempt #%d)...", delay, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-stopCh:
			timer.Stop()
			return nil, false
		case <-timer.C:
		}

		if !m.owns(stopCh) {
			return nil, false
		}
		token := m.currentToken()
		if auth.TokenExpired(token) {
			m.dispatchError(socket.EventConnectError, "session expired")
			return nil, false
		}
		client, err := network.Dial(context.Background(), m.url, network.DialOptions{Token: token, ClientType: m.clientType})
		if err != nil {
			logger.Errorf("Channel reconnect failed (attempt #%d): %v", attempt, err)
			if errors.Is(err, network.ErrUnauthorized) {
				m.dispatchError(socket.EventConnectError, err.Error())
				return nil, false
			}
			delay = time.Duration(float64(delay) * backoffFactor)
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		m.mu.Lock()
		if m.stopCh != stopCh {
			m.mu.Unlock()
			_ = client.Close()
			return nil, false
		}
		m.client = client
		m.mu.Unlock()
		logger.Info("Channel reconnected")
		return client, true
	}
	if m.owns(stopCh) {
		m.dispatchError(socket.EventError, "max reconnect attempts reached")
	}
	return nil, false
}

func (m *Manager) owns(stopCh chan struct{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCh == stopCh
}

// Close tears the connection down and waits for the receive loop to exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	client, stopCh, doneCh := m.client, m.stopCh, m.doneCh
	m.client, m.stopCh, m.doneCh = nil, nil, nil
	m.mu.Unlock()

	if stopCh == nil {
		return nil
	}
	close(stopCh)
	var err error
	if client != nil {
		err = client.Close()
	}
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		logger.Warn("Channel receive loop did not stop in time")
	}
	return err
}
