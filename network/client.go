package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnauthorized is returned when the server rejects the connect credentials.
var ErrUnauthorized = errors.New("channel handshake unauthorized")

// ErrMalformedFrame is returned for a frame that is not a JSON envelope; the
// connection stays usable.
var ErrMalformedFrame = errors.New("malformed channel frame")

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("client not open")

// DialOptions carries the connect-time credentials.
type DialOptions struct {
	Token            string
	ClientType       string
	HandshakeTimeout time.Duration
}

// Client wraps one websocket connection carrying JSON envelopes.
// Writes are serialized; reads must come from a single goroutine.
type Client struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	closeOnce sync.Once
}

// Dial connects to a channel endpoint such as ws://host:port/ws.
func Dial(ctx context.Context, url string, opts DialOptions) (*Client, error) {
	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}
	if opts.ClientType != "" {
		header.Set(HeaderClientType, opts.ClientType)
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	conn, resp, err := d.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Send marshals v and writes it as event.
func (c *Client) Send(event string, v any) error {
	env, err := NewEnvelope(event, v)
	if err != nil {
		return err
	}
	return c.SendEnvelope(env)
}

// SendEnvelope writes a prepared envelope.
func (c *Client) SendEnvelope(env Envelope) error {
	if c == nil || c.conn == nil {
		return ErrClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("send %s: %w", env.Event, err)
	}
	return nil
}

// Recv blocks until the next envelope arrives.
func (c *Client) Recv() (Envelope, error) {
	if c == nil || c.conn == nil {
		return Envelope{}, ErrClosed
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return Envelope{}, ErrEmptyEvent
	}
	return env, nil
}

// Close sends a close frame and releases the socket. Safe to call twice.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return ErrClosed
	}
	var err error
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// IsClosedError reports whether err means the peer went away normally.
func IsClosedError(err error) bool {
	return errors.Is(err, ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
