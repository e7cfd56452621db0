package network

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("subscribeTracker", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "subscribeTracker", env.Event)
	assert.JSONEq(t, `"dev-1"`, string(env.Data))

	raw := json.RawMessage(`{"a":1}`)
	env, err = NewEnvelope("x", raw)
	require.NoError(t, err)
	assert.Equal(t, raw, env.Data)

	_, err = NewEnvelope("", nil)
	assert.ErrorIs(t, err, ErrEmptyEvent)

	var s string
	assert.Error(t, Envelope{Event: "x"}.Decode(&s))
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		c, err := Upgrade(w, r)
		if err != nil {
			return
		}
		defer c.Close()
		_ = c.Send("hello", map[string]string{"client": r.Header.Get(HeaderClientType)})
		for {
			env, err := c.Recv()
			if err != nil {
				return
			}
			_ = c.SendEnvelope(env)
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialAndEcho(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv), DialOptions{Token: "good", ClientType: "web"})
	require.NoError(t, err)
	defer c.Close()

	hello, err := c.Recv()
	require.NoError(t, err)
	var payload map[string]string
	require.NoError(t, hello.Decode(&payload))
	assert.Equal(t, "web", payload["client"])

	require.NoError(t, c.Send("ping", map[string]int{"n": 1}))
	echo, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping", echo.Event)
	assert.JSONEq(t, `{"n":1}`, string(echo.Data))
}

func TestDialUnauthorized(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv), DialOptions{Token: "bad"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClosedClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Send("x", nil), ErrClosed)
	_, err := c.Recv()
	assert.ErrorIs(t, err, ErrClosed)
}
