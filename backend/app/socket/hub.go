package socket

import (
	"context"
	"encoding/json"
	"sync"

	"trackdash/backend/global"
	"trackdash/network"

	"github.com/redis/go-redis/v9"
)

// Conn is one accepted channel connection.
type Conn struct {
	c          *network.Client
	UserID     uint
	ClientType string

	mu   sync.Mutex
	subs map[string]struct{}
}

func (c *Conn) Send(event string, v any) error { return c.c.Send(event, v) }

func (c *Conn) subscribed(trackerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[trackerID]
	return ok
}

const (
	scopeTracker = "tracker"
	scopeUser    = "user"
)

// relay is what travels over Redis between backend instances.
type relay struct {
	Scope     string           `json:"scope"`
	TrackerID string           `json:"trackerId,omitempty"`
	UserID    uint             `json:"userId,omitempty"`
	Envelope  network.Envelope `json:"envelope"`
}

// Hub tracks channel connections and their tracker subscriptions. With a
// Redis client every publish goes through pub/sub so that all instances
// deliver it; without one delivery is local.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}

	rdb     *redis.Client
	channel string
}

func NewHub(rdb *redis.Client, channel string) *Hub {
	return &Hub{conns: make(map[*Conn]struct{}), rdb: rdb, channel: channel}
}

func (h *Hub) Register(c *network.Client, userID uint, clientType string) *Conn {
	conn := &Conn{c: c, UserID: userID, ClientType: clientType, subs: make(map[string]struct{})}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	global.Logger.Info().Uint("user", userID).Str("client_type", clientType).Int("connections", n).Msg("channel connected")
	return conn
}

func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	global.Logger.Info().Uint("user", conn.UserID).Int("connections", n).Msg("channel disconnected")
}

// Subscribe adds trackerID to the live feed of conn. Repeated calls are no-ops.
func (h *Hub) Subscribe(conn *Conn, trackerID string) {
	conn.mu.Lock()
	conn.subs[trackerID] = struct{}{}
	conn.mu.Unlock()
	global.Logger.Debug().Uint("user", conn.UserID).Str("tracker", trackerID).Msg("subscribed")
}

// Watched reports whether any local connection follows trackerID.
func (h *Hub) Watched(trackerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c.subscribed(trackerID) {
			return true
		}
	}
	return false
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// PublishTracker delivers event to every connection subscribed to trackerID.
func (h *Hub) PublishTracker(trackerID, event string, v any) error {
	env, err := network.NewEnvelope(event, v)
	if err != nil {
		return err
	}
	return h.publish(relay{Scope: scopeTracker, TrackerID: trackerID, Envelope: env})
}

// PublishUser delivers event to every connection of userID.
func (h *Hub) PublishUser(userID uint, event string, v any) error {
	env, err := network.NewEnvelope(event, v)
	if err != nil {
		return err
	}
	return h.publish(relay{Scope: scopeUser, UserID: userID, Envelope: env})
}

func (h *Hub) publish(r relay) error {
	if h.rdb == nil {
		h.deliver(r)
		return nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return h.rdb.Publish(context.Background(), h.channel, b).Err()
}

func (h *Hub) deliver(r relay) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		switch r.Scope {
		case scopeTracker:
			if c.subscribed(r.TrackerID) {
				targets = append(targets, c)
			}
		case scopeUser:
			if c.UserID == r.UserID {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.c.SendEnvelope(r.Envelope); err != nil {
			global.Logger.Warn().Err(err).Str("event", r.Envelope.Event).Uint("user", c.UserID).Msg("deliver failed")
		}
	}
}

// Run relays Redis messages to local connections until ctx is done.
// It returns immediately when the hub has no Redis client.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}
	sub := h.rdb.Subscribe(ctx, h.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var r relay
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				global.Logger.Warn().Err(err).Msg("invalid relay message")
				continue
			}
			h.deliver(r)
		}
	}
}
