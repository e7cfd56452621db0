package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"trackdash/console/internal/socket"
	"trackdash/console/internal/tracker"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var tr tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Username: username, Password: password}, &tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("invalid login response")
	}
	return tr.AccessToken, nil
}

// Trackers returns the raw tracker collection; the store validates its shape.
func (c *Client) Trackers(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/user/trackers", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// LiveSnapshot is the last known fix and connectivity of one tracker.
type LiveSnapshot struct {
	TrackerID string
	Status    tracker.Status
	Fix       *tracker.Fix
}

type liveResponse struct {
	TrackerID string               `json:"trackerId"`
	Status    tracker.Status       `json:"status"`
	Location  *socket.LiveLocation `json:"location"`
}

func (c *Client) Live(ctx context.Context, trackerID string) (*LiveSnapshot, error) {
	var lr liveResponse
	path := "/api/user/trackers/" + url.PathEscape(trackerID) + "/live"
	if err := c.do(ctx, http.MethodGet, path, nil, &lr); err != nil {
		return nil, err
	}
	snap := &LiveSnapshot{TrackerID: trackerID, Status: lr.Status}
	if lr.Location != nil {
		fix := lr.Location.Fix()
		snap.Fix = &fix
	}
	return snap, nil
}

type historyRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// History returns the fixes of trackerID within [from, to], oldest first.
func (c *Client) History(ctx context.Context, trackerID string, from, to time.Time) ([]tracker.Fix, error) {
	req := historyRequest{From: from.UTC().Format(time.RFC3339), To: to.UTC().Format(time.RFC3339)}
	key := trackerID + "|" + req.From + "|" + req.To
	if c.history != nil {
		if v, ok := c.history.Get(key); ok {
			return append([]tracker.Fix(nil), v.([]tracker.Fix)...), nil
		}
	}

	var points []socket.LiveLocation
	path := "/api/user/trackers/" + url.PathEscape(trackerID) + "/history"
	if err := c.do(ctx, http.MethodPost, path, req, &points); err != nil {
		return nil, err
	}
	fixes := make([]tracker.Fix, 0, len(points))
	for _, p := range points {
		fixes = append(fixes, p.Fix())
	}
	if c.history != nil {
		c.history.SetDefault(key, fixes)
	}
	return append([]tracker.Fix(nil), fixes...), nil
}
