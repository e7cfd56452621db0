package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"trackdash/agent/internal/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

// Tracker is the part of the backend tracker record the simulator needs.
type Tracker struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Geofence struct {
		Home   [2]float64 `json:"home"`
		Radius float64    `json:"radius"`
	} `json:"geofence"`
}

type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Battery   float64   `json:"battery"`
	Main      float64   `json:"main"`
}

// Manager holds one authenticated session with the backend. Login retries
// with exponential backoff; a report rejected with 401 logs in again once.
type Manager struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	maxRetries int
	baseDelay  time.Duration

	mu    sync.Mutex
	token string
}

func New(baseURL, username, password string, maxRetries int, baseDelay time.Duration) *Manager {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Manager{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		http:       &http.Client{Timeout: 10 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Connect logs in, retrying until maxRetries attempts have failed.
func (m *Manager) Connect(ctx context.Context) error {
	const (
		maxDelay      = 30 * time.Second
		backoffFactor = 1.5
	)

	delay := m.baseDelay
	for attempt := 1; ; attempt++ {
		logger.Infof("Agent is logging in to %s (attempt #%d)...", m.baseURL, attempt)
		err := m.login(ctx)
		if err == nil {
			logger.Info("Agent logged in to backend")
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		logger.Errorf("Agent cannot reach backend (attempt #%d): %v", attempt, err)
		if attempt >= m.maxRetries {
			return fmt.Errorf("max retries reached: %w", err)
		}

		logger.Infof("Agent will retry in %v...", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * backoffFactor)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (m *Manager) login(ctx context.Context) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"username": m.username, "password": m.password}
	if err := m.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return err
	}
	if out.AccessToken == "" {
		return fmt.Errorf("empty token in login response")
	}
	m.mu.Lock()
	m.token = out.AccessToken
	m.mu.Unlock()
	return nil
}

func (m *Manager) currentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Trackers lists the trackers of the logged-in user.
func (m *Manager) Trackers(ctx context.Context) ([]Tracker, error) {
	var out []Tracker
	err := m.authorized(ctx, func(token string) error {
		return m.do(ctx, http.MethodGet, "/api/user/trackers", token, nil, &out)
	})
	return out, err
}

// Report pushes one fix for trackerID.
func (m *Manager) Report(ctx context.Context, trackerID string, f Fix) error {
	path := "/api/devices/" + url.PathEscape(trackerID) + "/fixes"
	return m.authorized(ctx, func(token string) error {
		return m.do(ctx, http.MethodPost, path, token, f, nil)
	})
}

func (m *Manager) authorized(ctx context.Context, call func(token string) error) error {
	err := call(m.currentToken())
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	logger.Warn("Session rejected, logging in again")
	if err := m.login(ctx); err != nil {
		return err
	}
	return call(m.currentToken())
}

func (m *Manager) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
