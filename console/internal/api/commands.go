package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"trackdash/console/internal/notification"
	"trackdash/console/internal/socket"
)

type CommandRequest struct {
	DeviceID    string         `json:"deviceId"`
	CommandType string         `json:"commandType"`
	Options     map[string]any `json:"options,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
}

// CommandRecord is the server's view of one issued command.
type CommandRecord struct {
	ID          string          `json:"id"`
	RequestID   string          `json:"requestId,omitempty"`
	DeviceID    string          `json:"deviceId"`
	CommandType string          `json:"commandType"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (c *Client) IssueCommand(ctx context.Context, req CommandRequest) (*CommandRecord, error) {
	var rec CommandRecord
	if err := c.do(ctx, http.MethodPost, "/api/security/commands", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Commands returns the server-side command history of a device, newest first.
func (c *Client) Commands(ctx context.Context, deviceID string) ([]CommandRecord, error) {
	var out []CommandRecord
	path := "/api/security/commands?deviceId=" + url.QueryEscape(deviceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Emergency(ctx context.Context, deviceID string) (*CommandRecord, error) {
	var rec CommandRecord
	if err := c.do(ctx, http.MethodPost, "/api/security/emergency/"+url.PathEscape(deviceID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type notificationDTO struct {
	ID        string      `json:"id"`
	Message   string      `json:"message"`
	Timestamp socket.Time `json:"timestamp"`
	Read      bool        `json:"read"`
}

func (c *Client) Notifications(ctx context.Context) ([]notification.Notification, error) {
	var dtos []notificationDTO
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]notification.Notification, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, notification.Notification{ID: d.ID, Message: d.Message, Timestamp: d.Timestamp.Time, Read: d.Read})
	}
	return out, nil
}

func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/mark-read", nil, nil)
}
