package dto

import (
	"time"

	"trackdash/backend/app/models"
)

type Geofence struct {
	Home   [2]float64 `json:"home"`
	Radius float64    `json:"radius"`
	Active bool       `json:"active"`
}

type Tracker struct {
	ID       string   `json:"id" binding:"required"`
	Owner    string   `json:"owner"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Platform string   `json:"platform"`
	Geofence Geofence `json:"geofence"`
	Status   string   `json:"status"`
}

func TrackerFrom(t models.Tracker) Tracker {
	return Tracker{
		ID:       t.ID,
		Owner:    t.Owner,
		Name:     t.Name,
		Type:     t.Type,
		Platform: t.Platform,
		Geofence: Geofence{Home: [2]float64{t.HomeLat, t.HomeLng}, Radius: t.Radius, Active: t.GeofenceActive},
		Status:   t.Status,
	}
}

// LiveLocation is the liveLocation event payload and one history point.
type LiveLocation struct {
	TrackerID string    `json:"trackerId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Main      float64   `json:"main"`
	Battery   float64   `json:"battery"`
}

func LiveLocationFrom(f models.Fix) LiveLocation {
	return LiveLocation{
		TrackerID: f.TrackerID,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		Timestamp: f.RecordedAt.UTC(),
		Main:      f.Main,
		Battery:   f.Battery,
	}
}

type LiveResponse struct {
	TrackerID string        `json:"trackerId"`
	Status    string        `json:"status"`
	Location  *LiveLocation `json:"location"`
}

type HistoryRequest struct {
	From time.Time `json:"from" binding:"required"`
	To   time.Time `json:"to" binding:"required"`
}

// FixRequest is a location report pushed by a device or a simulator.
type FixRequest struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
	Main      float64    `json:"main"`
	Battery   float64    `json:"battery"`
}

type SubscribeRequest struct {
	TrackerID string `json:"trackerId"`
}
