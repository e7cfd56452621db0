package tracker

import (
	"time"
)

type Kind string

const (
	KindMobile  Kind = "mobile"
	KindTracker Kind = "tracker"
)

// Status is the connectivity state of a tracker.
type Status string

const (
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusInactive:
		return true
	}
	return false
}

// LatLng is a [lat, lng] pair; it marshals as a two-element JSON array.
type LatLng [2]float64

func (p LatLng) Lat() float64 { return p[0] }
func (p LatLng) Lng() float64 { return p[1] }

// Fix is one timestamped location and telemetry sample.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Battery   float64   `json:"battery"`
	MainPower float64   `json:"mainPower"`
}

func (f Fix) Point() LatLng { return LatLng{f.Latitude, f.Longitude} }

type Geofence struct {
	Home   LatLng  `json:"home"`
	Radius float64 `json:"radius"`
	Active bool    `json:"active"`
}

type Tracker struct {
	ID       string   `json:"id"`
	Owner    string   `json:"owner"`
	Name     string   `json:"name"`
	Type     Kind     `json:"type"`
	Platform string   `json:"platform"`
	Geofence Geofence `json:"geofence"`
	Status   Status   `json:"status"`
	LastFix  *Fix     `json:"lastFix,omitempty"`
}

// Patch carries the editable metadata; nil fields are left untouched.
type Patch struct {
	Name     *string   `json:"name,omitempty"`
	Owner    *string   `json:"owner,omitempty"`
	Type     *Kind     `json:"type,omitempty"`
	Platform *string   `json:"platform,omitempty"`
	Geofence *Geofence `json:"geofence,omitempty"`
}
