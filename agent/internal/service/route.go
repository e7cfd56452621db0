package service

import (
	"math"
	"time"

	"trackdash/agent/internal/connection"
)

const metersPerDegree = 111320.0

// Route walks a circle of radius meters around a center, one point per step,
// draining the battery as it goes.
type Route struct {
	TrackerID string
	lat, lng  float64
	radius    float64
	steps     int
	i         int
}

func NewRoute(trackerID string, lat, lng, radius float64, steps int) *Route {
	if steps <= 0 {
		steps = 1
	}
	return &Route{TrackerID: trackerID, lat: lat, lng: lng, radius: radius, steps: steps}
}

// Next returns the next fix stamped at now.
func (r *Route) Next(now time.Time) connection.Fix {
	theta := 2 * math.Pi * float64(r.i%r.steps) / float64(r.steps)
	dLat := r.radius * math.Cos(theta) / metersPerDegree
	dLng := r.radius * math.Sin(theta) / (metersPerDegree * math.Cos(r.lat*math.Pi/180))
	battery := math.Max(5, 100-float64(r.i)*0.1)
	r.i++
	return connection.Fix{
		Latitude:  r.lat + dLat,
		Longitude: r.lng + dLng,
		Timestamp: now.UTC(),
		Battery:   battery,
		Main:      12.4,
	}
}
