package service

import (
	"context"
	"time"

	"trackdash/agent/internal/config"
	"trackdash/agent/internal/connection"
	"trackdash/agent/internal/logger"
)

// Reporter is the backend surface the simulator drives.
type Reporter interface {
	Trackers(ctx context.Context) ([]connection.Tracker, error)
	Report(ctx context.Context, trackerID string, f connection.Fix) error
}

// BuildRoutes picks the trackers to simulate: the configured ids, or every
// tracker of the account when none are configured. Trackers with a geofence
// circle their home; the rest circle the configured center.
func BuildRoutes(ctx context.Context, rep Reporter, cfg config.AppConfig) ([]*Route, error) {
	list, err := rep.Trackers(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(cfg.Trackers))
	for _, id := range cfg.Trackers {
		want[id] = true
	}
	var routes []*Route
	for _, t := range list {
		if len(want) > 0 && !want[t.ID] {
			continue
		}
		lat, lng := cfg.CenterLat, cfg.CenterLng
		if home := t.Geofence.Home; home != [2]float64{} {
			lat, lng = home[0], home[1]
		}
		routes = append(routes, NewRoute(t.ID, lat, lng, cfg.Radius, cfg.Steps))
	}
	return routes, nil
}

// Run reports one fix per route every interval until ctx is done. A failed
// report is logged and the route moves on.
func Run(ctx context.Context, rep Reporter, routes []*Route, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	tick := func(now time.Time) {
		for _, r := range routes {
			fix := r.Next(now)
			if err := rep.Report(ctx, r.TrackerID, fix); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Errorf("Report %s failed: %v", r.TrackerID, err)
				continue
			}
			logger.L.Debug().Str("tracker", r.TrackerID).Float64("lat", fix.Latitude).Float64("lng", fix.Longitude).Msg("fix reported")
		}
	}

	tick(time.Now())
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			tick(now)
		}
	}
}
