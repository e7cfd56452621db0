package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/models"
	"trackdash/backend/app/repo"
	"trackdash/backend/app/socket"
	"trackdash/backend/global"

	"gorm.io/gorm"
)

const EventLiveLocation = "liveLocation"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidRange = errors.New("invalid time range")
)

type TrackerService struct {
	repo   *repo.TrackerRepository
	hub    *socket.Hub
	alerts *NotificationService
	now    func() time.Time
}

func NewTrackerService(r *repo.TrackerRepository, h *socket.Hub, alerts *NotificationService) *TrackerService {
	return &TrackerService{repo: r, hub: h, alerts: alerts, now: time.Now}
}

func (s *TrackerService) owned(userID uint, id string) (*models.Tracker, error) {
	t, err := s.repo.FindOwned(userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return t, err
}

// Owns reports whether trackerID belongs to userID.
func (s *TrackerService) Owns(userID uint, trackerID string) bool {
	_, err := s.owned(userID, trackerID)
	return err == nil
}

func (s *TrackerService) List(userID uint) ([]dto.Tracker, error) {
	items, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Tracker, 0, len(items))
	for _, t := range items {
		out = append(out, dto.TrackerFrom(t))
	}
	return out, nil
}

// Save registers or updates a tracker of userID. Ids owned by another user are rejected.
func (s *TrackerService) Save(userID uint, in dto.Tracker) (*dto.Tracker, error) {
	existing, err := s.repo.FindOwned(userID, in.ID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = nil
	default:
		return nil, err
	}
	if existing == nil {
		taken, err := s.repo.Exists(in.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("tracker %s: %w", in.ID, ErrNotFound)
		}
	}

	t := models.Tracker{
		ID:             in.ID,
		UserID:         userID,
		Owner:          in.Owner,
		Name:           in.Name,
		Type:           in.Type,
		Platform:       in.Platform,
		HomeLat:        in.Geofence.Home[0],
		HomeLng:        in.Geofence.Home[1],
		Radius:         in.Geofence.Radius,
		GeofenceActive: in.Geofence.Active,
		Status:         "offline",
	}
	if t.Type == "" {
		t.Type = "tracker"
	}
	if existing != nil {
		t.Status = existing.Status
		t.Position = existing.Position
		t.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Save(&t); err != nil {
		return nil, err
	}
	out := dto.TrackerFrom(t)
	return &out, nil
}

func (s *TrackerService) Delete(userID uint, id string) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	return s.repo.Delete(userID, id)
}

// Live returns the latest fix and connectivity of one tracker. A tracker that
// never reported has a nil location.
func (s *TrackerService) Live(userID uint, id string) (*dto.LiveResponse, error) {
	t, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.LiveResponse{TrackerID: t.ID, Status: t.Status}
	f, err := s.repo.LastFix(t.ID)
	switch {
	case err == nil:
		loc := dto.LiveLocationFrom(*f)
		resp.Location = &loc
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}
	return resp, nil
}

func (s *TrackerService) History(userID uint, id string, from, to time.Time) ([]dto.LiveLocation, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	if _, err := s.owned(userID, id); err != nil {
		return nil, err
	}
	fixes, err := s.repo.History(id, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LiveLocation, 0, len(fixes))
	for _, f := range fixes {
		out = append(out, dto.LiveLocationFrom(f))
	}
	return out, nil
}

// Ingest stores a location report, marks the tracker online, fans the fix
// out as liveLocation and raises a notification when it leaves its geofence.
func (s *TrackerService) Ingest(userID uint, id string, in dto.FixRequest) (*dto.LiveLocation, error) {
	t, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	ts := s.now().UTC()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}
	prev, err := s.repo.LastFix(id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	f := &models.Fix{TrackerID: id, Latitude: in.Latitude, Longitude: in.Longitude, Battery: in.Battery, Main: in.Main, RecordedAt: ts}
	if err := s.repo.AddFix(f); err != nil {
		return nil, err
	}
	if t.Status != "online" {
		if err := s.repo.UpdateStatus(id, "online"); err != nil {
			return nil, err
		}
	}

	loc := dto.LiveLocationFrom(*f)
	if err := s.hub.PublishTracker(id, EventLiveLocation, loc); err != nil {
		global.Logger.Warn().Err(err).Str("tracker", id).Msg("live publish failed")
	}

	if t.GeofenceActive && t.Radius > 0 {
		outside := distanceMeters(t.HomeLat, t.HomeLng, f.Latitude, f.Longitude) > t.Radius
		wasOutside := prev != nil && distanceMeters(t.HomeLat, t.HomeLng, prev.Latitude, prev.Longitude) > t.Radius
		if outside && !wasOutside {
			name := t.Name
			if name == "" {
				name = t.ID
			}
			if _, err := s.alerts.Raise(userID, id, fmt.Sprintf("%s left its geofence", name)); err != nil {
				global.Logger.Error().Err(err).Str("tracker", id).Msg("geofence alert")
			}
		}
	}
	return &loc, nil
}

// SetStatus updates connectivity without a new fix.
func (s *TrackerService) SetStatus(userID uint, id, status string) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	switch status {
	case "online", "offline", "inactive":
	default:
		return fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}
	return s.repo.UpdateStatus(id, status)
}

var ErrInvalidStatus = errors.New("invalid status")

const earthRadius = 6371000.0

func distanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}
