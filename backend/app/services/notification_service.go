package services

import (
	"time"

	"trackdash/backend/app/dto"
	"trackdash/backend/app/models"
	"trackdash/backend/app/repo"
	"trackdash/backend/app/socket"
	"trackdash/backend/global"

	"github.com/google/uuid"
)

const EventAlertNotification = "alertNotification"

type NotificationService struct {
	repo *repo.NotificationRepository
	hub  *socket.Hub
}

func NewNotificationService(r *repo.NotificationRepository, h *socket.Hub) *NotificationService {
	return &NotificationService{repo: r, hub: h}
}

// Raise stores an unread notification and pushes it to the user's connections.
func (s *NotificationService) Raise(userID uint, trackerID, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		TrackerID: trackerID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(n); err != nil {
		return nil, err
	}
	out := dto.NotificationFrom(*n)
	if err := s.hub.PublishUser(userID, EventAlertNotification, out); err != nil {
		global.Logger.Warn().Err(err).Str("notification", n.ID).Msg("alert publish failed")
	}
	return n, nil
}

func (s *NotificationService) List(userID uint) ([]dto.Notification, error) {
	items, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Notification, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NotificationFrom(n))
	}
	return out, nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.repo.MarkAllRead(userID)
}
