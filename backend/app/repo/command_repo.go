package repo

import (
	"trackdash/backend/app/models"

	"gorm.io/gorm"
)

type CommandRepository struct {
	db *gorm.DB
}

func NewCommandRepository(db *gorm.DB) *CommandRepository {
	return &CommandRepository{db: db}
}

func (r *CommandRepository) Create(cmd *models.Command) error {
	return r.db.Create(cmd).Error
}

func (r *CommandRepository) Find(id string) (*models.Command, error) {
	var c models.Command
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus records a lifecycle step; response is left untouched when empty.
func (r *CommandRepository) UpdateStatus(id, status, lastError, response string) error {
	fields := map[string]any{
		"status":     status,
		"last_error": lastError,
	}
	if response != "" {
		fields["response"] = response
	}
	return r.db.Model(&models.Command{}).Where("id = ?", id).Updates(fields).Error
}

// ListByDevice returns the commands a user issued to a device, newest first.
func (r *CommandRepository) ListByDevice(userID uint, deviceID string) ([]models.Command, error) {
	q := r.db.Where("user_id = ?", userID)
	if deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}
	var cmds []models.Command
	if err := q.Order("created_at DESC").Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}
