package repo

import (
	"time"

	"trackdash/backend/app/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TrackerRepository struct{ db *gorm.DB }

func NewTrackerRepository(db *gorm.DB) *TrackerRepository { return &TrackerRepository{db: db} }

func (r *TrackerRepository) ListByUser(userID uint) ([]models.Tracker, error) {
	var out []models.Tracker
	if err := r.db.Where("user_id = ?", userID).Order("position ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindOwned returns gorm.ErrRecordNotFound for trackers of other users.
func (r *TrackerRepository) FindOwned(userID uint, id string) (*models.Tracker, error) {
	var t models.Tracker
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TrackerRepository) Save(t *models.Tracker) error {
	return r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(t).Error
}

func (r *TrackerRepository) Delete(userID uint, id string) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Tracker{}).Error
}

func (r *TrackerRepository) UpdateStatus(id, status string) error {
	return r.db.Model(&models.Tracker{}).Where("id = ?", id).Update("status", status).Error
}

func (r *TrackerRepository) AddFix(f *models.Fix) error { return r.db.Create(f).Error }

func (r *TrackerRepository) LastFix(trackerID string) (*models.Fix, error) {
	var f models.Fix
	if err := r.db.Where("tracker_id = ?", trackerID).Order("recorded_at DESC, id DESC").First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// History returns the fixes within [from, to], oldest first.
func (r *TrackerRepository) History(trackerID string, from, to time.Time) ([]models.Fix, error) {
	var out []models.Fix
	err := r.db.Where("tracker_id = ? AND recorded_at >= ? AND recorded_at <= ?", trackerID, from, to).
		Order("recorded_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *TrackerRepository) Exists(id string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Tracker{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
