package service

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"trackdash/console/internal/db"
	"trackdash/console/internal/logger"
	"trackdash/console/internal/tracker"
)

// CacheTrackers replaces the offline copy of the tracker list.
func CacheTrackers(list []tracker.Tracker) error {
	adb := db.Get()
	if adb == nil {
		return nil
	}
	now := time.Now()
	rows := make([]db.CachedTracker, 0, len(list))
	for i, t := range list {
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode tracker %s: %w", t.ID, err)
		}
		rows = append(rows, db.CachedTracker{TrackerID: t.ID, Position: i, Payload: string(b), UpdatedAt: now})
	}
	return adb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&db.CachedTracker{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// SeedFromCache loads the last cached list into store. It is a best-effort
// offline seed and never overrides a store that already has trackers.
func SeedFromCache(store *tracker.Store) (int, error) {
	adb := db.Get()
	if adb == nil || store.Len() > 0 {
		return 0, nil
	}
	var rows []db.CachedTracker
	if err := adb.Order("position ASC").Find(&rows).Error; err != nil {
		return 0, err
	}
	list := make([]tracker.Tracker, 0, len(rows))
	for _, r := range rows {
		var t tracker.Tracker
		if err := json.Unmarshal([]byte(r.Payload), &t); err != nil {
			logger.Warnf("skipping cached tracker %s: %v", r.TrackerID, err)
			continue
		}
		list = append(list, t)
	}
	if len(list) > 0 {
		store.Load(list)
	}
	return len(list), nil
}
