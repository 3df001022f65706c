package models

import (
	"context"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
)

// AnomalyEvent is a persisted copy of a post-commit anomaly finding.
// Written by the fire-and-forget notify path, never inside the save
// transaction; losing one must not affect the entry it describes.
type AnomalyEvent struct {
	ID         int       `gorm:"primary_key" json:"id"`
	EmployeeId int       `gorm:"index;not null" json:"employee_id"`
	EntryId    int       `gorm:"index" json:"entry_id"`
	Severity   string    `gorm:"size:20;not null" json:"severity"`
	Message    string    `gorm:"type:text" json:"message"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateAnomalyEvent(ctx context.Context, event *AnomalyEvent) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	return db.WithContext(ctx).Create(event).Error
}

func AnomalyEventsForMonth(ctx context.Context, employeeId int, month time.Time) ([]AnomalyEvent, error) {
	db := config.GetDB()
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	var events []AnomalyEvent
	err := db.WithContext(ctx).
		Where("employee_id = ? AND created_at >= ? AND created_at < ?", employeeId, start, end).
		Order("created_at").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
