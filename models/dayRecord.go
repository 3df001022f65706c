package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DayRecord is the canonical per-(employee, date) hours aggregate.
//
// Grain: (employee_id, record_date), upserted as a whole. The hour maps are
// sparse: zero-valued entries are dropped before storage, never written as
// explicit zeros. TotalHours is derived and always recomputed by the day
// ledger builder; the stored value is never trusted as input.
//
// Clearing a day deletes the row. Saving an all-zero day keeps a row with
// explicit empty content; the two are different operations.
type DayRecord struct {
	ID         int       `gorm:"primary_key" json:"id"`
	EmployeeId int       `gorm:"uniqueIndex:uniq_day_emp_date,priority:1;not null" json:"employee_id"`
	RecordDate time.Time `gorm:"uniqueIndex:uniq_day_emp_date,priority:2;not null" json:"record_date"`

	HoursByCostCenter    map[string]decimal.Decimal        `gorm:"serializer:json;type:json" json:"hours_by_cost_center"`
	HoursByFixedCategory map[FixedCategory]decimal.Decimal `gorm:"serializer:json;type:json" json:"hours_by_fixed_category"`

	DayOff          bool       `gorm:"not null;default:false" json:"day_off"`
	DayOffType      DayOffType `gorm:"size:50" json:"day_off_type"`
	Description     string     `gorm:"type:text" json:"description"`
	StayedOvernight bool       `gorm:"not null;default:false" json:"stayed_overnight"`

	TotalHours decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"total_hours"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetDayRecord(ctx context.Context, employeeId int, date time.Time) (*DayRecord, error) {
	return dayRecord(config.GetDB().WithContext(ctx), employeeId, date)
}

func dayRecord(db *gorm.DB, employeeId int, date time.Time) (*DayRecord, error) {
	var rec DayRecord
	err := db.Where("employee_id = ? AND record_date = ?", employeeId, utils.DateOnly(date)).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func upsertDayRecord(db *gorm.DB, rec *DayRecord) error {
	rec.RecordDate = utils.DateOnly(rec.RecordDate)
	existing, err := dayRecord(db, rec.EmployeeId, rec.RecordDate)
	if err != nil {
		return err
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		// Save (not Updates) so cleared maps and false flags overwrite.
		return db.Save(rec).Error
	}
	if err := db.Create(rec).Error; err != nil {
		// Two concurrent first saves for the same day race on
		// uniq_day_emp_date; the loser retries as an update.
		if isDuplicateKeyErr(err) {
			winner, lookupErr := dayRecord(db, rec.EmployeeId, rec.RecordDate)
			if lookupErr != nil {
				return lookupErr
			}
			if winner != nil {
				rec.ID = winner.ID
				rec.CreatedAt = winner.CreatedAt
				return db.Save(rec).Error
			}
		}
		return err
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func deleteDayRecord(db *gorm.DB, employeeId int, date time.Time) error {
	return db.Where("employee_id = ? AND record_date = ?", employeeId, utils.DateOnly(date)).
		Delete(&DayRecord{}).Error
}

func DayRecordsForMonth(ctx context.Context, employeeId int, month time.Time) ([]DayRecord, error) {
	start, end := utils.MonthRange(month)
	db := config.GetDB()
	var recs []DayRecord
	err := db.WithContext(ctx).
		Where("employee_id = ? AND record_date >= ? AND record_date < ?", employeeId, start, end).
		Order("record_date").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}
