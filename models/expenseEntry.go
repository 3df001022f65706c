package models

import (
	"context"
	"errors"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseEntry is one receipt/charge line. EntryDate is stored at UTC
// midnight; (employee_id, entry_date) is the grain every pipeline rule works
// over.
type ExpenseEntry struct {
	ID          int             `gorm:"primary_key" json:"id"`
	EmployeeId  int             `gorm:"index:idx_entry_emp_date,priority:1;not null" json:"employee_id"`
	EntryDate   time.Time       `gorm:"index:idx_entry_emp_date,priority:2;not null" json:"entry_date"`
	Vendor      string          `gorm:"size:255" json:"vendor"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Category    ExpenseCategory `gorm:"size:50;not null;index" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	CostCenter  string          `gorm:"size:64;index" json:"cost_center"`
	ImageRef    string          `gorm:"size:512" json:"image_ref"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewExpenseEntry is the raw form state handed in by the presentation layer.
type NewExpenseEntry struct {
	Id          int             `json:"id"`
	EmployeeId  int             `json:"employee_id" binding:"required"`
	EntryDate   time.Time       `json:"entry_date" binding:"required"`
	Vendor      string          `json:"vendor"`
	Amount      decimal.Decimal `json:"amount"`
	Category    ExpenseCategory `json:"category" binding:"required"`
	Description string          `json:"description"`
	CostCenter  string          `json:"cost_center" binding:"required,costcenter"`
	ImageRef    string          `json:"image_ref"`
}

func GetExpenseEntry(ctx context.Context, id int) (*ExpenseEntry, error) {
	db := config.GetDB()
	var entry ExpenseEntry
	if err := db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func DeleteExpenseEntry(ctx context.Context, id int) error {
	db := config.GetDB()
	res := db.WithContext(ctx).Delete(&ExpenseEntry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func EntriesForDate(ctx context.Context, employeeId int, date time.Time, category *ExpenseCategory) ([]ExpenseEntry, error) {
	return entriesForDate(config.GetDB().WithContext(ctx), employeeId, date, category)
}

func entriesForDate(db *gorm.DB, employeeId int, date time.Time, category *ExpenseCategory) ([]ExpenseEntry, error) {
	day := utils.DateOnly(date)
	dbCtx := db.Where("employee_id = ? AND entry_date = ?", employeeId, day)
	if category != nil {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	var entries []ExpenseEntry
	if err := dbCtx.Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func EntriesForMonth(ctx context.Context, employeeId int, month time.Time) ([]ExpenseEntry, error) {
	start, end := utils.MonthRange(month)
	db := config.GetDB()
	var entries []ExpenseEntry
	err := db.WithContext(ctx).
		Where("employee_id = ? AND entry_date >= ? AND entry_date < ?", employeeId, start, end).
		Order("entry_date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
