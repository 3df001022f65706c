package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EesRule is the expected monthly EES self-pay contribution for one cost
// center. EES entries are tracked, never reimbursed; the check below is
// advisory only and never hard-blocks a save.
type EesRule struct {
	ID             int             `gorm:"primary_key" json:"id"`
	CostCenter     string          `gorm:"size:64;uniqueIndex;not null" json:"cost_center" binding:"required"`
	ExpectedAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"expected_amount"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type EesValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

// GetEesValidation checks one EES submission against the cost-center rule
// and the entries already logged this month. IsValid=false still lets the
// save proceed after confirmation.
func GetEesValidation(ctx context.Context, employeeId int, costCenter string, amount decimal.Decimal, date time.Time) (*EesValidationResult, error) {
	db := config.GetDB()

	var rule EesRule
	err := db.WithContext(ctx).Where("cost_center = ?", costCenter).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &EesValidationResult{
				IsValid: true,
				Message: fmt.Sprintf("No EES amount is configured for cost center %s.", costCenter),
			}, nil
		}
		return nil, err
	}

	if !amount.Equal(rule.ExpectedAmount) {
		return &EesValidationResult{
			IsValid: false,
			Message: fmt.Sprintf("EES amount %s does not match the expected %s for cost center %s.",
				amount.StringFixed(2), rule.ExpectedAmount.StringFixed(2), costCenter),
		}, nil
	}

	start, end := utils.MonthRange(date)
	var count int64
	err = db.WithContext(ctx).Model(&ExpenseEntry{}).
		Where("employee_id = ? AND category = ? AND entry_date >= ? AND entry_date < ?",
			employeeId, CategoryEes, start, end).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return &EesValidationResult{
			IsValid: false,
			Message: fmt.Sprintf("An EES entry was already logged for %s.", date.Format("January 2006")),
		}, nil
	}

	return &EesValidationResult{
		IsValid: true,
		Message: "EES amount matches the configured contribution.",
	}, nil
}

func UpsertEesRule(ctx context.Context, rule *EesRule) error {
	db := config.GetDB()
	var existing EesRule
	err := db.WithContext(ctx).Where("cost_center = ?", rule.CostCenter).First(&existing).Error
	if err == nil {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
		return db.WithContext(ctx).Save(rule).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.WithContext(ctx).Create(rule).Error
	}
	return err
}
