package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PerDiemRule caps the daily allowance for one cost center. When
// UseActualAmount is set the employee claims actual spend (still capped) and
// must affirm the amount before it commits.
type PerDiemRule struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CostCenter      string          `gorm:"size:64;uniqueIndex;not null" json:"cost_center" binding:"required"`
	MaxAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"max_amount"`
	UseActualAmount bool            `gorm:"not null;default:false" json:"use_actual_amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

const perDiemCacheTTL = 10 * time.Minute

func perDiemCacheKey(costCenter string) string {
	return fmt.Sprintf("perdiem:%s", costCenter)
}

// GetPerDiemRule resolves the rule for a cost center, reading through the
// Redis cache. A cost center with no row gets the default rule (no cap).
func GetPerDiemRule(ctx context.Context, costCenter string) (*PerDiemRule, error) {
	var cached PerDiemRule
	if ok, err := config.GetRedisObject(perDiemCacheKey(costCenter), &cached); err == nil && ok {
		return &cached, nil
	}

	db := config.GetDB()
	var rule PerDiemRule
	err := db.WithContext(ctx).Where("cost_center = ?", costCenter).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Cache failures are non-fatal; the DB read already succeeded.
	_ = config.SetRedisObject(perDiemCacheKey(costCenter), rule, perDiemCacheTTL)
	return &rule, nil
}

func UpsertPerDiemRule(ctx context.Context, rule *PerDiemRule) error {
	db := config.GetDB()
	var existing PerDiemRule
	err := db.WithContext(ctx).Where("cost_center = ?", rule.CostCenter).First(&existing).Error
	if err == nil {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
		err = db.WithContext(ctx).Save(rule).Error
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.WithContext(ctx).Create(rule).Error
	}
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(perDiemCacheKey(rule.CostCenter))
}
