package models

import (
	"context"
	"errors"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"gorm.io/gorm"
)

type Employee struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email          string    `gorm:"size:255;uniqueIndex" json:"email"`
	BaseCostCenter string    `gorm:"size:64;not null" json:"base_cost_center" binding:"required"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetEmployee(ctx context.Context, id int) (*Employee, error) {
	db := config.GetDB()
	var emp Employee
	if err := db.WithContext(ctx).First(&emp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("employee not found")
		}
		return nil, err
	}
	return &emp, nil
}

func CreateEmployee(ctx context.Context, emp *Employee) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(emp).Error
}

func ListEmployees(ctx context.Context) ([]Employee, error) {
	db := config.GetDB()
	var emps []Employee
	if err := db.WithContext(ctx).Order("name").Find(&emps).Error; err != nil {
		return nil, err
	}
	return emps, nil
}
