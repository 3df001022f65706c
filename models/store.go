package models

import (
	"context"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStore is the MySQL-backed persistence collaborator handed to the
// workflow engine. A zero-value handle resolves the global DB lazily so it
// can be constructed before ConnectDatabaseWithRetry has finished.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore() *GormStore {
	return &GormStore{}
}

func (s *GormStore) handle(ctx context.Context) *gorm.DB {
	if s.db != nil {
		return s.db.WithContext(ctx)
	}
	return config.GetDB().WithContext(ctx)
}

func (s *GormStore) EntriesForDate(ctx context.Context, employeeId int, date time.Time, category *ExpenseCategory) ([]ExpenseEntry, error) {
	return entriesForDate(s.handle(ctx), employeeId, date, category)
}

func (s *GormStore) UpsertEntry(ctx context.Context, entry *ExpenseEntry) (int, error) {
	entry.EntryDate = utils.DateOnly(entry.EntryDate)
	db := s.handle(ctx)
	var err error
	if entry.ID != 0 {
		err = db.Save(entry).Error
	} else {
		err = db.Create(entry).Error
	}
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func (s *GormStore) DeleteEntry(ctx context.Context, id int) error {
	return s.handle(ctx).Delete(&ExpenseEntry{}, "id = ?", id).Error
}

func (s *GormStore) DayRecord(ctx context.Context, employeeId int, date time.Time) (*DayRecord, error) {
	return dayRecord(s.handle(ctx), employeeId, date)
}

func (s *GormStore) UpsertDayRecord(ctx context.Context, rec *DayRecord) error {
	return upsertDayRecord(s.handle(ctx), rec)
}

func (s *GormStore) DeleteDayRecord(ctx context.Context, employeeId int, date time.Time) error {
	return deleteDayRecord(s.handle(ctx), employeeId, date)
}

// RunInTransaction executes fn with a store bound to one transaction. Any
// error rolls the whole unit back; the commit pipeline relies on this for its
// no-partial-merge guarantee.
func (s *GormStore) RunInTransaction(ctx context.Context, fn func(tx *GormStore) error) error {
	return s.handle(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// GormRuleSource is the DB-backed rule collaborator (per-diem caps, EES
// checks). Reads are served through the Redis cache where one exists.
type GormRuleSource struct{}

func NewGormRuleSource() *GormRuleSource {
	return &GormRuleSource{}
}

func (r *GormRuleSource) PerDiemRule(ctx context.Context, costCenter string) (*PerDiemRule, error) {
	return GetPerDiemRule(ctx, costCenter)
}

func (r *GormRuleSource) EesValidation(ctx context.Context, employeeId int, costCenter string, amount decimal.Decimal, date time.Time) (*EesValidationResult, error) {
	return GetEesValidation(ctx, employeeId, costCenter, amount, date)
}
