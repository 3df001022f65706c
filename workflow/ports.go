package workflow

import (
	"context"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence collaborator. The engine never cares about the
// storage medium; models.GormStore is the production implementation and the
// tests run against an in-memory fake.
type Store interface {
	EntriesForDate(ctx context.Context, employeeId int, date time.Time, category *models.ExpenseCategory) ([]models.ExpenseEntry, error)
	UpsertEntry(ctx context.Context, entry *models.ExpenseEntry) (int, error)
	DeleteEntry(ctx context.Context, id int) error

	DayRecord(ctx context.Context, employeeId int, date time.Time) (*models.DayRecord, error)
	UpsertDayRecord(ctx context.Context, rec *models.DayRecord) error
	DeleteDayRecord(ctx context.Context, employeeId int, date time.Time) error
}

// TxFunc runs a unit of work against a transaction-scoped Store. Returning an
// error must roll back everything the unit wrote.
type TxFunc func(ctx context.Context, fn func(tx Store) error) error

// RuleSource supplies externally maintained rule data. Read-only.
type RuleSource interface {
	PerDiemRule(ctx context.Context, costCenter string) (*models.PerDiemRule, error)
	EesValidation(ctx context.Context, employeeId int, costCenter string, amount decimal.Decimal, date time.Time) (*models.EesValidationResult, error)
}

// Finding is one advisory anomaly observation. Findings never block or fail
// a save.
type Finding struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// AnomalyDetector inspects a committed entry. Invoked only after a
// successful persist; errors are logged and swallowed.
type AnomalyDetector interface {
	Detect(ctx context.Context, employeeId int, entry models.ExpenseEntry) ([]Finding, error)
}
