package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
)

// DayInput is the raw day-entry form state. Everything in it is untrusted:
// totals are recomputed, zero hours are dropped, and the day-off invariant is
// applied before anything persists.
type DayInput struct {
	EmployeeId           int                                      `json:"employee_id" binding:"required"`
	Date                 time.Time                                `json:"date" binding:"required"`
	HoursByCostCenter    map[string]decimal.Decimal               `json:"hours_by_cost_center"`
	HoursByFixedCategory map[models.FixedCategory]decimal.Decimal `json:"hours_by_fixed_category"`
	DayOff               bool                                     `json:"day_off"`
	DayOffType           models.DayOffType                        `json:"day_off_type"`
	Description          string                                   `json:"description"`
	StayedOvernight      bool                                     `json:"stayed_overnight"`
}

// ValidateDayInput applies the hard input rules. Day-off submitted together
// with non-zero hours is rejected outright rather than silently discarded:
// the hours are real data the employee typed, and dropping them without a
// word loses it.
func ValidateDayInput(in DayInput) *ValidationError {
	if in.DayOff {
		if !in.DayOffType.IsValid() {
			return &ValidationError{
				Reason:  ReasonMissingDayOffType,
				Field:   "day_off_type",
				Message: "A day-off type is required when marking a day off.",
			}
		}
		if hasNonZeroHours(in.HoursByCostCenter) || hasNonZeroFixedHours(in.HoursByFixedCategory) {
			return &ValidationError{
				Reason:  ReasonDayOffWithHours,
				Field:   "day_off",
				Message: "A day off cannot carry worked hours. Clear the hours or unmark the day off.",
			}
		}
	}
	for costCenter, hours := range in.HoursByCostCenter {
		if hours.IsNegative() {
			return &ValidationError{
				Reason:  ReasonNegativeHours,
				Field:   "hours_by_cost_center",
				Message: fmt.Sprintf("Hours for cost center %s cannot be negative.", costCenter),
			}
		}
	}
	for category, hours := range in.HoursByFixedCategory {
		if hours.IsNegative() {
			return &ValidationError{
				Reason:  ReasonNegativeHours,
				Field:   "hours_by_fixed_category",
				Message: fmt.Sprintf("Hours for %s cannot be negative.", category),
			}
		}
	}
	return nil
}

// BuildDayRecord canonicalizes raw input into the stored shape. It is total:
// whatever comes in, the result has sparse hour maps and a recomputed
// TotalHours, and on day-off days empty maps, zero total, and the day-off
// label as description regardless of what was submitted.
func BuildDayRecord(in DayInput) models.DayRecord {
	rec := models.DayRecord{
		EmployeeId:      in.EmployeeId,
		RecordDate:      utils.DateOnly(in.Date),
		DayOff:          in.DayOff,
		StayedOvernight: in.StayedOvernight,
		Description:     strings.TrimSpace(in.Description),
		TotalHours:      decimal.Zero,
	}

	if in.DayOff {
		rec.DayOffType = in.DayOffType
		rec.Description = in.DayOffType.Label()
		return rec
	}

	rec.HoursByCostCenter = sparseHours(in.HoursByCostCenter)
	rec.HoursByFixedCategory = sparseFixedHours(in.HoursByFixedCategory)

	total := decimal.Zero
	for _, hours := range rec.HoursByCostCenter {
		total = total.Add(hours)
	}
	for _, hours := range rec.HoursByFixedCategory {
		total = total.Add(hours)
	}
	rec.TotalHours = total
	return rec
}

// DayHoursUpdate is the partial-update payload that touches only the hour
// maps of a stored day.
type DayHoursUpdate struct {
	EmployeeId           int                                      `json:"employee_id" binding:"required"`
	Date                 time.Time                                `json:"date" binding:"required"`
	HoursByCostCenter    map[string]decimal.Decimal               `json:"hours_by_cost_center"`
	HoursByFixedCategory map[models.FixedCategory]decimal.Decimal `json:"hours_by_fixed_category"`
}

// DayDescriptionUpdate touches only the free-text description.
type DayDescriptionUpdate struct {
	EmployeeId  int       `json:"employee_id" binding:"required"`
	Date        time.Time `json:"date" binding:"required"`
	Description string    `json:"description"`
}

// SaveDay validates, canonicalizes and upserts one day record. Saving
// all-zero content keeps an explicit empty row; ClearDay is the stronger
// operation that removes it.
func (e *Engine) SaveDay(ctx context.Context, in DayInput) (*models.DayRecord, error) {
	if verr := ValidateDayInput(in); verr != nil {
		return nil, verr
	}
	rec := BuildDayRecord(in)
	if err := e.store.UpsertDayRecord(ctx, &rec); err != nil {
		return nil, persistenceErr("day record upsert", err)
	}
	return &rec, nil
}

func (e *Engine) ClearDay(ctx context.Context, employeeId int, date time.Time) error {
	if err := e.store.DeleteDayRecord(ctx, employeeId, date); err != nil {
		return persistenceErr("day record delete", err)
	}
	return nil
}

// UpdateDayHours replaces only the hour maps, preserving day-off state,
// description and overnight flag from the stored record.
func (e *Engine) UpdateDayHours(ctx context.Context, employeeId int, date time.Time,
	byCostCenter map[string]decimal.Decimal, byFixedCategory map[models.FixedCategory]decimal.Decimal) (*models.DayRecord, error) {

	in, err := e.dayInputFromStored(ctx, employeeId, date)
	if err != nil {
		return nil, err
	}
	in.HoursByCostCenter = byCostCenter
	in.HoursByFixedCategory = byFixedCategory
	return e.SaveDay(ctx, in)
}

// UpdateDayDescription replaces only the description. On day-off records the
// canonicalizer pins the description to the day-off label, so the update is
// a no-op there.
func (e *Engine) UpdateDayDescription(ctx context.Context, employeeId int, date time.Time, description string) (*models.DayRecord, error) {
	in, err := e.dayInputFromStored(ctx, employeeId, date)
	if err != nil {
		return nil, err
	}
	in.Description = description
	return e.SaveDay(ctx, in)
}

// dayInputFromStored rebuilds a DayInput from the persisted record so partial
// updates are read-modify-write, never blind overwrites. A missing record
// yields an empty input for the date.
func (e *Engine) dayInputFromStored(ctx context.Context, employeeId int, date time.Time) (DayInput, error) {
	existing, err := e.store.DayRecord(ctx, employeeId, date)
	if err != nil {
		return DayInput{}, persistenceErr("day record fetch", err)
	}
	in := DayInput{
		EmployeeId: employeeId,
		Date:       utils.DateOnly(date),
	}
	if existing != nil {
		in.HoursByCostCenter = existing.HoursByCostCenter
		in.HoursByFixedCategory = existing.HoursByFixedCategory
		in.DayOff = existing.DayOff
		in.DayOffType = existing.DayOffType
		in.Description = existing.Description
		in.StayedOvernight = existing.StayedOvernight
	}
	return in, nil
}

func hasNonZeroHours(m map[string]decimal.Decimal) bool {
	for _, hours := range m {
		if !hours.IsZero() {
			return true
		}
	}
	return false
}

func hasNonZeroFixedHours(m map[models.FixedCategory]decimal.Decimal) bool {
	for _, hours := range m {
		if !hours.IsZero() {
			return true
		}
	}
	return false
}

func sparseHours(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	var out map[string]decimal.Decimal
	for costCenter, hours := range m {
		if hours.IsZero() {
			continue
		}
		if out == nil {
			out = make(map[string]decimal.Decimal)
		}
		out[costCenter] = hours
	}
	return out
}

func sparseFixedHours(m map[models.FixedCategory]decimal.Decimal) map[models.FixedCategory]decimal.Decimal {
	var out map[models.FixedCategory]decimal.Decimal
	for category, hours := range m {
		if hours.IsZero() {
			continue
		}
		if out == nil {
			out = make(map[models.FixedCategory]decimal.Decimal)
		}
		out[category] = hours
	}
	return out
}
