package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/shopspring/decimal"
)

func TestBuildDayRecordRecomputesTotals(t *testing.T) {
	rec := BuildDayRecord(DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-104": dec("6.5"),
			"CC-200": dec("1.5"),
		},
		HoursByFixedCategory: map[models.FixedCategory]decimal.Decimal{
			models.FixedCategoryGA: dec("0.5"),
		},
		Description: "  site visits  ",
	})

	if !rec.TotalHours.Equal(dec("8.5")) {
		t.Fatalf("total = %s, want 8.5", rec.TotalHours)
	}
	if rec.Description != "site visits" {
		t.Fatalf("description = %q", rec.Description)
	}
	if rec.RecordDate != testDate() {
		t.Fatalf("record date = %v", rec.RecordDate)
	}
}

func TestBuildDayRecordDropsZeroHourBuckets(t *testing.T) {
	rec := BuildDayRecord(DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-104": dec("8"),
			"CC-200": decimal.Zero,
		},
		HoursByFixedCategory: map[models.FixedCategory]decimal.Decimal{
			models.FixedCategoryPTO: decimal.Zero,
		},
	})

	if _, ok := rec.HoursByCostCenter["CC-200"]; ok {
		t.Fatal("zero-hour cost center survived canonicalization")
	}
	if len(rec.HoursByFixedCategory) != 0 {
		t.Fatalf("fixed map = %v, want empty", rec.HoursByFixedCategory)
	}
	if !rec.TotalHours.Equal(dec("8")) {
		t.Fatalf("total = %s, want 8", rec.TotalHours)
	}
}

func TestBuildDayRecordDayOffOverridesEverything(t *testing.T) {
	rec := BuildDayRecord(DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		DayOff:     true,
		DayOffType: models.DayOffTypeSick,
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-104": dec("8"),
		},
		Description: "whatever was typed",
	})

	if len(rec.HoursByCostCenter) != 0 || len(rec.HoursByFixedCategory) != 0 {
		t.Fatal("day off record kept hour buckets")
	}
	if !rec.TotalHours.IsZero() {
		t.Fatalf("total = %s, want 0", rec.TotalHours)
	}
	if rec.Description != models.DayOffTypeSick.Label() {
		t.Fatalf("description = %q, want %q", rec.Description, models.DayOffTypeSick.Label())
	}
	if !rec.DayOff || rec.DayOffType != models.DayOffTypeSick {
		t.Fatalf("day off state lost: %+v", rec)
	}
}

func TestSaveDayRejectsDayOffWithHours(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())

	_, err := engine.SaveDay(context.Background(), DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		DayOff:     true,
		DayOffType: models.DayOffTypeVacation,
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-104": dec("4"),
		},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != ReasonDayOffWithHours {
		t.Fatalf("reason = %s", verr.Reason)
	}
	if len(store.days) != 0 {
		t.Fatal("rejected save still persisted a record")
	}
}

func TestSaveDayAllowsDayOffWithZeroValuedHours(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())

	rec, err := engine.SaveDay(context.Background(), DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		DayOff:     true,
		DayOffType: models.DayOffTypeHoliday,
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-104": decimal.Zero,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !rec.TotalHours.IsZero() || len(rec.HoursByCostCenter) != 0 {
		t.Fatalf("canonicalized record = %+v", rec)
	}
}

func TestSaveDayRejectsDayOffWithoutType(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())

	_, err := engine.SaveDay(context.Background(), DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		DayOff:     true,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonMissingDayOffType {
		t.Fatalf("expected MissingDayOffType, got %v", err)
	}
}

func TestSaveDayRejectsNegativeHours(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())

	_, err := engine.SaveDay(context.Background(), DayInput{
		EmployeeId: 7,
		Date:       testDate(),
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-104": dec("-1"),
		},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonNegativeHours {
		t.Fatalf("expected NegativeHours, got %v", err)
	}
}

func TestClearDayVersusZeroSave(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())
	ctx := context.Background()

	// An all-zero save keeps an explicit row.
	if _, err := engine.SaveDay(ctx, DayInput{EmployeeId: 7, Date: testDate()}); err != nil {
		t.Fatal(err)
	}
	if len(store.days) != 1 {
		t.Fatal("zero save should persist an empty record")
	}

	// ClearDay removes it.
	if err := engine.ClearDay(ctx, 7, testDate()); err != nil {
		t.Fatal(err)
	}
	if len(store.days) != 0 {
		t.Fatal("clear left the record behind")
	}
}

func TestUpdateDayHoursPreservesOtherFields(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())
	ctx := context.Background()

	if _, err := engine.SaveDay(ctx, DayInput{
		EmployeeId:        7,
		Date:              testDate(),
		HoursByCostCenter: map[string]decimal.Decimal{"CC-104": dec("8")},
		Description:       "client site",
		StayedOvernight:   true,
	}); err != nil {
		t.Fatal(err)
	}

	rec, err := engine.UpdateDayHours(ctx, 7, testDate(),
		map[string]decimal.Decimal{"CC-200": dec("6")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Description != "client site" || !rec.StayedOvernight {
		t.Fatalf("untouched fields lost: %+v", rec)
	}
	if !rec.TotalHours.Equal(dec("6")) {
		t.Fatalf("total = %s, want 6", rec.TotalHours)
	}
	if _, ok := rec.HoursByCostCenter["CC-104"]; ok {
		t.Fatal("hour maps must be replaced, not merged")
	}
}

func TestUpdateDayDescriptionPreservesHours(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())
	ctx := context.Background()

	if _, err := engine.SaveDay(ctx, DayInput{
		EmployeeId:        7,
		Date:              testDate(),
		HoursByCostCenter: map[string]decimal.Decimal{"CC-104": dec("8")},
	}); err != nil {
		t.Fatal(err)
	}

	rec, err := engine.UpdateDayDescription(ctx, 7, testDate(), "rescheduled visits")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Description != "rescheduled visits" {
		t.Fatalf("description = %q", rec.Description)
	}
	if !rec.TotalHours.Equal(dec("8")) {
		t.Fatalf("hours lost on description update: %s", rec.TotalHours)
	}
}

func TestUpdateDayHoursOnMissingRecordCreatesOne(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(store, newFakeRules())

	rec, err := engine.UpdateDayHours(context.Background(), 7, testDate(),
		map[string]decimal.Decimal{"CC-104": dec("3")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.TotalHours.Equal(dec("3")) {
		t.Fatalf("total = %s, want 3", rec.TotalHours)
	}
}
