package workflow

import (
	"bytes"
	"testing"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestRenderMonthlyWorkbook(t *testing.T) {
	entries := []models.ExpenseEntry{
		entryOn(2, testDate().AddDate(0, 0, 1), "Marriott", "120.00", models.CategoryLodging),
		entryOn(1, testDate(), "Hertz + Fuel Co", "70.00", models.CategoryRentalCar),
	}
	days := []models.DayRecord{
		{
			EmployeeId: 7,
			RecordDate: testDate(),
			HoursByCostCenter: map[string]decimal.Decimal{
				"CC-104": dec("8"),
			},
			TotalHours: dec("8"),
		},
		{
			EmployeeId: 7,
			RecordDate: testDate().AddDate(0, 0, 1),
			DayOff:     true,
			DayOffType: models.DayOffTypeVacation,
		},
	}
	anomalies := []models.AnomalyEvent{
		{EmployeeId: 7, EntryId: 1, Severity: SeverityWarning, Message: "near miss", CreatedAt: time.Now()},
	}

	data, err := renderMonthlyWorkbook(entries, days, anomalies)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty workbook")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for _, sheet := range []string{sheetExpenses, sheetDayLedger, sheetAnomalies} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Fatalf("sheet %s missing (idx %d, err %v)", sheet, idx, err)
		}
	}

	// Entries come out date-sorted regardless of input order.
	first, err := f.GetCellValue(sheetExpenses, "A2")
	if err != nil {
		t.Fatal(err)
	}
	if first != "2026-01-15" {
		t.Fatalf("first expense row date = %q", first)
	}
}

func TestHoursBreakdownIsDeterministic(t *testing.T) {
	day := models.DayRecord{
		HoursByCostCenter: map[string]decimal.Decimal{
			"CC-200": dec("2"),
			"CC-104": dec("6"),
		},
		HoursByFixedCategory: map[models.FixedCategory]decimal.Decimal{
			models.FixedCategoryGA: dec("0.5"),
		},
	}
	want := "CC-104: 6, CC-200: 2, G&A: 0.5"
	for i := 0; i < 10; i++ {
		if got := hoursBreakdown(day); got != want {
			t.Fatalf("breakdown = %q, want %q", got, want)
		}
	}
}
