package workflow

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetExpenses  = "Expenses"
	sheetDayLedger = "Day Ledger"
	sheetAnomalies = "Anomalies"
)

// MonthlyReport renders one employee-month as an xlsx workbook: every expense
// entry, the day ledger with per-bucket hours, and any recorded anomalies.
// Amounts and hours come out as floats for spreadsheet arithmetic; the
// decimals stay exact everywhere else in the system.
func MonthlyReport(ctx context.Context, employeeId int, month time.Time) ([]byte, error) {
	entries, err := models.EntriesForMonth(ctx, employeeId, month)
	if err != nil {
		return nil, persistenceErr("monthly entries fetch", err)
	}
	days, err := models.DayRecordsForMonth(ctx, employeeId, month)
	if err != nil {
		return nil, persistenceErr("monthly day records fetch", err)
	}
	anomalies, err := models.AnomalyEventsForMonth(ctx, employeeId, month)
	if err != nil {
		return nil, persistenceErr("monthly anomalies fetch", err)
	}
	return renderMonthlyWorkbook(entries, days, anomalies)
}

func renderMonthlyWorkbook(entries []models.ExpenseEntry, days []models.DayRecord, anomalies []models.AnomalyEvent) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetExpenses)
	if _, err := f.NewSheet(sheetDayLedger); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetAnomalies); err != nil {
		return nil, err
	}

	if err := writeExpenseSheet(f, entries); err != nil {
		return nil, err
	}
	if err := writeDayLedgerSheet(f, days); err != nil {
		return nil, err
	}
	if err := writeAnomalySheet(f, anomalies); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeExpenseSheet(f *excelize.File, entries []models.ExpenseEntry) error {
	header := []any{"Date", "Category", "Vendor", "Amount", "Cost Center", "Description", "Receipt"}
	if err := f.SetSheetRow(sheetExpenses, "A1", &header); err != nil {
		return err
	}

	sorted := append([]models.ExpenseEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].EntryDate.Equal(sorted[j].EntryDate) {
			return sorted[i].EntryDate.Before(sorted[j].EntryDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	total := decimal.Zero
	byCategory := map[models.ExpenseCategory]decimal.Decimal{}
	row := 2
	for _, entry := range sorted {
		receipt := ""
		if entry.ImageRef != "" {
			receipt = "yes"
		}
		cells := []any{
			utils.FormatDate(entry.EntryDate),
			string(entry.Category),
			entry.Vendor,
			entry.Amount.InexactFloat64(),
			entry.CostCenter,
			entry.Description,
			receipt,
		}
		if err := f.SetSheetRow(sheetExpenses, fmt.Sprintf("A%d", row), &cells); err != nil {
			return err
		}
		total = total.Add(entry.Amount)
		byCategory[entry.Category] = byCategory[entry.Category].Add(entry.Amount)
		row++
	}

	row++
	totalCells := []any{"Total", "", "", total.InexactFloat64()}
	if err := f.SetSheetRow(sheetExpenses, fmt.Sprintf("A%d", row), &totalCells); err != nil {
		return err
	}
	row++

	categories := make([]models.ExpenseCategory, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, category := range categories {
		cells := []any{string(category), "", "", byCategory[category].InexactFloat64()}
		if err := f.SetSheetRow(sheetExpenses, fmt.Sprintf("A%d", row), &cells); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeDayLedgerSheet(f *excelize.File, days []models.DayRecord) error {
	header := []any{"Date", "Total Hours", "Day Off", "Day Off Type", "Overnight", "Hours Breakdown", "Description"}
	if err := f.SetSheetRow(sheetDayLedger, "A1", &header); err != nil {
		return err
	}

	sorted := append([]models.DayRecord(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RecordDate.Before(sorted[j].RecordDate) })

	totalHours := decimal.Zero
	row := 2
	for _, day := range sorted {
		dayOff := ""
		if day.DayOff {
			dayOff = "yes"
		}
		overnight := ""
		if day.StayedOvernight {
			overnight = "yes"
		}
		cells := []any{
			utils.FormatDate(day.RecordDate),
			day.TotalHours.InexactFloat64(),
			dayOff,
			string(day.DayOffType),
			overnight,
			hoursBreakdown(day),
			day.Description,
		}
		if err := f.SetSheetRow(sheetDayLedger, fmt.Sprintf("A%d", row), &cells); err != nil {
			return err
		}
		totalHours = totalHours.Add(day.TotalHours)
		row++
	}

	row++
	totalCells := []any{"Total", totalHours.InexactFloat64()}
	return f.SetSheetRow(sheetDayLedger, fmt.Sprintf("A%d", row), &totalCells)
}

// hoursBreakdown flattens the hour maps into a stable "bucket: h" listing so
// the workbook cell is deterministic run to run.
func hoursBreakdown(day models.DayRecord) string {
	parts := make([]string, 0, len(day.HoursByCostCenter)+len(day.HoursByFixedCategory))

	costCenters := make([]string, 0, len(day.HoursByCostCenter))
	for costCenter := range day.HoursByCostCenter {
		costCenters = append(costCenters, costCenter)
	}
	sort.Strings(costCenters)
	for _, costCenter := range costCenters {
		parts = append(parts, fmt.Sprintf("%s: %s", costCenter, day.HoursByCostCenter[costCenter].String()))
	}

	fixed := make([]string, 0, len(day.HoursByFixedCategory))
	for category := range day.HoursByFixedCategory {
		fixed = append(fixed, string(category))
	}
	sort.Strings(fixed)
	for _, category := range fixed {
		parts = append(parts, fmt.Sprintf("%s: %s", category, day.HoursByFixedCategory[models.FixedCategory(category)].String()))
	}

	out := ""
	for i, part := range parts {
		if i > 0 {
			out += ", "
		}
		out += part
	}
	return out
}

func writeAnomalySheet(f *excelize.File, anomalies []models.AnomalyEvent) error {
	header := []any{"Recorded", "Severity", "Entry", "Message"}
	if err := f.SetSheetRow(sheetAnomalies, "A1", &header); err != nil {
		return err
	}
	for i, event := range anomalies {
		cells := []any{
			event.CreatedAt.Format(time.RFC3339),
			event.Severity,
			event.EntryId,
			event.Message,
		}
		if err := f.SetSheetRow(sheetAnomalies, fmt.Sprintf("A%d", i+2), &cells); err != nil {
			return err
		}
	}
	return nil
}
