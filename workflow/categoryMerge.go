package workflow

import (
	"context"
	"strings"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
)

// ResolveCategoryMerge folds paired categories into one ledger row before
// persist. It mutates entry into the row that should be upserted and returns
// the ids of rows the merge absorbed (to delete in the same transaction).
//
// Invariant: after any interleaving of primary/satellite saves for one
// (employee, date) pair, exactly one row survives and its amount is the sum
// of every amount submitted to either category.
func ResolveCategoryMerge(ctx context.Context, store Store, entry *models.ExpenseEntry) ([]int, error) {
	if primary, ok := entry.Category.MergePrimary(); ok {
		return mergeSatelliteSave(ctx, store, entry, primary)
	}
	if satellite, ok := entry.Category.MergeSatellite(); ok {
		return mergePrimarySave(ctx, store, entry, satellite)
	}
	return nil, nil
}

// A satellite submission lands on the existing primary row when one exists;
// otherwise it becomes a new primary-category row keeping the satellite
// vendor as a fallback label. No satellite-category row is ever persisted.
func mergeSatelliteSave(ctx context.Context, store Store, entry *models.ExpenseEntry, primary models.ExpenseCategory) ([]int, error) {
	rows, err := store.EntriesForDate(ctx, entry.EmployeeId, entry.EntryDate, &primary)
	if err != nil {
		return nil, err
	}
	rows = withoutEntry(rows, entry.ID)
	if len(rows) == 0 {
		entry.Category = primary
		return nil, nil
	}

	host := rows[0]
	host.Amount = host.Amount.Add(entry.Amount)
	host.Vendor = concatVendors(host.Vendor, entry.Vendor)
	if host.ImageRef == "" {
		host.ImageRef = entry.ImageRef
	}

	var deleteIds []int
	for _, extra := range rows[1:] {
		host.Amount = host.Amount.Add(extra.Amount)
		host.Vendor = concatVendors(host.Vendor, extra.Vendor)
		deleteIds = append(deleteIds, extra.ID)
	}

	// Editing a stored satellite row that folds into a host orphans the old
	// row; it goes too.
	if entry.ID != 0 && entry.ID != host.ID {
		deleteIds = append(deleteIds, entry.ID)
	}

	*entry = host
	return deleteIds, nil
}

// A primary submission absorbs whatever already sits on its (employee, date)
// slot: earlier satellite-first saves (stored under the primary category) and
// any legacy rows still carrying the satellite category. The new submission's
// vendor leads the concatenation.
func mergePrimarySave(ctx context.Context, store Store, entry *models.ExpenseEntry, satellite models.ExpenseCategory) ([]int, error) {
	existing, err := store.EntriesForDate(ctx, entry.EmployeeId, entry.EntryDate, &entry.Category)
	if err != nil {
		return nil, err
	}
	legacy, err := store.EntriesForDate(ctx, entry.EmployeeId, entry.EntryDate, &satellite)
	if err != nil {
		return nil, err
	}

	var deleteIds []int
	for _, row := range withoutEntry(append(existing, legacy...), entry.ID) {
		entry.Amount = entry.Amount.Add(row.Amount)
		entry.Vendor = concatVendors(entry.Vendor, row.Vendor)
		if entry.ImageRef == "" {
			entry.ImageRef = row.ImageRef
		}
		deleteIds = append(deleteIds, row.ID)
	}
	return deleteIds, nil
}

func withoutEntry(rows []models.ExpenseEntry, id int) []models.ExpenseEntry {
	if id == 0 {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func concatVendors(first, second string) string {
	first = strings.TrimSpace(first)
	second = strings.TrimSpace(second)
	switch {
	case first == "":
		return second
	case second == "":
		return first
	default:
		return first + " + " + second
	}
}
