package workflow

import (
	"strings"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
)

// Amount difference below which two same-day, same-vendor entries count as
// one submission. Exactly one cent apart is NOT a duplicate.
var duplicateEpsilon = decimal.New(1, -2)

// NormalizeVendor lowercases and trims for comparison. Blank vendors on
// commonly vendor-less categories compare as the category name; the stored
// vendor is never rewritten.
func NormalizeVendor(vendor string, category models.ExpenseCategory) string {
	v := strings.ToLower(strings.TrimSpace(vendor))
	if v == "" && category.IsVendorless() {
		return strings.ToLower(string(category))
	}
	return v
}

// DuplicateMatch carries the existing entry a candidate collided with, for
// side-by-side display in the confirmation prompt.
type DuplicateMatch struct {
	Existing models.ExpenseEntry `json:"existing"`
}

// FindDuplicate flags a likely re-submission: an existing entry on the exact
// same calendar date with an equal normalized vendor and an amount within
// duplicateEpsilon. A match never blocks the save by itself; it surfaces as
// a confirmable decision.
func FindDuplicate(candidate models.ExpenseEntry, sameDayEntries []models.ExpenseEntry) *DuplicateMatch {
	candVendor := NormalizeVendor(candidate.Vendor, candidate.Category)
	for _, existing := range sameDayEntries {
		if existing.ID != 0 && existing.ID == candidate.ID {
			continue
		}
		if !utils.SameDay(existing.EntryDate, candidate.EntryDate) {
			continue
		}
		if NormalizeVendor(existing.Vendor, existing.Category) != candVendor {
			continue
		}
		if existing.Amount.Sub(candidate.Amount).Abs().LessThan(duplicateEpsilon) {
			match := existing
			return &DuplicateMatch{Existing: match}
		}
	}
	return nil
}
