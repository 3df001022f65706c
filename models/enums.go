package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ExpenseCategory is the closed set of reimbursement categories. Free-form
// category strings from clients are rejected at unmarshal time.
type ExpenseCategory string

const (
	CategoryRentalCar     ExpenseCategory = "Rental Car"
	CategoryRentalCarFuel ExpenseCategory = "Rental Car Fuel"
	CategoryPerDiem       ExpenseCategory = "Per Diem"
	CategoryEes           ExpenseCategory = "EES"
	CategoryOther         ExpenseCategory = "Other"
	CategoryAirfare       ExpenseCategory = "Airfare"
	CategoryLodging       ExpenseCategory = "Lodging"
	CategoryParking       ExpenseCategory = "Parking"
	CategoryTolls         ExpenseCategory = "Tolls"
	CategorySupplies      ExpenseCategory = "Supplies"
)

var allCategories = []ExpenseCategory{
	CategoryRentalCar, CategoryRentalCarFuel, CategoryPerDiem, CategoryEes,
	CategoryOther, CategoryAirfare, CategoryLodging, CategoryParking,
	CategoryTolls, CategorySupplies,
}

// categoryMergePairs maps satellite -> primary. A satellite submission is
// always folded into its primary's row; at most one row survives per
// (employee, date, primary).
var categoryMergePairs = map[ExpenseCategory]ExpenseCategory{
	CategoryRentalCarFuel: CategoryRentalCar,
}

// vendorlessCategories are commonly submitted without a vendor; the duplicate
// detector substitutes the category name for comparison only.
var vendorlessCategories = map[ExpenseCategory]bool{
	CategoryPerDiem: true,
	CategoryTolls:   true,
}

func (c ExpenseCategory) IsValid() bool {
	for _, v := range allCategories {
		if c == v {
			return true
		}
	}
	return false
}

// MergePrimary returns the primary category this one folds into, if it is a
// satellite category.
func (c ExpenseCategory) MergePrimary() (ExpenseCategory, bool) {
	p, ok := categoryMergePairs[c]
	return p, ok
}

// MergeSatellite returns the satellite category paired with this one, if it
// is a merge primary.
func (c ExpenseCategory) MergeSatellite() (ExpenseCategory, bool) {
	for sat, prim := range categoryMergePairs {
		if prim == c {
			return sat, true
		}
	}
	return "", false
}

func (c ExpenseCategory) IsVendorless() bool {
	return vendorlessCategories[c]
}

// RequiresReceiptImage reports whether entries of this category must carry an
// imageRef. Per Diem is the one category paid without a receipt.
func (c ExpenseCategory) RequiresReceiptImage() bool {
	return c != CategoryPerDiem
}

func (c *ExpenseCategory) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("expense category must be string")
	}
	v := ExpenseCategory(str)
	if !v.IsValid() {
		return fmt.Errorf("invalid expense category %q", str)
	}
	*c = v
	return nil
}

// FixedCategory is an organization-level hours bucket not tied to a cost center.
type FixedCategory string

const (
	FixedCategoryGA      FixedCategory = "G&A"
	FixedCategoryHoliday FixedCategory = "Holiday"
	FixedCategoryPTO     FixedCategory = "PTO"
	FixedCategorySTDLTD  FixedCategory = "STD/LTD"
	FixedCategoryPFL     FixedCategory = "PFL/PFML"
)

var allFixedCategories = []FixedCategory{
	FixedCategoryGA, FixedCategoryHoliday, FixedCategoryPTO,
	FixedCategorySTDLTD, FixedCategoryPFL,
}

func (f FixedCategory) IsValid() bool {
	for _, v := range allFixedCategories {
		if f == v {
			return true
		}
	}
	return false
}

// DayOffType labels a non-working day. The label doubles as the stored
// day-record description whenever dayOff is set.
type DayOffType string

const (
	DayOffTypeSick        DayOffType = "Sick Day"
	DayOffTypeVacation    DayOffType = "Vacation"
	DayOffTypeHoliday     DayOffType = "Holiday"
	DayOffTypePersonal    DayOffType = "Personal Day"
	DayOffTypeBereavement DayOffType = "Bereavement"
)

var allDayOffTypes = []DayOffType{
	DayOffTypeSick, DayOffTypeVacation, DayOffTypeHoliday,
	DayOffTypePersonal, DayOffTypeBereavement,
}

func (d DayOffType) IsValid() bool {
	for _, v := range allDayOffTypes {
		if d == v {
			return true
		}
	}
	return false
}

func (d DayOffType) Label() string {
	return string(d)
}

func (d *DayOffType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("day off type must be string")
	}
	if str == "" {
		*d = ""
		return nil
	}
	v := DayOffType(str)
	if !v.IsValid() {
		return fmt.Errorf("invalid day off type %q", str)
	}
	*d = v
	return nil
}
