package workflow

import (
	"context"
	"testing"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/shopspring/decimal"
)

func TestFuelSaveWithoutRentalBecomesRentalRow(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	entry := entryOn(0, testDate(), "Fuel Co", "20.00", models.CategoryRentalCarFuel)
	deleteIds, err := ResolveCategoryMerge(ctx, store, &entry)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleteIds) != 0 {
		t.Fatalf("unexpected deletes: %v", deleteIds)
	}
	if entry.Category != models.CategoryRentalCar {
		t.Fatalf("category = %s, want %s", entry.Category, models.CategoryRentalCar)
	}
	if entry.Vendor != "Fuel Co" {
		t.Fatalf("vendor = %q, want Fuel Co", entry.Vendor)
	}
	if !entry.Amount.Equal(dec("20.00")) {
		t.Fatalf("amount = %s, want 20.00", entry.Amount)
	}
}

func TestFuelSaveFoldsIntoExistingRental(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	rental := entryOn(0, testDate(), "Hertz", "50.00", models.CategoryRentalCar)
	if _, err := store.UpsertEntry(ctx, &rental); err != nil {
		t.Fatal(err)
	}

	fuel := entryOn(0, testDate(), "Fuel Co", "20.00", models.CategoryRentalCarFuel)
	deleteIds, err := ResolveCategoryMerge(ctx, store, &fuel)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleteIds) != 0 {
		t.Fatalf("unexpected deletes: %v", deleteIds)
	}
	if fuel.ID != rental.ID {
		t.Fatalf("fold target id = %d, want %d", fuel.ID, rental.ID)
	}
	if !fuel.Amount.Equal(dec("70.00")) {
		t.Fatalf("amount = %s, want 70.00", fuel.Amount)
	}
	if fuel.Vendor != "Hertz + Fuel Co" {
		t.Fatalf("vendor = %q, want Hertz + Fuel Co", fuel.Vendor)
	}
}

func TestRentalSaveAbsorbsEarlierFuelRow(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	// A fuel-first save committed through the engine is stored under the
	// rental category; simulate the resulting row.
	fuelRow := entryOn(0, testDate(), "Fuel Co", "20.00", models.CategoryRentalCar)
	if _, err := store.UpsertEntry(ctx, &fuelRow); err != nil {
		t.Fatal(err)
	}

	rental := entryOn(0, testDate(), "Hertz", "50.00", models.CategoryRentalCar)
	deleteIds, err := ResolveCategoryMerge(ctx, store, &rental)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleteIds) != 1 || deleteIds[0] != fuelRow.ID {
		t.Fatalf("deleteIds = %v, want [%d]", deleteIds, fuelRow.ID)
	}
	if !rental.Amount.Equal(dec("70.00")) {
		t.Fatalf("amount = %s, want 70.00", rental.Amount)
	}
	// The new submission's vendor leads.
	if rental.Vendor != "Hertz + Fuel Co" {
		t.Fatalf("vendor = %q, want Hertz + Fuel Co", rental.Vendor)
	}
}

func TestRentalSaveAbsorbsLegacyFuelCategoryRow(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	legacy := entryOn(0, testDate(), "Fuel Co", "20.00", models.CategoryRentalCarFuel)
	if _, err := store.UpsertEntry(ctx, &legacy); err != nil {
		t.Fatal(err)
	}

	rental := entryOn(0, testDate(), "Hertz", "50.00", models.CategoryRentalCar)
	deleteIds, err := ResolveCategoryMerge(ctx, store, &rental)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleteIds) != 1 || deleteIds[0] != legacy.ID {
		t.Fatalf("deleteIds = %v, want [%d]", deleteIds, legacy.ID)
	}
	if !rental.Amount.Equal(dec("70.00")) {
		t.Fatalf("amount = %s, want 70.00", rental.Amount)
	}
}

func TestNonMergeCategoriesUntouched(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	lodging := entryOn(0, testDate(), "Marriott", "120.00", models.CategoryLodging)
	deleteIds, err := ResolveCategoryMerge(ctx, store, &lodging)
	if err != nil {
		t.Fatal(err)
	}
	if len(deleteIds) != 0 || lodging.Category != models.CategoryLodging {
		t.Fatalf("lodging entry was altered: %+v deletes %v", lodging, deleteIds)
	}
}

// After any interleaving of rental and fuel saves for one (employee, date)
// pair, exactly one row survives and its amount is the sum of every amount
// submitted.
func TestMergeInterleavingSum(t *testing.T) {
	type save struct {
		category models.ExpenseCategory
		vendor   string
		amount   string
	}
	interleavings := [][]save{
		{{models.CategoryRentalCar, "Hertz", "50.00"}, {models.CategoryRentalCarFuel, "Fuel Co", "20.00"}, {models.CategoryRentalCarFuel, "Shell", "15.00"}},
		{{models.CategoryRentalCarFuel, "Fuel Co", "20.00"}, {models.CategoryRentalCar, "Hertz", "50.00"}, {models.CategoryRentalCarFuel, "Shell", "15.00"}},
		{{models.CategoryRentalCarFuel, "Fuel Co", "20.00"}, {models.CategoryRentalCarFuel, "Shell", "15.00"}, {models.CategoryRentalCar, "Hertz", "50.00"}},
	}

	for i, saves := range interleavings {
		store := newFakeStore()
		ctx := context.Background()

		want := decimal.Zero
		for _, s := range saves {
			entry := entryOn(0, testDate(), s.vendor, s.amount, s.category)
			deleteIds, err := ResolveCategoryMerge(ctx, store, &entry)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := store.UpsertEntry(ctx, &entry); err != nil {
				t.Fatal(err)
			}
			for _, id := range deleteIds {
				if err := store.DeleteEntry(ctx, id); err != nil {
					t.Fatal(err)
				}
			}
			want = want.Add(dec(s.amount))
		}

		rows, err := store.EntriesForDate(ctx, 7, testDate(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("interleaving %d: %d rows survived, want 1", i, len(rows))
		}
		if rows[0].Category != models.CategoryRentalCar {
			t.Fatalf("interleaving %d: category %s", i, rows[0].Category)
		}
		if !rows[0].Amount.Equal(want) {
			t.Fatalf("interleaving %d: amount %s, want %s", i, rows[0].Amount, want)
		}
	}
}
