package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/shopspring/decimal"
)

func TestValidatePerDiem(t *testing.T) {
	capped := &models.PerDiemRule{CostCenter: "CC-104", MaxAmount: dec("45.00")}
	actual := &models.PerDiemRule{CostCenter: "CC-200", MaxAmount: dec("45.00"), UseActualAmount: true}

	cases := []struct {
		name        string
		amount      decimal.Decimal
		rule        *models.PerDiemRule
		wantOutcome RuleOutcome
		wantReason  RuleReason
	}{
		{"no rule", dec("999.99"), nil, OutcomeApproved, ""},
		{"under cap", dec("30.00"), capped, OutcomeApproved, ""},
		{"exactly at cap", dec("45.00"), capped, OutcomeApproved, ""},
		{"over cap", dec("45.01"), capped, OutcomeRejected, ReasonExceedsMaximum},
		{"over cap with actual amount still rejected", dec("50.00"), actual, OutcomeRejected, ReasonExceedsMaximum},
		{"at cap with actual amount needs confirmation", dec("45.00"), actual, OutcomeNeedsConfirmation, ReasonActualAmount},
		{"under cap with actual amount needs confirmation", dec("12.50"), actual, OutcomeNeedsConfirmation, ReasonActualAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidatePerDiem(tc.amount, tc.rule)
			if res.Outcome != tc.wantOutcome {
				t.Fatalf("outcome = %s, want %s", res.Outcome, tc.wantOutcome)
			}
			if res.Reason != tc.wantReason {
				t.Fatalf("reason = %s, want %s", res.Reason, tc.wantReason)
			}
			if res.Outcome == OutcomeNeedsConfirmation && res.ConfirmLabel != "Continue" {
				t.Fatalf("confirm label = %q, want Continue", res.ConfirmLabel)
			}
		})
	}
}

func TestValidateEesLabels(t *testing.T) {
	rules := newFakeRules()

	rules.eesResult = &models.EesValidationResult{IsValid: true, Message: "ok"}
	res, err := ValidateEes(context.Background(), rules, 1, "CC-104", dec("25.00"), testDate())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeNeedsConfirmation || res.ConfirmLabel != "Continue" {
		t.Fatalf("valid EES: outcome %s label %q", res.Outcome, res.ConfirmLabel)
	}

	rules.eesResult = &models.EesValidationResult{IsValid: false, Message: "amount mismatch"}
	res, err = ValidateEes(context.Background(), rules, 1, "CC-104", dec("30.00"), testDate())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeNeedsConfirmation || res.ConfirmLabel != "Continue Anyway" {
		t.Fatalf("invalid EES: outcome %s label %q", res.Outcome, res.ConfirmLabel)
	}
	if res.Message != "amount mismatch" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestValidateEesCollaboratorError(t *testing.T) {
	rules := newFakeRules()
	rules.eesErr = errors.New("connection reset")
	if _, err := ValidateEes(context.Background(), rules, 1, "CC-104", dec("25.00"), testDate()); err == nil {
		t.Fatal("expected collaborator error to propagate")
	}
}

func TestValidateCategoryRequirements(t *testing.T) {
	cases := []struct {
		name        string
		category    models.ExpenseCategory
		description string
		imageRef    string
		wantOutcome RuleOutcome
		wantReason  RuleReason
	}{
		{"other without description", models.CategoryOther, "   ", "r.jpg", OutcomeRejected, ReasonMissingDescription},
		{"other with description", models.CategoryOther, "tolls refund", "r.jpg", OutcomeApproved, ""},
		{"lodging without photo", models.CategoryLodging, "hotel", "", OutcomeRejected, ReasonMissingPhoto},
		{"lodging with photo", models.CategoryLodging, "hotel", "r.jpg", OutcomeApproved, ""},
		{"per diem never needs photo", models.CategoryPerDiem, "", "", OutcomeApproved, ""},
		{"ees without marker", models.CategoryEes, "class fee", "r.jpg", OutcomeRejected, ReasonMissingEesMarker},
		{"ees with marker", models.CategoryEes, "class fee - Not for reimbursement", "r.jpg", OutcomeApproved, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateCategoryRequirements(tc.category, tc.description, tc.imageRef)
			if res.Outcome != tc.wantOutcome {
				t.Fatalf("outcome = %s, want %s", res.Outcome, tc.wantOutcome)
			}
			if res.Reason != tc.wantReason {
				t.Fatalf("reason = %s, want %s", res.Reason, tc.wantReason)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if res := ValidateAmount(dec("0")); res.Outcome != OutcomeRejected || res.Reason != ReasonInvalidAmount {
		t.Fatalf("zero amount: %+v", res)
	}
	if res := ValidateAmount(dec("-5.00")); res.Outcome != OutcomeRejected {
		t.Fatalf("negative amount: %+v", res)
	}
	if res := ValidateAmount(dec("0.01")); res.Outcome != OutcomeApproved {
		t.Fatalf("one cent: %+v", res)
	}
}
