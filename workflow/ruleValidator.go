package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/shopspring/decimal"
)

// RuleOutcome is the three-way result of a business-rule evaluation.
// Validators never return plain errors for rule failures; an error from this
// file means a collaborator broke, nothing else.
type RuleOutcome string

const (
	OutcomeApproved          RuleOutcome = "Approved"
	OutcomeRejected          RuleOutcome = "Rejected"
	OutcomeNeedsConfirmation RuleOutcome = "NeedsConfirmation"
)

type RuleReason string

const (
	ReasonExceedsMaximum     RuleReason = "ExceedsMaximum"
	ReasonMissingDescription RuleReason = "MissingDescription"
	ReasonMissingPhoto       RuleReason = "MissingPhoto"
	ReasonMissingEesMarker   RuleReason = "MissingEesMarker"
	ReasonInvalidAmount      RuleReason = "InvalidAmount"
	ReasonActualAmount       RuleReason = "ActualAmount"
	ReasonEesCheck           RuleReason = "EesCheck"
	ReasonDuplicateEntry     RuleReason = "DuplicateEntry"
	ReasonDayOffWithHours    RuleReason = "DayOffWithHours"
	ReasonMissingDayOffType  RuleReason = "MissingDayOffType"
	ReasonNegativeHours      RuleReason = "NegativeHours"
)

type RuleResult struct {
	Outcome RuleOutcome `json:"outcome"`
	Reason  RuleReason  `json:"reason,omitempty"`
	Message string      `json:"message,omitempty"`
	// ConfirmLabel is the button caption the presentation layer shows for
	// NeedsConfirmation results ("Continue" vs "Continue Anyway").
	ConfirmLabel string `json:"confirm_label,omitempty"`
}

func approved() RuleResult {
	return RuleResult{Outcome: OutcomeApproved}
}

func rejected(reason RuleReason, message string) RuleResult {
	return RuleResult{Outcome: OutcomeRejected, Reason: reason, Message: message}
}

func needsConfirmation(reason RuleReason, message, label string) RuleResult {
	return RuleResult{Outcome: OutcomeNeedsConfirmation, Reason: reason, Message: message, ConfirmLabel: label}
}

// ValidatePerDiem enforces the cost-center cap. Over the cap is a hard
// reject no matter what the rule says about actual amounts; at or under the
// cap, actual-amount cost centers require the employee to affirm the spend.
// A nil rule means the cost center is uncapped.
func ValidatePerDiem(amount decimal.Decimal, rule *models.PerDiemRule) RuleResult {
	if rule == nil {
		return approved()
	}
	if amount.GreaterThan(rule.MaxAmount) {
		return rejected(ReasonExceedsMaximum,
			fmt.Sprintf("Per diem %s exceeds the %s maximum for this cost center.",
				amount.StringFixed(2), rule.MaxAmount.StringFixed(2)))
	}
	if rule.UseActualAmount {
		return needsConfirmation(ReasonActualAmount,
			fmt.Sprintf("This cost center reimburses actual per diem spend. Confirm the amount of %s.",
				amount.StringFixed(2)),
			"Continue")
	}
	return approved()
}

// ValidateEes delegates to the EES collaborator. The entry is never
// hard-blocked on its verdict; the result is always a confirmation, with the
// button label signalling whether the check passed. The returned error is
// only ever a collaborator I/O failure.
func ValidateEes(ctx context.Context, rules RuleSource, employeeId int, costCenter string, amount decimal.Decimal, date time.Time) (RuleResult, error) {
	res, err := rules.EesValidation(ctx, employeeId, costCenter, amount, date)
	if err != nil {
		return RuleResult{}, err
	}
	label := "Continue"
	if !res.IsValid {
		label = "Continue Anyway"
	}
	return needsConfirmation(ReasonEesCheck, res.Message, label), nil
}

// ValidateCategoryRequirements checks the per-category field rules. The
// marker check is defensive: callers normalize the description before
// validating, so a missing marker here points at a caller bug.
func ValidateCategoryRequirements(category models.ExpenseCategory, description, imageRef string) RuleResult {
	if category == models.CategoryOther && strings.TrimSpace(description) == "" {
		return rejected(ReasonMissingDescription, "A description is required for category Other.")
	}
	if category.RequiresReceiptImage() && strings.TrimSpace(imageRef) == "" {
		return rejected(ReasonMissingPhoto, "A receipt photo is required for this category.")
	}
	if category == models.CategoryEes &&
		!strings.Contains(strings.ToLower(description), strings.ToLower(NonReimbursableMarker)) {
		return rejected(ReasonMissingEesMarker, "EES entries must carry the non-reimbursement marker.")
	}
	return approved()
}

// ValidateAmount rejects non-positive amounts. Zero is invalid for every
// category including Per Diem.
func ValidateAmount(amount decimal.Decimal) RuleResult {
	if amount.LessThanOrEqual(decimal.Zero) {
		return rejected(ReasonInvalidAmount, "Amount must be greater than zero.")
	}
	return approved()
}
