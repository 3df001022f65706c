package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const anomalyModuleName = "ANOMALY"

// AnomalyNotifier runs detection after a commit and fans findings out to the
// anomaly event table and, when enabled, Pub/Sub. Everything here is
// best-effort: a failure is logged and swallowed, the save already happened.
type AnomalyNotifier struct {
	detector AnomalyDetector
	logger   *logrus.Logger
	timeout  time.Duration
}

func NewAnomalyNotifier(detector AnomalyDetector, logger *logrus.Logger) *AnomalyNotifier {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &AnomalyNotifier{
		detector: detector,
		logger:   logger,
		timeout:  10 * time.Second,
	}
}

// Notify detects and records anomalies for a committed entry in the
// background. The caller's context is only read for metadata; the work runs
// on its own deadline so request cancellation cannot truncate it.
func (n *AnomalyNotifier) Notify(ctx context.Context, entry models.ExpenseEntry) {
	if n == nil || n.detector == nil {
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				config.LogError(n.logger, anomalyModuleName, "Notify", "panic in anomaly detection", r, nil)
			}
		}()
		bgCtx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.run(bgCtx, entry, correlationId)
	}()
}

func (n *AnomalyNotifier) run(ctx context.Context, entry models.ExpenseEntry, correlationId string) {
	findings, err := n.detector.Detect(ctx, entry.EmployeeId, entry)
	if err != nil {
		config.LogError(n.logger, anomalyModuleName, "run", "anomaly detection failed", entry.ID, err)
		return
	}
	for _, finding := range findings {
		event := models.AnomalyEvent{
			EmployeeId: entry.EmployeeId,
			EntryId:    entry.ID,
			Severity:   finding.Severity,
			Message:    finding.Message,
		}
		if err := models.CreateAnomalyEvent(ctx, &event); err != nil {
			config.LogError(n.logger, anomalyModuleName, "run", "anomaly event insert failed", finding, err)
		}
		if !config.AnomalyPublishEnabled() {
			continue
		}
		msg := config.AnomalyMessage{
			EmployeeId:    entry.EmployeeId,
			EntryId:       entry.ID,
			EntryDate:     entry.EntryDate,
			Severity:      finding.Severity,
			Message:       finding.Message,
			CorrelationId: correlationId,
			OccurredAt:    time.Now().UTC(),
		}
		if err := config.PublishAnomaly(ctx, msg); err != nil {
			config.LogError(n.logger, anomalyModuleName, "run", "anomaly publish failed", finding, err)
		}
	}
}

// Near-miss vendor detection thresholds. Distance zero is an exact match and
// already handled by the duplicate detector; anything past two edits is a
// genuinely different vendor.
const (
	nearMissMinDistance = 1
	nearMissMaxDistance = 2
)

// largeAmountThreshold flags single entries worth a second look during
// monthly review.
var largeAmountThreshold = decimal.NewFromInt(500)

// DefaultDetector is the stock AnomalyDetector: near-miss vendor names on the
// same day (likely typo duplicates that slipped past exact matching) and
// unusually large single amounts.
type DefaultDetector struct {
	store Store
}

func NewDefaultDetector(store Store) *DefaultDetector {
	return &DefaultDetector{store: store}
}

func (d *DefaultDetector) Detect(ctx context.Context, employeeId int, entry models.ExpenseEntry) ([]Finding, error) {
	var findings []Finding

	sameDay, err := d.store.EntriesForDate(ctx, employeeId, entry.EntryDate, nil)
	if err != nil {
		return nil, err
	}
	vendor := NormalizeVendor(entry.Vendor, entry.Category)
	for _, other := range sameDay {
		if other.ID == entry.ID {
			continue
		}
		otherVendor := NormalizeVendor(other.Vendor, other.Category)
		distance := levenshtein.ComputeDistance(vendor, otherVendor)
		if distance < nearMissMinDistance || distance > nearMissMaxDistance {
			continue
		}
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("Vendor %q is very close to %q on the same day; possible misspelled duplicate.",
				entry.Vendor, other.Vendor),
		})
	}

	if entry.Amount.GreaterThan(largeAmountThreshold) {
		findings = append(findings, Finding{
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Amount %s for %s is unusually large for a single entry.", entry.Amount.StringFixed(2), entry.Category),
		})
	}

	return findings, nil
}
