package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/sirupsen/logrus"
)

// decisionTTL bounds how long an unconfirmed evaluation stays claimable.
const decisionTTL = 15 * time.Minute

// Engine runs the expense save pipeline:
//
//	validate -> duplicate-check -> (confirmation) -> merge-resolve -> persist -> notify
//
// Evaluate is pure over fetched data and never writes. The only suspension
// point is the confirmation: EvaluateExpense parks the normalized entry
// under a token, and ConfirmExpense/CancelExpense settle it. Cancelling has
// zero side effects; once confirmed, the remaining steps run inside one
// transaction or the whole save reports a PersistenceError.
type Engine struct {
	store    Store
	inTx     TxFunc
	rules    RuleSource
	notifier *AnomalyNotifier
	logger   *logrus.Logger

	mu      sync.Mutex
	pending map[string]*pendingDecision
}

type pendingDecision struct {
	entry     models.ExpenseEntry
	createdAt time.Time
}

func NewEngine(store Store, inTx TxFunc, rules RuleSource, notifier *AnomalyNotifier, logger *logrus.Logger) *Engine {
	return &Engine{
		store:    store,
		inTx:     inTx,
		rules:    rules,
		notifier: notifier,
		logger:   logger,
		pending:  make(map[string]*pendingDecision),
	}
}

// Decision is the typed outcome of EvaluateExpense. Exactly one of three
// shapes comes back: Committed set (saved immediately), Rejections set (hard
// failure, form stays open), or Token set with Confirmations/Duplicate for
// the presentation layer to render.
type Decision struct {
	Token         string          `json:"token,omitempty"`
	Outcome       RuleOutcome     `json:"outcome"`
	Rejections    []RuleResult    `json:"rejections,omitempty"`
	Confirmations []RuleResult    `json:"confirmations,omitempty"`
	Duplicate     *DuplicateMatch `json:"duplicate,omitempty"`
	Committed     *CommitResult   `json:"committed,omitempty"`
}

type CommitResult struct {
	EntryId int  `json:"entry_id"`
	Merged  bool `json:"merged"`
}

func (e *Engine) EvaluateExpense(ctx context.Context, input *models.NewExpenseEntry) (*Decision, error) {
	entry := models.ExpenseEntry{
		ID:          input.Id,
		EmployeeId:  input.EmployeeId,
		EntryDate:   utils.DateOnly(input.EntryDate),
		Vendor:      input.Vendor,
		Amount:      input.Amount,
		Category:    input.Category,
		Description: input.Description,
		CostCenter:  input.CostCenter,
		ImageRef:    input.ImageRef,
	}

	// Category transition normalization happens before any rule runs, so the
	// marker check in ValidateCategoryRequirements stays a defensive no-op.
	if entry.Category == models.CategoryEes {
		entry.Description = EnsureMarker(entry.Description)
	} else {
		entry.Description = RemoveMarker(entry.Description)
	}

	var rejections []RuleResult
	if res := ValidateAmount(entry.Amount); res.Outcome == OutcomeRejected {
		rejections = append(rejections, res)
	}
	if res := ValidateCategoryRequirements(entry.Category, entry.Description, entry.ImageRef); res.Outcome == OutcomeRejected {
		rejections = append(rejections, res)
	}

	var confirmations []RuleResult

	if entry.Category == models.CategoryPerDiem {
		rule, err := e.rules.PerDiemRule(ctx, entry.CostCenter)
		if err != nil {
			return nil, persistenceErr("per diem rule lookup", err)
		}
		switch res := ValidatePerDiem(entry.Amount, rule); res.Outcome {
		case OutcomeRejected:
			rejections = append(rejections, res)
		case OutcomeNeedsConfirmation:
			confirmations = append(confirmations, res)
		}
	}

	if entry.Category == models.CategoryEes {
		res, err := ValidateEes(ctx, e.rules, entry.EmployeeId, entry.CostCenter, entry.Amount, entry.EntryDate)
		if err != nil {
			return nil, persistenceErr("EES validation", err)
		}
		confirmations = append(confirmations, res)
	}

	if len(rejections) > 0 {
		return &Decision{Outcome: OutcomeRejected, Rejections: rejections}, nil
	}

	sameDay, err := e.store.EntriesForDate(ctx, entry.EmployeeId, entry.EntryDate, nil)
	if err != nil {
		return nil, persistenceErr("same-day entry fetch", err)
	}
	duplicate := FindDuplicate(entry, sameDay)
	if duplicate != nil {
		confirmations = append(confirmations, needsConfirmation(ReasonDuplicateEntry,
			fmt.Sprintf("A %s entry for %s with this amount already exists on this date.",
				duplicate.Existing.Category, duplicate.Existing.Vendor),
			"Save Anyway"))
	}

	if len(confirmations) == 0 {
		committed, err := e.commitEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		return &Decision{Outcome: OutcomeApproved, Committed: committed}, nil
	}

	token := e.park(entry)
	return &Decision{
		Token:         token,
		Outcome:       OutcomeNeedsConfirmation,
		Confirmations: confirmations,
		Duplicate:     duplicate,
	}, nil
}

// ConfirmExpense settles a parked decision and runs the remaining pipeline.
// On a persistence failure the decision is re-parked under the same token so
// the confirmation can be retried.
func (e *Engine) ConfirmExpense(ctx context.Context, token string) (*CommitResult, error) {
	pd, ok := e.take(token)
	if !ok {
		return nil, ErrDecisionNotFound
	}
	committed, err := e.commitEntry(ctx, pd.entry)
	if err != nil {
		e.mu.Lock()
		e.pending[token] = pd
		e.mu.Unlock()
		return nil, err
	}
	return committed, nil
}

// CancelExpense discards a parked decision. Nothing was written on its
// behalf, so this is a pure forget.
func (e *Engine) CancelExpense(token string) error {
	if _, ok := e.take(token); !ok {
		return ErrDecisionNotFound
	}
	return nil
}

func (e *Engine) park(entry models.ExpenseEntry) string {
	token := uuid.NewString()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prunePendingLocked()
	e.pending[token] = &pendingDecision{entry: entry, createdAt: time.Now()}
	return token
}

func (e *Engine) take(token string) (*pendingDecision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prunePendingLocked()
	pd, ok := e.pending[token]
	if ok {
		delete(e.pending, token)
	}
	return pd, ok
}

func (e *Engine) prunePendingLocked() {
	cutoff := time.Now().Add(-decisionTTL)
	for token, pd := range e.pending {
		if pd.createdAt.Before(cutoff) {
			delete(e.pending, token)
		}
	}
}

func (e *Engine) commitEntry(ctx context.Context, entry models.ExpenseEntry) (*CommitResult, error) {
	unlock := e.lockEntryDay(ctx, entry.EmployeeId, entry.EntryDate)
	defer unlock()

	var (
		id     int
		merged bool
	)
	err := e.inTx(ctx, func(tx Store) error {
		deleteIds, err := ResolveCategoryMerge(ctx, tx, &entry)
		if err != nil {
			return err
		}
		merged = entry.ID != 0 || len(deleteIds) > 0
		id, err = tx.UpsertEntry(ctx, &entry)
		if err != nil {
			return err
		}
		for _, deleteId := range deleteIds {
			if err := tx.DeleteEntry(ctx, deleteId); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistenceErr("expense commit", err)
	}

	entry.ID = id
	if e.notifier != nil {
		e.notifier.Notify(ctx, entry)
	}
	return &CommitResult{EntryId: id, Merged: merged}, nil
}

// lockEntryDay serializes commits per (employee, date) across instances.
// Redis is a best-effort optimization here: the system assumes one human
// editing their own records sequentially, so a missing lock degrades to that
// assumption instead of failing the save.
func (e *Engine) lockEntryDay(ctx context.Context, employeeId int, date time.Time) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	key := fmt.Sprintf("expense-commit:%d:%s", employeeId, utils.FormatDate(date))
	lock, err := locker.Obtain(ctx, key, 20*time.Second, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if err != nil {
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{
				"module": "saveExpense.go",
				"key":    key,
			}).Warn("could not obtain commit lock: " + err.Error())
		}
		return func() {}
	}
	return func() { _ = lock.Release(context.Background()) }
}
