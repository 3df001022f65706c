package workflow

// NOTE: These tests are intentionally DB-free. They validate the save
// pipeline semantics against in-memory fakes; full MySQL + Redis integration
// tests belong in an environment that can run both.

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	entries map[int]models.ExpenseEntry
	days    map[string]models.DayRecord
	nextId  int

	entriesErr error
	upsertErr  error
	deleteErr  error
	dayErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: map[int]models.ExpenseEntry{},
		days:    map[string]models.DayRecord{},
		nextId:  1,
	}
}

func dayKey(employeeId int, date time.Time) string {
	return fmt.Sprintf("%d|%s", employeeId, utils.FormatDate(date))
}

func (s *fakeStore) EntriesForDate(ctx context.Context, employeeId int, date time.Time, category *models.ExpenseCategory) ([]models.ExpenseEntry, error) {
	if s.entriesErr != nil {
		return nil, s.entriesErr
	}
	var out []models.ExpenseEntry
	for _, e := range s.entries {
		if e.EmployeeId != employeeId || !utils.SameDay(e.EntryDate, date) {
			continue
		}
		if category != nil && e.Category != *category {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpsertEntry(ctx context.Context, entry *models.ExpenseEntry) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	if entry.ID == 0 {
		entry.ID = s.nextId
		s.nextId++
	}
	s.entries[entry.ID] = *entry
	return entry.ID, nil
}

func (s *fakeStore) DeleteEntry(ctx context.Context, id int) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.entries, id)
	return nil
}

func (s *fakeStore) DayRecord(ctx context.Context, employeeId int, date time.Time) (*models.DayRecord, error) {
	if s.dayErr != nil {
		return nil, s.dayErr
	}
	rec, ok := s.days[dayKey(employeeId, date)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *fakeStore) UpsertDayRecord(ctx context.Context, rec *models.DayRecord) error {
	if s.dayErr != nil {
		return s.dayErr
	}
	s.days[dayKey(rec.EmployeeId, rec.RecordDate)] = *rec
	return nil
}

func (s *fakeStore) DeleteDayRecord(ctx context.Context, employeeId int, date time.Time) error {
	if s.dayErr != nil {
		return s.dayErr
	}
	delete(s.days, dayKey(employeeId, date))
	return nil
}

// inTx snapshots state and rolls back on error, mirroring the transactional
// guarantee of the real store.
func (s *fakeStore) inTx(ctx context.Context, fn func(tx Store) error) error {
	snapEntries := make(map[int]models.ExpenseEntry, len(s.entries))
	for k, v := range s.entries {
		snapEntries[k] = v
	}
	snapDays := make(map[string]models.DayRecord, len(s.days))
	for k, v := range s.days {
		snapDays[k] = v
	}
	snapNext := s.nextId

	if err := fn(s); err != nil {
		s.entries = snapEntries
		s.days = snapDays
		s.nextId = snapNext
		return err
	}
	return nil
}

type fakeRules struct {
	perDiem    map[string]*models.PerDiemRule
	perDiemErr error

	eesResult *models.EesValidationResult
	eesErr    error
}

func newFakeRules() *fakeRules {
	return &fakeRules{
		perDiem:   map[string]*models.PerDiemRule{},
		eesResult: &models.EesValidationResult{IsValid: true, Message: "EES amount matches the expected value."},
	}
}

func (r *fakeRules) PerDiemRule(ctx context.Context, costCenter string) (*models.PerDiemRule, error) {
	if r.perDiemErr != nil {
		return nil, r.perDiemErr
	}
	return r.perDiem[costCenter], nil
}

func (r *fakeRules) EesValidation(ctx context.Context, employeeId int, costCenter string, amount decimal.Decimal, date time.Time) (*models.EesValidationResult, error) {
	if r.eesErr != nil {
		return nil, r.eesErr
	}
	return r.eesResult, nil
}

func newTestEngine(store *fakeStore, rules RuleSource) *Engine {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewEngine(store, store.inTx, rules, nil, logger)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testDate() time.Time {
	return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
}
