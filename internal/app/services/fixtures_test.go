package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/app/repositories/memstore"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

var nopLogger = zerolog.Nop()

func applicant(appNo string, category models.Category, rank int, choices ...string) *models.Applicant {
	a := &models.Applicant{
		ApplicationNumber: appNo,
		Name:              "Applicant " + appNo,
		Email:             appNo + "@example.com",
		Category:          category,
		Choices:           choices,
	}
	if rank > 0 {
		a.CategoryRank = &rank
	}
	return a
}

func seats(category models.Category, department string, n int) *models.InventoryEntry {
	return &models.InventoryEntry{Category: category, Department: department, OriginalSeats: n}
}

// newStore creates a memstore through the repository API so IDs and
// submission order are assigned the way the database would.
func newStore(t *testing.T, inventory []*models.InventoryEntry, applicants ...*models.Applicant) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	for _, e := range inventory {
		require.NoError(t, store.Inventory().Create(ctx, e))
	}
	for _, a := range applicants {
		require.NoError(t, store.Applicants().Create(ctx, a))
	}
	return store
}

func newEngine(store repositories.Store) *AllocationEngine {
	return NewAllocationEngine(store, DefaultEnginePolicy(), nopLogger)
}

func remaining(t *testing.T, store repositories.Store, category models.Category, department string) int {
	t.Helper()
	rows, err := store.Inventory().Snapshot(context.Background(), category)
	require.NoError(t, err)
	for _, r := range rows {
		if r.Department == department {
			return r.RemainingSeats
		}
	}
	t.Fatalf("no inventory row %s/%s", category, department)
	return 0
}

func current(t *testing.T, store repositories.Store, appNo string) *models.AllocationRecord {
	t.Helper()
	rec, err := store.Allocations().GetCurrent(context.Background(), appNo)
	if errors.Is(err, apperrors.ErrAllocationNotFound) {
		return nil
	}
	require.NoError(t, err)
	return rec
}

// assertConservation checks original = remaining + active records for every row
// and that no applicant holds more than one record.
func assertConservation(t *testing.T, store repositories.Store) {
	t.Helper()
	ctx := context.Background()

	rows, err := store.Inventory().ListAll(ctx)
	require.NoError(t, err)
	active, err := store.Allocations().CountActive(ctx)
	require.NoError(t, err)

	for _, row := range rows {
		assert.Equal(t, row.OriginalSeats, row.RemainingSeats+active[row.Key()],
			"conservation broken for %s/%s", row.Category, row.Department)
	}

	records, err := store.Allocations().ListAll(ctx)
	require.NoError(t, err)
	holders := make(map[string]bool, len(records))
	for _, r := range records {
		assert.False(t, holders[r.ApplicationNumber], "%s holds two records", r.ApplicationNumber)
		holders[r.ApplicationNumber] = true
	}
}

// releaseSeat simulates a withdrawal: the record goes and the seat comes back.
func releaseSeat(t *testing.T, store repositories.Store, appNo string) {
	t.Helper()
	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx repositories.Store) error {
		rec, err := tx.Allocations().LockCurrent(ctx, appNo)
		if err != nil {
			return err
		}
		if err := tx.Inventory().Release(ctx, rec.Category, rec.Department); err != nil {
			return err
		}
		return tx.Allocations().Delete(ctx, rec.ID)
	})
	require.NoError(t, err)
}

// faultyStore fails record creation for one applicant inside transactions
type faultyStore struct {
	repositories.Store
	failFor string
}

var errDiskFull = errors.New("disk full")

func (s *faultyStore) Allocations() repositories.AllocationRepository {
	return &faultyAllocations{AllocationRepository: s.Store.Allocations(), failFor: s.failFor}
}

func (s *faultyStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	return s.Store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		return fn(ctx, &faultyStore{Store: tx, failFor: s.failFor})
	})
}

type faultyAllocations struct {
	repositories.AllocationRepository
	failFor string
}

func (r *faultyAllocations) Create(ctx context.Context, record *models.AllocationRecord) error {
	if record.ApplicationNumber == r.failFor {
		return errDiskFull
	}
	return r.AllocationRepository.Create(ctx, record)
}

// decidingStore submits a decision for one applicant just before the first
// transaction opens, after the pass has already read the record.
type decidingStore struct {
	repositories.Store
	appNo    string
	decision models.DecisionStatus
	done     bool
}

func (s *decidingStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if !s.done {
		s.done = true
		if _, err := NewDecisionService(s.Store, nopLogger).SubmitDecision(ctx, s.appNo, s.decision); err != nil {
			return err
		}
	}
	return s.Store.WithinTransaction(ctx, fn)
}
