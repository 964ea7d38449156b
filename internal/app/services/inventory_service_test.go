package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories/memstore"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

func record(appNo, dept string) *models.AllocationRecord {
	now := time.Now()
	return &models.AllocationRecord{
		ID: "rec-" + appNo, ApplicationNumber: appNo, Category: gen, Department: dept,
		Round: 1, PreferenceRank: 1, Status: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
}

func TestReconcile_RepairsDriftedCounters(t *testing.T) {
	store := memstore.Load(
		nil,
		[]*models.InventoryEntry{
			{ID: 1, Category: gen, Department: "cse", OriginalSeats: 3, RemainingSeats: 3},
			{ID: 2, Category: gen, Department: "ece", OriginalSeats: 2, RemainingSeats: 0},
		},
		[]*models.AllocationRecord{record("A1", "cse"), record("A2", "cse")},
	)
	svc := NewInventoryService(store, nopLogger)

	results, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, models.ReconcileResult{
		Category: gen, Department: "cse", OriginalSeats: 3, PreviousRemaining: 3, Remaining: 1, Active: 2,
	}, results[0])
	assert.True(t, results[0].Drifted())
	assert.Equal(t, 2, results[1].Remaining)

	assert.Equal(t, 1, remaining(t, store, gen, "cse"))
	assert.Equal(t, 2, remaining(t, store, gen, "ece"))
	assertConservation(t, store)
}

func TestReconcile_HaltsOverbookedRow(t *testing.T) {
	store := memstore.Load(
		[]*models.Applicant{applicant("A3", gen, 1, "cse", "ece")},
		[]*models.InventoryEntry{
			{ID: 1, Category: gen, Department: "cse", OriginalSeats: 1, RemainingSeats: 1},
			{ID: 2, Category: gen, Department: "ece", OriginalSeats: 1, RemainingSeats: 1},
		},
		[]*models.AllocationRecord{record("A1", "cse"), record("A2", "cse")},
	)
	svc := NewInventoryService(store, nopLogger)
	ctx := context.Background()

	results, err := svc.Reconcile(ctx)
	assert.ErrorIs(t, err, apperrors.ErrInconsistentInventory)
	require.Len(t, results, 2)
	assert.True(t, results[0].Halted)
	assert.Equal(t, 0, results[0].Remaining)
	assert.False(t, results[1].Halted)

	// Halted rows refuse further mutation
	assert.ErrorIs(t, store.Inventory().Reserve(ctx, gen, "cse"), apperrors.ErrInconsistentInventory)
	assert.ErrorIs(t, store.Inventory().Release(ctx, gen, "cse"), apperrors.ErrInconsistentInventory)

	report, err := newEngine(store).RunCategory(ctx, gen, 1)
	require.NoError(t, err)
	assert.Contains(t, report.Skipped, ChoiceDiagnostic{ApplicationNumber: "A3", Department: "cse", PreferenceRank: 1, Reason: SkipHalted})
	assert.Equal(t, "ece", current(t, store, "A3").Department)

	// Repaired once the extra record is gone
	releaseRecord(t, store, "A2")
	_, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	rows, err := svc.List(ctx)
	require.NoError(t, err)
	assert.False(t, rows[0].Halted)
	assert.Equal(t, 0, rows[0].RemainingSeats)
}

// releaseRecord deletes a record without touching inventory
func releaseRecord(t *testing.T, store *memstore.Store, appNo string) {
	t.Helper()
	ctx := context.Background()
	rec, err := store.Allocations().GetCurrent(ctx, appNo)
	require.NoError(t, err)
	require.NoError(t, store.Allocations().Delete(ctx, rec.ID))
}

func TestHasRemainingSeats(t *testing.T) {
	ctx := context.Background()

	store := newStore(t, []*models.InventoryEntry{seats(gen, "cse", 1)}, applicant("A1", gen, 1, "cse"))
	svc := NewInventoryService(store, nopLogger)

	ok, err := svc.HasRemainingSeats(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = newEngine(store).RunCategory(ctx, gen, 1)
	require.NoError(t, err)

	ok, err = svc.HasRemainingSeats(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	halted := memstore.Load(nil, []*models.InventoryEntry{
		{ID: 1, Category: gen, Department: "cse", OriginalSeats: 2, RemainingSeats: 2, Halted: true},
	}, nil)
	ok, err = NewInventoryService(halted, nopLogger).HasRemainingSeats(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "halted rows do not count as free seats")
}
