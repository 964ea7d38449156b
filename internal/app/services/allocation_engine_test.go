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

const gen = models.CategoryGEN

func TestRunCategory_MeritOrderTakesFreeSeats(t *testing.T) {
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1), seats(gen, "ece", 1)},
		applicant("A1", gen, 1, "CSE", "ECE"),
		applicant("A2", gen, 2, "cse", "ece"),
		applicant("A3", gen, 3, "cse"),
	)

	report, err := newEngine(store).RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Allocated)
	assert.Equal(t, 1, report.Unseated)
	assert.Equal(t, 0, report.Upgraded)
	assert.Empty(t, report.Unresolved)
	assert.Equal(t, 3, report.Processed())

	a1 := current(t, store, "A1")
	require.NotNil(t, a1)
	assert.Equal(t, "cse", a1.Department)
	assert.Equal(t, 1, a1.PreferenceRank)
	assert.Equal(t, 1, a1.Round)
	assert.Equal(t, models.StatusPending, a1.Status)

	a2 := current(t, store, "A2")
	require.NotNil(t, a2)
	assert.Equal(t, "ece", a2.Department)
	assert.Equal(t, 2, a2.PreferenceRank)

	assert.Nil(t, current(t, store, "A3"))

	assert.Contains(t, report.Skipped, ChoiceDiagnostic{ApplicationNumber: "A2", Department: "cse", PreferenceRank: 1, Reason: SkipNoCapacity})
	assert.Contains(t, report.Skipped, ChoiceDiagnostic{ApplicationNumber: "A3", Department: "cse", PreferenceRank: 1, Reason: SkipNoCapacity})

	assert.Equal(t, 0, remaining(t, store, gen, "cse"))
	assert.Equal(t, 0, remaining(t, store, gen, "ece"))
	assertConservation(t, store)
}

func TestRunCategory_RankOrderWithTiesAndUnranked(t *testing.T) {
	prefs := []string{"cse", "ece", "me", "civil"}
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1), seats(gen, "ece", 1), seats(gen, "me", 1)},
		applicant("Z", gen, 0, prefs...),
		applicant("Y", gen, 2, prefs...),
		applicant("X", gen, 1, prefs...),
		applicant("W", gen, 2, prefs...),
	)

	report, err := newEngine(store).RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)

	assert.Equal(t, "cse", current(t, store, "X").Department)
	assert.Equal(t, "ece", current(t, store, "Y").Department, "earlier submission wins the rank tie")
	assert.Equal(t, "me", current(t, store, "W").Department)
	assert.Nil(t, current(t, store, "Z"), "unranked applicants go last")

	assert.Equal(t, 3, report.Allocated)
	assert.Equal(t, 1, report.Unseated)
	assert.Contains(t, report.Skipped, ChoiceDiagnostic{ApplicationNumber: "Z", Department: "civil", PreferenceRank: 4, Reason: SkipUnknownChoice})
	assertConservation(t, store)
}

func TestRunCategory_RerunWithoutChangesIsStable(t *testing.T) {
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1), seats(gen, "ece", 1)},
		applicant("A1", gen, 1, "cse", "ece"),
		applicant("A2", gen, 2, "cse", "ece"),
		applicant("A3", gen, 3, "cse", "ece"),
	)
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.RunCategory(ctx, gen, 1)
	require.NoError(t, err)

	report, err := engine.RunCategory(ctx, gen, 2)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Allocated)
	assert.Equal(t, 0, report.Upgraded)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, 1, report.Unseated, "an applicant with nothing free stays unseated")
	assert.Empty(t, report.Unresolved)

	assert.Equal(t, 1, current(t, store, "A1").Round)
	assert.Equal(t, 1, current(t, store, "A2").Round)
	assert.Nil(t, current(t, store, "A3"))
	assertConservation(t, store)
}

// holdingStore loads a category where some seats are already held by
// applicants without choices, so the seats can be freed between rounds.
func holdingStore(inventory []*models.InventoryEntry, applicants []*models.Applicant, holders map[string]string) *memstore.Store {
	var records []*models.AllocationRecord
	now := time.Now()
	for appNo, dept := range holders {
		records = append(records, &models.AllocationRecord{
			ID:                "rec-" + appNo,
			ApplicationNumber: appNo,
			Category:          gen,
			Department:        dept,
			Round:             1,
			PreferenceRank:    1,
			Status:            models.StatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	for i, a := range applicants {
		a.SubmissionSeq = int64(i + 1)
	}
	for i, e := range inventory {
		e.ID = int64(i + 1)
	}
	return memstore.Load(applicants, inventory, records)
}

func TestRunCategory_UpgradeWhenBetterSeatFrees(t *testing.T) {
	store := holdingStore(
		[]*models.InventoryEntry{
			{Category: gen, Department: "a", OriginalSeats: 1, RemainingSeats: 0},
			{Category: gen, Department: "b", OriginalSeats: 1, RemainingSeats: 1},
			{Category: gen, Department: "c", OriginalSeats: 1, RemainingSeats: 1},
		},
		[]*models.Applicant{
			applicant("HOLD", gen, 1),
			applicant("X", gen, 2, "a", "b", "c"),
		},
		map[string]string{"HOLD": "a"},
	)
	engine := newEngine(store)
	ctx := context.Background()

	report, err := engine.RunCategory(ctx, gen, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Allocated)

	x := current(t, store, "X")
	require.NotNil(t, x)
	assert.Equal(t, "b", x.Department)
	assert.Equal(t, 2, x.PreferenceRank)
	assert.Equal(t, 0, remaining(t, store, gen, "b"))
	assertConservation(t, store)

	releaseSeat(t, store, "HOLD")
	assert.Equal(t, 1, remaining(t, store, gen, "a"))

	report, err = engine.RunCategory(ctx, gen, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upgraded)

	x = current(t, store, "X")
	require.NotNil(t, x)
	assert.Equal(t, "a", x.Department)
	assert.Equal(t, 1, x.PreferenceRank)
	assert.Equal(t, 2, x.Round)
	assert.Equal(t, models.StatusPending, x.Status)
	assert.Equal(t, 0, remaining(t, store, gen, "a"))
	assert.Equal(t, 1, remaining(t, store, gen, "b"), "the old seat goes back to inventory")
	assertConservation(t, store)
}

func TestRunCategory_PreferenceRankNeverWorsens(t *testing.T) {
	store := holdingStore(
		[]*models.InventoryEntry{
			{Category: gen, Department: "a", OriginalSeats: 1, RemainingSeats: 0},
			{Category: gen, Department: "b", OriginalSeats: 1, RemainingSeats: 0},
			{Category: gen, Department: "c", OriginalSeats: 2, RemainingSeats: 2},
		},
		[]*models.Applicant{
			applicant("H1", gen, 0),
			applicant("H2", gen, 0),
			applicant("P2", gen, 1, "a", "b", "c"),
			applicant("P3", gen, 2, "b", "a", "c"),
			applicant("P4", gen, 3, "a", "c"),
		},
		map[string]string{"H1": "a", "H2": "b"},
	)
	engine := newEngine(store)
	ctx := context.Background()

	rankOf := func(appNo string) int {
		if rec := current(t, store, appNo); rec != nil {
			return rec.PreferenceRank
		}
		return 0
	}

	expected := []map[string]int{
		{"P2": 3, "P3": 3, "P4": 0},
		{"P2": 2, "P3": 3, "P4": 2},
		{"P2": 1, "P3": 1, "P4": 2},
	}
	freeBefore := []string{"", "H2", "H1"}

	last := map[string]int{}
	for round := 1; round <= len(expected); round++ {
		if holder := freeBefore[round-1]; holder != "" {
			releaseSeat(t, store, holder)
		}

		report, err := engine.RunCategory(ctx, gen, round)
		require.NoError(t, err)
		require.Empty(t, report.Unresolved)

		for appNo, want := range expected[round-1] {
			got := rankOf(appNo)
			assert.Equal(t, want, got, "round %d rank of %s", round, appNo)
			if prev := last[appNo]; prev > 0 {
				assert.LessOrEqual(t, got, prev, "%s was downgraded in round %d", appNo, round)
				assert.NotZero(t, got, "%s lost a seat in round %d", appNo, round)
			}
			last[appNo] = got
		}
		assertConservation(t, store)
	}
}

func TestRunCategory_LockedApplicants(t *testing.T) {
	build := func() *memstore.Store {
		now := time.Now()
		return memstore.Load(
			[]*models.Applicant{{ApplicationNumber: "L", Category: gen, Choices: []string{"a", "b"}, SubmissionSeq: 1}},
			[]*models.InventoryEntry{
				{ID: 1, Category: gen, Department: "a", OriginalSeats: 1, RemainingSeats: 1},
				{ID: 2, Category: gen, Department: "b", OriginalSeats: 1, RemainingSeats: 0},
			},
			[]*models.AllocationRecord{{
				ID: "rec-l", ApplicationNumber: "L", Category: gen, Department: "b",
				Round: 1, PreferenceRank: 2, Status: models.StatusLock, CreatedAt: now, UpdatedAt: now,
			}},
		)
	}

	t.Run("skipped by default", func(t *testing.T) {
		store := build()
		report, err := newEngine(store).RunCategory(context.Background(), gen, 2)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Locked)
		assert.Equal(t, 0, report.Upgraded)
		rec := current(t, store, "L")
		assert.Equal(t, "b", rec.Department)
		assert.Equal(t, models.StatusLock, rec.Status)
		assert.Equal(t, 1, remaining(t, store, gen, "a"))
	})

	t.Run("upgraded when policy allows", func(t *testing.T) {
		store := build()
		engine := NewAllocationEngine(store, EnginePolicy{MaxChoices: 7, SkipLocked: false}, nopLogger)
		report, err := engine.RunCategory(context.Background(), gen, 2)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Upgraded)
		rec := current(t, store, "L")
		assert.Equal(t, "a", rec.Department)
		assert.Equal(t, models.StatusPending, rec.Status)
		assert.Equal(t, 1, remaining(t, store, gen, "b"))
		assertConservation(t, store)
	})
}

func TestRunCategory_DecisionDuringPass(t *testing.T) {
	build := func() *memstore.Store {
		return holdingStore(
			[]*models.InventoryEntry{
				{Category: gen, Department: "a", OriginalSeats: 1, RemainingSeats: 1},
				{Category: gen, Department: "b", OriginalSeats: 1, RemainingSeats: 0},
			},
			[]*models.Applicant{applicant("P", gen, 1, "a", "b")},
			map[string]string{"P": "b"},
		)
	}

	t.Run("float still upgrades", func(t *testing.T) {
		store := build()
		racing := &decidingStore{Store: store, appNo: "P", decision: models.StatusFloat}
		report, err := newEngine(racing).RunCategory(context.Background(), gen, 2)
		require.NoError(t, err)

		assert.True(t, racing.done)
		assert.Equal(t, 1, report.Upgraded)
		assert.Empty(t, report.Unresolved)
		rec := current(t, store, "P")
		assert.Equal(t, "a", rec.Department)
		assert.Equal(t, models.StatusPending, rec.Status)
		assert.Equal(t, 1, remaining(t, store, gen, "b"))
		assertConservation(t, store)
	})

	t.Run("lock keeps the seat", func(t *testing.T) {
		store := build()
		racing := &decidingStore{Store: store, appNo: "P", decision: models.StatusLock}
		report, err := newEngine(racing).RunCategory(context.Background(), gen, 2)
		require.NoError(t, err)

		assert.True(t, racing.done)
		assert.Equal(t, 1, report.Locked)
		assert.Equal(t, 0, report.Upgraded)
		assert.Empty(t, report.Unresolved)
		rec := current(t, store, "P")
		assert.Equal(t, "b", rec.Department)
		assert.Equal(t, models.StatusLock, rec.Status)
		assert.Equal(t, 1, remaining(t, store, gen, "a"))
		assertConservation(t, store)
	})
}

func TestRunCategory_UnknownChoiceIsDiagnosticOnly(t *testing.T) {
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1)},
		applicant("A1", gen, 1, "Physics", " CSE ", "cse"),
	)

	report, err := newEngine(store).RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)

	assert.Equal(t, []ChoiceDiagnostic{
		{ApplicationNumber: "A1", Department: "physics", PreferenceRank: 1, Reason: SkipUnknownChoice},
	}, report.Skipped)

	rec := current(t, store, "A1")
	require.NotNil(t, rec)
	assert.Equal(t, "cse", rec.Department)
	assert.Equal(t, 2, rec.PreferenceRank)
}

func TestRunCategory_HaltedRowIsSkipped(t *testing.T) {
	store := memstore.Load(
		[]*models.Applicant{applicant("A1", gen, 1, "cse", "ece")},
		[]*models.InventoryEntry{
			{ID: 1, Category: gen, Department: "cse", OriginalSeats: 2, RemainingSeats: 2, Halted: true},
			{ID: 2, Category: gen, Department: "ece", OriginalSeats: 1, RemainingSeats: 1},
		},
		nil,
	)

	report, err := newEngine(store).RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)

	assert.Contains(t, report.Skipped, ChoiceDiagnostic{ApplicationNumber: "A1", Department: "cse", PreferenceRank: 1, Reason: SkipHalted})
	assert.Equal(t, "ece", current(t, store, "A1").Department)
	assert.Equal(t, 2, remaining(t, store, gen, "cse"))
}

func TestRunCategory_FailedStepRollsBackAndPassContinues(t *testing.T) {
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1)},
		applicant("A1", gen, 1, "cse"),
		applicant("A2", gen, 2, "cse"),
	)
	engine := newEngine(&faultyStore{Store: store, failFor: "A1"})

	report, err := engine.RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)

	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "A1", report.Unresolved[0].ApplicationNumber)
	assert.ErrorIs(t, report.Unresolved[0].Err, apperrors.ErrStorageFailure)
	assert.ErrorIs(t, report.Unresolved[0].Err, errDiskFull)

	assert.Nil(t, current(t, store, "A1"))
	a2 := current(t, store, "A2")
	require.NotNil(t, a2, "the seat A1 could not take is still free for A2")
	assert.Equal(t, "cse", a2.Department)
	assert.Equal(t, 1, report.Allocated)
	assertConservation(t, store)
}

func TestRunCategory_MaxChoicesCapsPreferences(t *testing.T) {
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1), seats(gen, "ece", 1)},
		applicant("A1", gen, 1, "cse"),
		applicant("A2", gen, 2, "cse", "ece"),
	)
	engine := NewAllocationEngine(store, EnginePolicy{MaxChoices: 1, SkipLocked: true}, nopLogger)

	report, err := engine.RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Allocated)
	assert.Equal(t, 1, report.Unseated)
	assert.Nil(t, current(t, store, "A2"))
	assert.Equal(t, 1, remaining(t, store, gen, "ece"))
}

func TestRunCategory_InvalidRound(t *testing.T) {
	store := newStore(t, nil)
	_, err := newEngine(store).RunCategory(context.Background(), gen, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRound)
}

func TestRunCategory_EmptyCategory(t *testing.T) {
	store := newStore(t, []*models.InventoryEntry{seats(gen, "cse", 3)})

	report, err := newEngine(store).RunCategory(context.Background(), models.CategorySC, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed())
	assert.Equal(t, models.CategorySC, report.Category)
	assert.Equal(t, 3, remaining(t, store, gen, "cse"))
}
