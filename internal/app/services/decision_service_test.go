package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

func allocatedStore(t *testing.T) (*DecisionService, *AllocationEngine) {
	t.Helper()
	store := newStore(t,
		[]*models.InventoryEntry{seats(gen, "cse", 1), seats(gen, "ece", 1)},
		applicant("A1", gen, 1, "ece", "cse"),
		applicant("A2", gen, 2, "cse"),
	)
	engine := newEngine(store)
	_, err := engine.RunCategory(context.Background(), gen, 1)
	require.NoError(t, err)
	return NewDecisionService(store, nopLogger), engine
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.DecisionStatus
		wantErr bool
	}{
		{raw: "LOCK", want: models.StatusLock},
		{raw: " float ", want: models.StatusFloat},
		{raw: "Lock", want: models.StatusLock},
		{raw: "PENDING", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "accept", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDecision(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidDecision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitDecision_ExactlyOnce(t *testing.T) {
	for _, decision := range []models.DecisionStatus{models.StatusLock, models.StatusFloat} {
		t.Run(string(decision), func(t *testing.T) {
			svc, _ := allocatedStore(t)
			ctx := context.Background()

			rec, err := svc.SubmitDecision(ctx, "A1", decision)
			require.NoError(t, err)
			assert.Equal(t, decision, rec.Status)
			assert.Equal(t, "ece", rec.Department)

			stored, err := svc.store.Allocations().GetCurrent(ctx, "A1")
			require.NoError(t, err)
			assert.Equal(t, decision, stored.Status)

			for _, again := range []models.DecisionStatus{models.StatusLock, models.StatusFloat} {
				_, err = svc.SubmitDecision(ctx, "A1", again)
				assert.ErrorIs(t, err, apperrors.ErrDecisionAlreadySubmitted)
			}

			stored, err = svc.store.Allocations().GetCurrent(ctx, "A1")
			require.NoError(t, err)
			assert.Equal(t, decision, stored.Status, "a rejected decision leaves the record alone")
		})
	}
}

func TestSubmitDecision_Rejections(t *testing.T) {
	svc, _ := allocatedStore(t)
	ctx := context.Background()

	_, err := svc.SubmitDecision(ctx, "A1", "PENDING")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDecision)

	_, err = svc.SubmitDecision(ctx, "NOBODY", models.StatusLock)
	assert.ErrorIs(t, err, apperrors.ErrAllocationNotFound)
}

func TestSubmitDecision_FloatKeepsApplicantUpgradeable(t *testing.T) {
	store := holdingStore(
		[]*models.InventoryEntry{
			{Category: gen, Department: "a", OriginalSeats: 1, RemainingSeats: 0},
			{Category: gen, Department: "b", OriginalSeats: 1, RemainingSeats: 1},
		},
		[]*models.Applicant{
			applicant("HOLD", gen, 0),
			applicant("X", gen, 1, "a", "b"),
		},
		map[string]string{"HOLD": "a"},
	)
	engine := newEngine(store)
	svc := NewDecisionService(store, nopLogger)
	ctx := context.Background()

	_, err := engine.RunCategory(ctx, gen, 1)
	require.NoError(t, err)
	_, err = svc.SubmitDecision(ctx, "X", models.StatusFloat)
	require.NoError(t, err)

	releaseSeat(t, store, "HOLD")
	report, err := engine.RunCategory(ctx, gen, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Upgraded)

	rec := current(t, store, "X")
	assert.Equal(t, "a", rec.Department)
	assert.Equal(t, models.StatusPending, rec.Status, "the new seat waits for a new decision")

	_, err = svc.SubmitDecision(ctx, "X", models.StatusLock)
	assert.NoError(t, err)
}

func TestGetSeatAllotment(t *testing.T) {
	svc, _ := allocatedStore(t)
	ctx := context.Background()

	seat, err := svc.GetSeatAllotment(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Applicant A1", seat.Applicant.Name)
	assert.Equal(t, "ece", seat.Allocation.Department)
	assert.Equal(t, 1, seat.Allocation.PreferenceRank)

	_, err = svc.GetSeatAllotment(ctx, "NOBODY")
	assert.ErrorIs(t, err, apperrors.ErrApplicantNotFound)
}
