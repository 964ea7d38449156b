package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/logger"
	"github.com/yigit/seatallot/internal/pkg/metrics"
)

// Skip reasons reported in ChoiceDiagnostic
const (
	SkipUnknownChoice = "unknown_choice"
	SkipNoCapacity    = "no_capacity"
	SkipHalted        = "halted"
)

// errAllocationChanged is returned when the applicant's record moved between
// the pass reading it and the step committing.
var errAllocationChanged = fmt.Errorf("%w: allocation changed during the pass", apperrors.ErrStorageFailure)

// errLockedDuringPass is returned when the applicant LOCKed the held seat
// after the pass read it and the policy leaves LOCKed seats alone.
var errLockedDuringPass = errors.New("allocation locked during the pass")

// EnginePolicy holds the tunables of a category pass
type EnginePolicy struct {
	// MaxChoices caps the preference list length
	MaxChoices int
	// SkipLocked leaves applicants whose seat is LOCKed out of upgrades
	SkipLocked bool
}

// DefaultEnginePolicy returns the policy used when nothing is configured
func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{MaxChoices: models.DefaultMaxChoices, SkipLocked: true}
}

// ChoiceDiagnostic records a preference that was passed over
type ChoiceDiagnostic struct {
	ApplicationNumber string `json:"applicationNumber"`
	Department        string `json:"department"`
	PreferenceRank    int    `json:"preferenceRank"`
	Reason            string `json:"reason"`
}

// UnresolvedApplicant is an applicant whose step failed and was rolled back
type UnresolvedApplicant struct {
	ApplicationNumber string `json:"applicationNumber"`
	Reason            string `json:"reason"`
	Err               error  `json:"-"`
}

// AllocationReport summarizes one category pass
type AllocationReport struct {
	Category   models.Category       `json:"category"`
	Round      int                   `json:"round"`
	Allocated  int                   `json:"allocated"` // first seat this pass
	Upgraded   int                   `json:"upgraded"`
	Unchanged  int                   `json:"unchanged"`
	Unseated   int                   `json:"unseated"`
	Locked     int                   `json:"locked"`
	Unresolved []UnresolvedApplicant `json:"unresolved"`
	Skipped    []ChoiceDiagnostic    `json:"skipped"`
	Duration   time.Duration         `json:"duration"`
}

// Processed returns the number of applicants the pass looked at
func (r *AllocationReport) Processed() int {
	return r.Allocated + r.Upgraded + r.Unchanged + r.Unseated + r.Locked + len(r.Unresolved)
}

// AllocationEngine runs the merit-ordered seat matching for one category
type AllocationEngine struct {
	store   repositories.Store
	policy  EnginePolicy
	logger  zerolog.Logger
	now     func() time.Time
	observe bool // record prometheus metrics
}

// NewAllocationEngine creates a new allocation engine
func NewAllocationEngine(store repositories.Store, policy EnginePolicy, logger zerolog.Logger) *AllocationEngine {
	if policy.MaxChoices <= 0 {
		policy.MaxChoices = models.DefaultMaxChoices
	}
	return &AllocationEngine{
		store:   store,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
		observe: true,
	}
}

// withStore returns a copy of the engine that works against store and keeps
// quiet on metrics. Used for dry runs.
func (e *AllocationEngine) withStore(store repositories.Store) *AllocationEngine {
	c := *e
	c.store = store
	c.observe = false
	return &c
}

// seatView is the pass-local copy of a category's inventory. It is kept in
// step with every committed change so later applicants see current counts.
type seatView map[string]*models.InventoryEntry

type outcome int

const (
	outcomeAllocated outcome = iota
	outcomeUpgraded
	outcomeUnchanged
	outcomeUnseated
	outcomeLocked
	outcomeUnresolved
)

// RunCategory processes every applicant of category in merit order and
// places each on the best free choice that improves on their current seat.
// A failed applicant step is rolled back and reported; the pass goes on.
// The returned error is set only when the pass could not start.
func (e *AllocationEngine) RunCategory(ctx context.Context, category models.Category, round int) (*AllocationReport, error) {
	if round < 1 {
		return nil, apperrors.ErrInvalidRound
	}

	started := e.now()
	log := logger.ForCategory(e.logger, string(category), round)

	applicants, err := e.store.Applicants().ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: loading applicants for %s: %w", apperrors.ErrStorageFailure, category, err)
	}

	rows, err := e.store.Inventory().Snapshot(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: loading inventory for %s: %w", apperrors.ErrStorageFailure, category, err)
	}

	view := make(seatView, len(rows))
	for _, row := range rows {
		view[row.Department] = row
	}

	report := &AllocationReport{
		Category:   category,
		Round:      round,
		Unresolved: []UnresolvedApplicant{},
		Skipped:    []ChoiceDiagnostic{},
	}

	log.Info().Int("applicants", len(applicants)).Int("inventoryRows", len(rows)).Msg("Starting category pass")

	for _, applicant := range applicants {
		result := e.placeApplicant(ctx, log, applicant, category, round, view, report)
		e.tally(report, result)
	}

	report.Duration = e.now().Sub(started)
	if e.observe {
		metrics.CategoryRunDuration.WithLabelValues(string(category)).Observe(report.Duration.Seconds())
	}

	log.Info().
		Int("allocated", report.Allocated).
		Int("upgraded", report.Upgraded).
		Int("unchanged", report.Unchanged).
		Int("unseated", report.Unseated).
		Int("locked", report.Locked).
		Int("unresolved", len(report.Unresolved)).
		Int("skipped", len(report.Skipped)).
		Dur("duration", report.Duration).
		Msg("Category pass finished")

	return report, nil
}

// placeApplicant walks one applicant's preferences and commits at most one move
func (e *AllocationEngine) placeApplicant(
	ctx context.Context,
	log zerolog.Logger,
	applicant *models.Applicant,
	category models.Category,
	round int,
	view seatView,
	report *AllocationReport,
) outcome {
	appNo := applicant.ApplicationNumber
	prefs := PreferenceList(applicant.Choices, e.policy.MaxChoices)

	current, err := e.store.Allocations().GetCurrent(ctx, appNo)
	if err != nil {
		if !errors.Is(err, apperrors.ErrAllocationNotFound) {
			e.unresolved(log, report, appNo, fmt.Errorf("%w: reading current allocation: %w", apperrors.ErrStorageFailure, err))
			return outcomeUnresolved
		}
		current = nil
	}

	if current != nil && current.Status == models.StatusLock && e.policy.SkipLocked {
		return outcomeLocked
	}

	// Position of the held seat in this list; -1 when not held or not listed,
	// in which case any free choice counts as an improvement.
	currentIdx := -1
	if current != nil {
		currentIdx = indexOf(prefs, current.Department)
	}

	for i, dept := range prefs {
		entry, ok := view[dept]
		if !ok {
			e.skip(report, category, appNo, dept, i, SkipUnknownChoice)
			continue
		}
		if entry.Halted {
			e.skip(report, category, appNo, dept, i, SkipHalted)
			continue
		}
		if entry.RemainingSeats <= 0 {
			e.skip(report, category, appNo, dept, i, SkipNoCapacity)
			continue
		}

		// Held seat is equal or better than anything left
		if currentIdx >= 0 && i >= currentIdx {
			return outcomeUnchanged
		}

		err := e.commitStep(ctx, log, applicant, current, category, dept, i, round)
		switch {
		case err == nil:
			entry.RemainingSeats--
			if current != nil && current.Category == category {
				if old, ok := view[current.Department]; ok && old.RemainingSeats < old.OriginalSeats {
					old.RemainingSeats++
				}
			}
			if current != nil {
				log.Debug().Str("applicationNumber", appNo).
					Str("from", current.Department).Str("to", dept).Int("preference", i+1).
					Msg("Applicant upgraded")
				return outcomeUpgraded
			}
			log.Debug().Str("applicationNumber", appNo).Str("department", dept).Int("preference", i+1).
				Msg("Applicant allocated")
			return outcomeAllocated

		case errors.Is(err, errLockedDuringPass):
			return outcomeLocked

		case errors.Is(err, apperrors.ErrStorageFailure):
			e.unresolved(log, report, appNo, err)
			return outcomeUnresolved

		case errors.Is(err, apperrors.ErrNoCapacity):
			// Counter moved under us; trust the store
			entry.RemainingSeats = 0
			e.skip(report, category, appNo, dept, i, SkipNoCapacity)

		case errors.Is(err, apperrors.ErrInconsistentInventory):
			entry.Halted = true
			e.skip(report, category, appNo, dept, i, SkipHalted)

		case errors.Is(err, apperrors.ErrUnknownChoice):
			delete(view, dept)
			e.skip(report, category, appNo, dept, i, SkipUnknownChoice)

		default:
			e.unresolved(log, report, appNo, fmt.Errorf("%w: %w", apperrors.ErrStorageFailure, err))
			return outcomeUnresolved
		}
	}

	if current != nil {
		return outcomeUnchanged
	}
	return outcomeUnseated
}

// commitStep atomically moves the applicant from seen (may be nil) to dept.
// Errors from reserving the new seat come back unwrapped so the caller can
// move on to the next choice; everything else is an ErrStorageFailure.
func (e *AllocationEngine) commitStep(
	ctx context.Context,
	log zerolog.Logger,
	applicant *models.Applicant,
	seen *models.AllocationRecord,
	category models.Category,
	dept string,
	idx int,
	round int,
) error {
	appNo := applicant.ApplicationNumber

	return e.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		current, err := tx.Allocations().LockCurrent(ctx, appNo)
		if err != nil {
			if !errors.Is(err, apperrors.ErrAllocationNotFound) {
				return fmt.Errorf("%w: locking allocation: %w", apperrors.ErrStorageFailure, err)
			}
			current = nil
		}
		if !sameRecord(current, seen) {
			return errAllocationChanged
		}
		if current != nil && current.Status == models.StatusLock && e.policy.SkipLocked {
			return errLockedDuringPass
		}

		if current != nil {
			if err := tx.Inventory().Release(ctx, current.Category, current.Department); err != nil {
				if !errors.Is(err, apperrors.ErrUnknownChoice) {
					return fmt.Errorf("%w: releasing %s/%s: %w", apperrors.ErrStorageFailure, current.Category, current.Department, err)
				}
				// The old row is gone, so there is no counter to give the seat back to
				log.Warn().Str("applicationNumber", appNo).Str("department", current.Department).
					Msg("Released seat has no inventory row")
			}

			if err := tx.Allocations().Delete(ctx, current.ID); err != nil {
				return fmt.Errorf("%w: deleting allocation %s: %w", apperrors.ErrStorageFailure, current.ID, err)
			}
		}

		if err := tx.Inventory().Reserve(ctx, category, dept); err != nil {
			return err
		}

		now := e.now()
		record := &models.AllocationRecord{
			ID:                uuid.NewString(),
			ApplicationNumber: appNo,
			Category:          category,
			Department:        dept,
			Round:             round,
			PreferenceRank:    idx + 1,
			Status:            models.StatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.Allocations().Create(ctx, record); err != nil {
			return fmt.Errorf("%w: creating allocation: %w", apperrors.ErrStorageFailure, err)
		}

		return nil
	})
}

// sameRecord reports whether the locked record is the one the pass read.
// Status is not compared: a PENDING seat turned FLOAT is still upgradeable.
func sameRecord(locked, seen *models.AllocationRecord) bool {
	if locked == nil || seen == nil {
		return locked == nil && seen == nil
	}
	return locked.ID == seen.ID
}

func (e *AllocationEngine) skip(report *AllocationReport, category models.Category, appNo, dept string, idx int, reason string) {
	report.Skipped = append(report.Skipped, ChoiceDiagnostic{
		ApplicationNumber: appNo,
		Department:        dept,
		PreferenceRank:    idx + 1,
		Reason:            reason,
	})
	if e.observe {
		metrics.SkippedChoices.WithLabelValues(string(category), reason).Inc()
	}
}

func (e *AllocationEngine) unresolved(log zerolog.Logger, report *AllocationReport, appNo string, err error) {
	log.Error().Err(err).Str("applicationNumber", appNo).Msg("Applicant step rolled back")
	report.Unresolved = append(report.Unresolved, UnresolvedApplicant{
		ApplicationNumber: appNo,
		Reason:            err.Error(),
		Err:               err,
	})
}

func (e *AllocationEngine) tally(report *AllocationReport, result outcome) {
	var label string
	switch result {
	case outcomeAllocated:
		report.Allocated++
		label = metrics.OutcomeAllocated
	case outcomeUpgraded:
		report.Upgraded++
		label = metrics.OutcomeUpgraded
	case outcomeUnchanged:
		report.Unchanged++
		label = metrics.OutcomeUnchanged
	case outcomeUnseated:
		report.Unseated++
		label = metrics.OutcomeUnseated
	case outcomeLocked:
		report.Locked++
		label = metrics.OutcomeLocked
	case outcomeUnresolved:
		// already appended by unresolved
		label = metrics.OutcomeUnresolved
	}
	if e.observe {
		metrics.SeatOutcomes.WithLabelValues(string(report.Category), label).Inc()
	}
}
