package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/logger"
	"github.com/yigit/seatallot/internal/pkg/metrics"
	"github.com/yigit/seatallot/internal/pkg/roundlock"
)

// roundLockName is the lock shared by real rounds
const roundLockName = "allocation-round"

// CategoryRunner runs one category pass
type CategoryRunner interface {
	RunCategory(ctx context.Context, category models.Category, round int) (*AllocationReport, error)
}

// RoundLocker keeps two rounds from running at once
type RoundLocker interface {
	Acquire(ctx context.Context, name string) (roundlock.ReleaseFunc, error)
}

// CategoryOutcome is one category's entry in a round report
type CategoryOutcome struct {
	Category models.Category   `json:"category"`
	Report   *AllocationReport `json:"report,omitempty"`
	Error    string            `json:"error,omitempty"`
	Err      error             `json:"-"`
}

// RoundReport is the result of a round across all configured categories
type RoundReport struct {
	RunID      string            `json:"runId"`
	Round      int               `json:"round"`
	DryRun     bool              `json:"dryRun"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Categories []CategoryOutcome `json:"categories"`
	Failed     []models.Category `json:"failed"`
}

// Totals sums the per-category reports
func (r *RoundReport) Totals() AllocationReport {
	var t AllocationReport
	t.Round = r.Round
	for _, c := range r.Categories {
		if c.Report == nil {
			continue
		}
		t.Allocated += c.Report.Allocated
		t.Upgraded += c.Report.Upgraded
		t.Unchanged += c.Report.Unchanged
		t.Unseated += c.Report.Unseated
		t.Locked += c.Report.Locked
		t.Unresolved = append(t.Unresolved, c.Report.Unresolved...)
		t.Skipped = append(t.Skipped, c.Report.Skipped...)
	}
	return t
}

// RoundOrchestrator runs the engine once per category in priority order
type RoundOrchestrator struct {
	runner CategoryRunner
	locker RoundLocker
	order  []models.Category
	logger zerolog.Logger
}

// NewRoundOrchestrator creates a new orchestrator. An empty order falls back
// to models.DefaultCategoryOrder; a nil locker disables round locking.
func NewRoundOrchestrator(runner CategoryRunner, locker RoundLocker, order []models.Category, logger zerolog.Logger) *RoundOrchestrator {
	if len(order) == 0 {
		order = models.DefaultCategoryOrder
	}
	return &RoundOrchestrator{
		runner: runner,
		locker: locker,
		order:  append([]models.Category(nil), order...),
		logger: logger,
	}
}

// CategoryOrder returns the configured processing order
func (o *RoundOrchestrator) CategoryOrder() []models.Category {
	return append([]models.Category(nil), o.order...)
}

// RunRound processes every category for roundNumber. A failing category is
// recorded in the report and the remaining categories still run; the error
// return is reserved for rounds that could not start.
func (o *RoundOrchestrator) RunRound(ctx context.Context, roundNumber int) (*RoundReport, error) {
	if roundNumber < 1 {
		return nil, apperrors.ErrInvalidRound
	}

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, roundLockName)
		if err != nil {
			if errors.Is(err, apperrors.ErrRoundInProgress) {
				return nil, err
			}
			return nil, fmt.Errorf("error acquiring round lock: %w", err)
		}
		defer func() {
			// A fresh context so a cancelled request still frees the lock
			if err := release(context.Background()); err != nil {
				o.logger.Warn().Err(err).Msg("Failed to release round lock")
			}
		}()
	}

	return o.run(ctx, roundNumber, o.runner, false), nil
}

// run is the unlocked category loop, shared with dry runs
func (o *RoundOrchestrator) run(ctx context.Context, roundNumber int, runner CategoryRunner, dryRun bool) *RoundReport {
	report := &RoundReport{
		RunID:      uuid.NewString(),
		Round:      roundNumber,
		DryRun:     dryRun,
		StartedAt:  time.Now(),
		Categories: make([]CategoryOutcome, 0, len(o.order)),
		Failed:     []models.Category{},
	}
	log := logger.ForRound(o.logger, report.RunID, roundNumber)
	log.Info().Bool("dryRun", dryRun).Interface("order", o.order).Msg("Allocation round started")

	for _, category := range o.order {
		catReport, err := runner.RunCategory(ctx, category, roundNumber)
		outcome := CategoryOutcome{Category: category, Report: catReport}
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
			report.Failed = append(report.Failed, category)
			if !dryRun {
				metrics.CategoryFailures.WithLabelValues(string(category)).Inc()
			}
			log.Error().Err(err).Str("category", string(category)).Msg("Category pass failed, continuing with next category")
		}
		report.Categories = append(report.Categories, outcome)
	}

	report.FinishedAt = time.Now()

	result := "completed"
	switch {
	case len(report.Failed) == len(o.order):
		result = "failed"
	case len(report.Failed) > 0:
		result = "partial"
	}
	if !dryRun {
		metrics.RoundsTotal.WithLabelValues(result).Inc()
	}

	totals := report.Totals()
	log.Info().
		Str("result", result).
		Int("allocated", totals.Allocated).
		Int("upgraded", totals.Upgraded).
		Int("unseated", totals.Unseated).
		Int("unresolved", len(totals.Unresolved)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Allocation round finished")

	return report
}
