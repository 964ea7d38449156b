package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/metrics"
)

// SeatAllotment is an applicant's view of their current seat
type SeatAllotment struct {
	Applicant  *models.Applicant
	Allocation *models.AllocationRecord
}

// DecisionService handles the applicant's LOCK/FLOAT decision
type DecisionService struct {
	store  repositories.Store
	logger zerolog.Logger
}

// NewDecisionService creates a new decision service
func NewDecisionService(store repositories.Store, logger zerolog.Logger) *DecisionService {
	return &DecisionService{
		store:  store,
		logger: logger,
	}
}

// ParseDecision normalizes raw input into a submittable decision
func ParseDecision(raw string) (models.DecisionStatus, error) {
	decision := models.DecisionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !decision.IsDecision() {
		return "", fmt.Errorf("%w: %q, expected LOCK or FLOAT", apperrors.ErrInvalidDecision, raw)
	}
	return decision, nil
}

// SubmitDecision moves the applicant's current record from PENDING to
// decision. It succeeds at most once per record.
func (s *DecisionService) SubmitDecision(ctx context.Context, applicationNumber string, decision models.DecisionStatus) (*models.AllocationRecord, error) {
	decision, err := ParseDecision(string(decision))
	if err != nil {
		metrics.Decisions.WithLabelValues("invalid", "rejected").Inc()
		return nil, err
	}

	var updated *models.AllocationRecord
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		record, err := tx.Allocations().LockCurrent(ctx, applicationNumber)
		if err != nil {
			return err
		}

		if record.Status != models.StatusPending {
			return apperrors.NewCustomError(apperrors.ErrDecisionAlreadySubmitted,
				fmt.Sprintf("decision already submitted: seat is %s", record.Status))
		}

		if err := tx.Allocations().UpdateStatus(ctx, record.ID, decision); err != nil {
			return fmt.Errorf("error updating allocation status: %w", err)
		}

		record.Status = decision
		updated = record
		return nil
	})
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, apperrors.ErrDecisionAlreadySubmitted):
			result = "already_submitted"
		case errors.Is(err, apperrors.ErrAllocationNotFound):
			result = "not_found"
		}
		metrics.Decisions.WithLabelValues(string(decision), result).Inc()
		return nil, err
	}

	metrics.Decisions.WithLabelValues(string(decision), "accepted").Inc()
	s.logger.Info().
		Str("applicationNumber", applicationNumber).
		Str("department", updated.Department).
		Str("decision", string(decision)).
		Msg("Seat decision recorded")

	return updated, nil
}

// GetSeatAllotment returns the applicant with their current allocation
func (s *DecisionService) GetSeatAllotment(ctx context.Context, applicationNumber string) (*SeatAllotment, error) {
	applicant, err := s.store.Applicants().GetByApplicationNumber(ctx, applicationNumber)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Allocations().GetCurrent(ctx, applicationNumber)
	if err != nil {
		return nil, err
	}

	return &SeatAllotment{Applicant: applicant, Allocation: record}, nil
}
