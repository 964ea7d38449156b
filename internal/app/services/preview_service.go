package services

import (
	"context"
	"fmt"

	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/app/repositories/memstore"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

// RoundPreview is the projected outcome of a round that was not committed
type RoundPreview struct {
	Report    *RoundReport             `json:"report"`
	Inventory []*models.InventoryEntry `json:"inventory"`
}

// PreviewService runs a round against an in-memory copy of the data
type PreviewService struct {
	store        repositories.Store
	engine       *AllocationEngine
	orchestrator *RoundOrchestrator
}

// NewPreviewService creates a new preview service
func NewPreviewService(store repositories.Store, engine *AllocationEngine, orchestrator *RoundOrchestrator) *PreviewService {
	return &PreviewService{
		store:        store,
		engine:       engine,
		orchestrator: orchestrator,
	}
}

// PreviewRound shows what RunRound would do right now. Nothing is written
// and the round lock is not taken.
func (s *PreviewService) PreviewRound(ctx context.Context, roundNumber int) (*RoundPreview, error) {
	if roundNumber < 1 {
		return nil, apperrors.ErrInvalidRound
	}

	applicants, err := s.store.Applicants().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading applicants: %w", err)
	}
	inventory, err := s.store.Inventory().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading seat inventory: %w", err)
	}
	records, err := s.store.Allocations().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading allocations: %w", err)
	}

	sandbox := memstore.Load(applicants, inventory, records)
	report := s.orchestrator.run(ctx, roundNumber, s.engine.withStore(sandbox), true)

	projected, err := sandbox.Inventory().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading projected inventory: %w", err)
	}

	return &RoundPreview{Report: report, Inventory: projected}, nil
}
