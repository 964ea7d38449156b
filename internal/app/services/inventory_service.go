package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/metrics"
)

// InventoryService exposes seat counters and keeps them honest
type InventoryService struct {
	store  repositories.Store
	logger zerolog.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store repositories.Store, logger zerolog.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		logger: logger,
	}
}

// List returns every inventory row
func (s *InventoryService) List(ctx context.Context) ([]*models.InventoryEntry, error) {
	rows, err := s.store.Inventory().ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing seat inventory: %w", err)
	}
	return rows, nil
}

// HasRemainingSeats reports whether any usable row still has a free seat
func (s *InventoryService) HasRemainingSeats(ctx context.Context) (bool, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if !row.Halted && row.RemainingSeats > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Reconcile recomputes every remaining counter from the active allocation
// records. Rows holding more records than seats are halted and the call
// returns ErrInconsistentInventory alongside the full result set; the repair
// of the other rows is committed either way.
func (s *InventoryService) Reconcile(ctx context.Context) ([]models.ReconcileResult, error) {
	var results []models.ReconcileResult

	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		results = results[:0]

		rows, err := tx.Inventory().ListForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("error locking seat inventory: %w", err)
		}

		active, err := tx.Allocations().CountActive(ctx)
		if err != nil {
			return fmt.Errorf("error counting allocations: %w", err)
		}

		for _, row := range rows {
			key := row.Key()
			count := active[key]
			delete(active, key)

			res := models.ReconcileResult{
				Category:          row.Category,
				Department:        row.Department,
				OriginalSeats:     row.OriginalSeats,
				PreviousRemaining: row.RemainingSeats,
				Active:            count,
			}

			if count > row.OriginalSeats {
				res.Remaining = 0
				res.Halted = true
			} else {
				res.Remaining = row.OriginalSeats - count
			}

			if res.Remaining != row.RemainingSeats || res.Halted != row.Halted {
				if err := tx.Inventory().SetState(ctx, row.ID, res.Remaining, res.Halted); err != nil {
					return fmt.Errorf("error updating %s/%s: %w", row.Category, row.Department, err)
				}
			}

			results = append(results, res)
		}

		// Records pointing at rows that no longer exist
		for key, count := range active {
			s.logger.Warn().
				Str("category", string(key.Category)).
				Str("department", key.Department).
				Int("records", count).
				Msg("Allocation records reference a missing inventory row")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	halted := 0
	for _, res := range results {
		switch {
		case res.Halted:
			halted++
			s.logger.Error().
				Str("category", string(res.Category)).
				Str("department", res.Department).
				Int("original", res.OriginalSeats).
				Int("active", res.Active).
				Msg("Inventory row halted: more active allocations than seats")
		case res.Drifted():
			s.logger.Warn().
				Str("category", string(res.Category)).
				Str("department", res.Department).
				Int("was", res.PreviousRemaining).
				Int("now", res.Remaining).
				Msg("Inventory counter repaired")
		}
	}
	metrics.HaltedRows.Set(float64(halted))

	s.logger.Info().Int("rows", len(results)).Int("halted", halted).Msg("Inventory reconciled")

	if halted > 0 {
		return results, fmt.Errorf("%w: %d inventory rows halted", apperrors.ErrInconsistentInventory, halted)
	}
	return results, nil
}
