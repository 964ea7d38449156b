package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/dberrors"
)

const inventoryColumns = `id, category, department, original_seats, remaining_seats, halted`

// PostgresInventoryRepository handles the seat_inventory table. Every counter
// change is a single conditional UPDATE, so Postgres serializes writers per row.
type PostgresInventoryRepository struct {
	db   DBTX
	inTx bool
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db DBTX, inTx bool) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{db: db, inTx: inTx}
}

func scanInventoryEntry(row pgx.Row) (*models.InventoryEntry, error) {
	var e models.InventoryEntry
	var category string
	if err := row.Scan(
		&e.ID,
		&category,
		&e.Department,
		&e.OriginalSeats,
		&e.RemainingSeats,
		&e.Halted,
	); err != nil {
		return nil, err
	}
	e.Category = models.Category(category)
	return &e, nil
}

func (r *PostgresInventoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.InventoryEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying seat inventory: %w", err)
	}
	defer rows.Close()

	var entries []*models.InventoryEntry
	for rows.Next() {
		e, err := scanInventoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning seat inventory: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Snapshot returns all rows of a category
func (r *PostgresInventoryRepository) Snapshot(ctx context.Context, category models.Category) ([]*models.InventoryEntry, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM seat_inventory
		WHERE category = $1
		ORDER BY department
	`
	return r.list(ctx, query, string(category))
}

// ListAll returns every inventory row
func (r *PostgresInventoryRepository) ListAll(ctx context.Context) ([]*models.InventoryEntry, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM seat_inventory
		ORDER BY category, department
	`
	return r.list(ctx, query)
}

// ListForUpdate returns every row, locking them when called inside a transaction
func (r *PostgresInventoryRepository) ListForUpdate(ctx context.Context) ([]*models.InventoryEntry, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM seat_inventory
		ORDER BY id
	`
	if r.inTx {
		query += ` FOR UPDATE`
	}
	return r.list(ctx, query)
}

// Reserve takes one seat from a row
func (r *PostgresInventoryRepository) Reserve(ctx context.Context, category models.Category, department string) error {
	query := `
		UPDATE seat_inventory
		SET remaining_seats = remaining_seats - 1
		WHERE category = $1 AND department = $2 AND remaining_seats > 0 AND NOT halted
	`
	cmdTag, err := r.db.Exec(ctx, query, string(category), department)
	if err != nil {
		if dberrors.IsCheckViolation(err) {
			return fmt.Errorf("%w: %s/%s", apperrors.ErrInconsistentInventory, category, department)
		}
		return fmt.Errorf("error reserving seat: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}
	return r.explainMiss(ctx, category, department, apperrors.ErrNoCapacity)
}

// Release returns one seat to a row
func (r *PostgresInventoryRepository) Release(ctx context.Context, category models.Category, department string) error {
	query := `
		UPDATE seat_inventory
		SET remaining_seats = remaining_seats + 1
		WHERE category = $1 AND department = $2 AND remaining_seats < original_seats AND NOT halted
	`
	cmdTag, err := r.db.Exec(ctx, query, string(category), department)
	if err != nil {
		if dberrors.IsCheckViolation(err) {
			return fmt.Errorf("%w: %s/%s", apperrors.ErrInconsistentInventory, category, department)
		}
		return fmt.Errorf("error releasing seat: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}
	// A full row cannot accept a release: more seats would exist than were offered.
	return r.explainMiss(ctx, category, department, apperrors.ErrInconsistentInventory)
}

// explainMiss works out why a conditional update touched no row
func (r *PostgresInventoryRepository) explainMiss(ctx context.Context, category models.Category, department string, boundErr error) error {
	var halted bool
	err := r.db.QueryRow(ctx,
		`SELECT halted FROM seat_inventory WHERE category = $1 AND department = $2`,
		string(category), department).Scan(&halted)
	if err != nil {
		if dberrors.IsNoRows(err) {
			return fmt.Errorf("%w: %s/%s", apperrors.ErrUnknownChoice, category, department)
		}
		return fmt.Errorf("error checking seat inventory: %w", err)
	}
	if halted {
		return fmt.Errorf("%w: %s/%s is halted", apperrors.ErrInconsistentInventory, category, department)
	}
	return fmt.Errorf("%w: %s/%s", boundErr, category, department)
}

// SetState overwrites a row's counter and halt flag. Used by reconciliation.
func (r *PostgresInventoryRepository) SetState(ctx context.Context, id int64, remaining int, halted bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE seat_inventory SET remaining_seats = $2, halted = $3 WHERE id = $1`,
		id, remaining, halted)
	if err != nil {
		if dberrors.IsCheckViolation(err) {
			return fmt.Errorf("%w: row %d remaining %d", apperrors.ErrInconsistentInventory, id, remaining)
		}
		return fmt.Errorf("error updating seat inventory: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("seat inventory row %d not found", id))
	}
	return nil
}

// Create inserts a row; remaining starts at the original capacity
func (r *PostgresInventoryRepository) Create(ctx context.Context, entry *models.InventoryEntry) error {
	query := `
		INSERT INTO seat_inventory (category, department, original_seats, remaining_seats)
		VALUES ($1, $2, $3, $3)
		RETURNING id, remaining_seats
	`
	err := r.db.QueryRow(ctx, query, string(entry.Category), entry.Department, entry.OriginalSeats).
		Scan(&entry.ID, &entry.RemainingSeats)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "seat_inventory_key") {
			return apperrors.NewCustomError(apperrors.ErrConflict,
				fmt.Sprintf("seat inventory for %s/%s already exists", entry.Category, entry.Department))
		}
		return fmt.Errorf("error creating seat inventory: %w", err)
	}
	return nil
}

// Count returns the number of inventory rows
func (r *PostgresInventoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM seat_inventory`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting seat inventory: %w", err)
	}
	return n, nil
}
