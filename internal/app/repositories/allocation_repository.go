package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/dberrors"
)

const allocationColumns = `id, application_number, category, department, round, preference_rank, status, created_at, updated_at`

// PostgresAllocationRepository handles the allocation_records table. The
// unique constraint on application_number keeps one record per applicant.
type PostgresAllocationRepository struct {
	db   DBTX
	inTx bool
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(db DBTX, inTx bool) *PostgresAllocationRepository {
	return &PostgresAllocationRepository{db: db, inTx: inTx}
}

func scanAllocation(row pgx.Row) (*models.AllocationRecord, error) {
	var rec models.AllocationRecord
	var category, status string
	if err := row.Scan(
		&rec.ID,
		&rec.ApplicationNumber,
		&category,
		&rec.Department,
		&rec.Round,
		&rec.PreferenceRank,
		&status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Category = models.Category(category)
	rec.Status = models.DecisionStatus(status)
	return &rec, nil
}

func (r *PostgresAllocationRepository) getCurrent(ctx context.Context, applicationNumber string, lock bool) (*models.AllocationRecord, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM allocation_records
		WHERE application_number = $1
	`
	if lock && r.inTx {
		query += ` FOR UPDATE`
	}

	rec, err := scanAllocation(r.db.QueryRow(ctx, query, applicationNumber))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrAllocationNotFound
		}
		if dberrors.IsLockTimeout(err) {
			return nil, fmt.Errorf("%w: allocation of %s is locked by another transaction", apperrors.ErrConflict, applicationNumber)
		}
		return nil, fmt.Errorf("error retrieving allocation: %w", err)
	}
	return rec, nil
}

// GetCurrent returns the applicant's current allocation
func (r *PostgresAllocationRepository) GetCurrent(ctx context.Context, applicationNumber string) (*models.AllocationRecord, error) {
	return r.getCurrent(ctx, applicationNumber, false)
}

// LockCurrent returns the applicant's current allocation with a row lock
func (r *PostgresAllocationRepository) LockCurrent(ctx context.Context, applicationNumber string) (*models.AllocationRecord, error) {
	return r.getCurrent(ctx, applicationNumber, true)
}

// Create inserts a new allocation record
func (r *PostgresAllocationRepository) Create(ctx context.Context, record *models.AllocationRecord) error {
	query := `
		INSERT INTO allocation_records (id, application_number, category, department, round, preference_rank, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.ApplicationNumber,
		string(record.Category),
		record.Department,
		record.Round,
		record.PreferenceRank,
		string(record.Status),
		record.CreatedAt,
	)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "allocation_records_applicant_key") {
			return apperrors.NewCustomError(apperrors.ErrConflict,
				fmt.Sprintf("applicant %s already holds an allocation", record.ApplicationNumber))
		}
		return fmt.Errorf("error creating allocation: %w", err)
	}
	record.UpdatedAt = record.CreatedAt
	return nil
}

// Delete removes an allocation record by ID
func (r *PostgresAllocationRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM allocation_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting allocation: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAllocationNotFound
	}
	return nil
}

// UpdateStatus sets the decision status of a record
func (r *PostgresAllocationRepository) UpdateStatus(ctx context.Context, id string, status models.DecisionStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE allocation_records SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("error updating allocation status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAllocationNotFound
	}
	return nil
}

// CountActive counts current allocations per (category, department)
func (r *PostgresAllocationRepository) CountActive(ctx context.Context) (map[models.InventoryKey]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, department, COUNT(*)
		FROM allocation_records
		GROUP BY category, department
	`)
	if err != nil {
		return nil, fmt.Errorf("error counting allocations: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.InventoryKey]int)
	for rows.Next() {
		var category, department string
		var n int
		if err := rows.Scan(&category, &department, &n); err != nil {
			return nil, fmt.Errorf("error scanning allocation count: %w", err)
		}
		counts[models.InventoryKey{Category: models.Category(category), Department: department}] = n
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// ListAll returns every current allocation
func (r *PostgresAllocationRepository) ListAll(ctx context.Context) ([]*models.AllocationRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+allocationColumns+`
		FROM allocation_records
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying allocations: %w", err)
	}
	defer rows.Close()

	var records []*models.AllocationRecord
	for rows.Next() {
		rec, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning allocation: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
