package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
	"github.com/yigit/seatallot/internal/pkg/dberrors"
)

var applicantColumns = []string{
	"application_number", "submission_seq", "name", "COALESCE(email, '')",
	"category", "category_rank", "choices", "created_at",
}

// PostgresApplicantRepository handles database operations for applicants
type PostgresApplicantRepository struct {
	db DBTX
	// Use squirrel instance with placeholder format
	sb squirrel.StatementBuilderType
}

// NewApplicantRepository creates a new applicant repository
func NewApplicantRepository(db DBTX) *PostgresApplicantRepository {
	return &PostgresApplicantRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PostgresApplicantRepository) selectApplicants() squirrel.SelectBuilder {
	return r.sb.Select(applicantColumns...).From("applicants")
}

func scanApplicant(row pgx.Row) (*models.Applicant, error) {
	var a models.Applicant
	var category string
	if err := row.Scan(
		&a.ApplicationNumber,
		&a.SubmissionSeq,
		&a.Name,
		&a.Email,
		&category,
		&a.CategoryRank,
		&a.Choices,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Category = models.Category(category)
	return &a, nil
}

func (r *PostgresApplicantRepository) list(ctx context.Context, builder squirrel.SelectBuilder) ([]*models.Applicant, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build applicant query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying applicants: %w", err)
	}
	defer rows.Close()

	var applicants []*models.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning applicant: %w", err)
		}
		applicants = append(applicants, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return applicants, nil
}

// ListByCategory retrieves the applicants of a category in merit order
func (r *PostgresApplicantRepository) ListByCategory(ctx context.Context, category models.Category) ([]*models.Applicant, error) {
	return r.list(ctx, r.selectApplicants().
		Where(squirrel.Eq{"category": string(category)}).
		OrderBy("category_rank ASC NULLS LAST", "submission_seq ASC"))
}

// ListAll retrieves every applicant in submission order
func (r *PostgresApplicantRepository) ListAll(ctx context.Context) ([]*models.Applicant, error) {
	return r.list(ctx, r.selectApplicants().OrderBy("submission_seq ASC"))
}

func (r *PostgresApplicantRepository) getOne(ctx context.Context, builder squirrel.SelectBuilder) (*models.Applicant, error) {
	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build applicant query: %w", err)
	}

	a, err := scanApplicant(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrApplicantNotFound
		}
		return nil, fmt.Errorf("error retrieving applicant: %w", err)
	}
	return a, nil
}

// GetByApplicationNumber retrieves an applicant by application number
func (r *PostgresApplicantRepository) GetByApplicationNumber(ctx context.Context, applicationNumber string) (*models.Applicant, error) {
	return r.getOne(ctx, r.selectApplicants().Where(squirrel.Eq{"application_number": applicationNumber}))
}

// GetByEmail retrieves an applicant by login email
func (r *PostgresApplicantRepository) GetByEmail(ctx context.Context, email string) (*models.Applicant, error) {
	return r.getOne(ctx, r.selectApplicants().Where(squirrel.Expr("lower(email) = ?", strings.ToLower(email))))
}

// Create inserts an applicant and assigns its submission sequence
func (r *PostgresApplicantRepository) Create(ctx context.Context, applicant *models.Applicant) error {
	query := `
		INSERT INTO applicants (application_number, name, email, category, category_rank, choices)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING submission_seq, created_at
	`

	choices := applicant.Choices
	if choices == nil {
		choices = []string{}
	}

	err := r.db.QueryRow(ctx, query,
		applicant.ApplicationNumber,
		applicant.Name,
		applicant.Email,
		string(applicant.Category),
		applicant.CategoryRank,
		choices,
	).Scan(&applicant.SubmissionSeq, &applicant.CreatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "") {
			return apperrors.ErrApplicantExists
		}
		return fmt.Errorf("error creating applicant: %w", err)
	}

	return nil
}

// Count returns the number of applicants
func (r *PostgresApplicantRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM applicants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting applicants: %w", err)
	}
	return n, nil
}
