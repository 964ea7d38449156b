package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/db"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ApplicantRepository is the read side of the applicant directory plus bulk import
type ApplicantRepository interface {
	// ListByCategory returns applicants ordered by merit rank, unranked last,
	// ties kept in submission order.
	ListByCategory(ctx context.Context, category models.Category) ([]*models.Applicant, error)
	ListAll(ctx context.Context) ([]*models.Applicant, error)
	GetByApplicationNumber(ctx context.Context, applicationNumber string) (*models.Applicant, error)
	GetByEmail(ctx context.Context, email string) (*models.Applicant, error)
	Create(ctx context.Context, applicant *models.Applicant) error
	Count(ctx context.Context) (int64, error)
}

// InventoryRepository owns the remaining-seat counters
type InventoryRepository interface {
	// Snapshot returns every row of a category, including full and halted rows.
	Snapshot(ctx context.Context, category models.Category) ([]*models.InventoryEntry, error)
	ListAll(ctx context.Context) ([]*models.InventoryEntry, error)
	// ListForUpdate returns every row and, inside a transaction, locks them.
	ListForUpdate(ctx context.Context) ([]*models.InventoryEntry, error)
	// Reserve decrements remaining if it is positive. It fails with
	// ErrNoCapacity, ErrUnknownChoice or ErrInconsistentInventory (halted row).
	Reserve(ctx context.Context, category models.Category, department string) error
	// Release increments remaining without exceeding the original capacity.
	Release(ctx context.Context, category models.Category, department string) error
	SetState(ctx context.Context, id int64, remaining int, halted bool) error
	Create(ctx context.Context, entry *models.InventoryEntry) error
	Count(ctx context.Context) (int64, error)
}

// AllocationRepository stores the single current allocation per applicant
type AllocationRepository interface {
	GetCurrent(ctx context.Context, applicationNumber string) (*models.AllocationRecord, error)
	// LockCurrent is GetCurrent that, inside a transaction, holds the row until commit.
	LockCurrent(ctx context.Context, applicationNumber string) (*models.AllocationRecord, error)
	Create(ctx context.Context, record *models.AllocationRecord) error
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.DecisionStatus) error
	CountActive(ctx context.Context) (map[models.InventoryKey]int, error)
	ListAll(ctx context.Context) ([]*models.AllocationRecord, error)
}

// Store groups the repositories and runs a unit of work atomically. The
// Store passed to fn is bound to the transaction; everything done through it
// commits or rolls back together.
type Store interface {
	Applicants() ApplicantRepository
	Inventory() InventoryRepository
	Allocations() AllocationRepository
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// TxRunner runs a unit of work in a database transaction. *db.PostgresDB
// satisfies it.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn db.TransactionFn) error
}

// PostgresStore is the Store backed by PostgreSQL
type PostgresStore struct {
	runner TxRunner
	conn   DBTX
	inTx   bool
}

// NewPostgresStore initializes the store over the connection pool
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{
		runner: database,
		conn:   database.Pool,
	}
}

// Applicants returns the applicant repository bound to this store's connection
func (s *PostgresStore) Applicants() ApplicantRepository {
	return NewApplicantRepository(s.conn)
}

// Inventory returns the inventory repository bound to this store's connection
func (s *PostgresStore) Inventory() InventoryRepository {
	return NewInventoryRepository(s.conn, s.inTx)
}

// Allocations returns the allocation repository bound to this store's connection
func (s *PostgresStore) Allocations() AllocationRepository {
	return NewAllocationRepository(s.conn, s.inTx)
}

// WithinTransaction runs fn in a database transaction. Nested calls join the
// outer transaction.
func (s *PostgresStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.runner.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &PostgresStore{runner: s.runner, conn: tx, inTx: true})
	})
}
