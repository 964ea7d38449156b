// Package memstore is an in-memory repositories.Store. Transactions run
// against a cloned state that replaces the committed state only when the
// unit of work succeeds, so a failed step leaves nothing behind.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
)

type state struct {
	applicants map[string]*models.Applicant
	inventory  map[models.InventoryKey]*models.InventoryEntry
	records    map[string]*models.AllocationRecord // keyed by application number
	nextSeq    int64
	nextInvID  int64
}

func newState() *state {
	return &state{
		applicants: make(map[string]*models.Applicant),
		inventory:  make(map[models.InventoryKey]*models.InventoryEntry),
		records:    make(map[string]*models.AllocationRecord),
	}
}

func (st *state) clone() *state {
	c := newState()
	c.nextSeq = st.nextSeq
	c.nextInvID = st.nextInvID
	for k, v := range st.applicants {
		c.applicants[k] = cloneApplicant(v)
	}
	for k, v := range st.inventory {
		e := *v
		c.inventory[k] = &e
	}
	for k, v := range st.records {
		r := *v
		c.records[k] = &r
	}
	return c
}

func cloneApplicant(a *models.Applicant) *models.Applicant {
	c := *a
	c.Choices = append([]string(nil), a.Choices...)
	if a.CategoryRank != nil {
		rank := *a.CategoryRank
		c.CategoryRank = &rank
	}
	return &c
}

type shared struct {
	mu sync.Mutex
	st *state
}

// Store is the in-memory Store
type Store struct {
	sh *shared
	tx *state // non-nil inside WithinTransaction
}

var _ repositories.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{sh: &shared{st: newState()}}
}

// Load returns a store holding copies of the given rows. Sequence numbers,
// IDs and counters are kept as they are, so a store loaded from a database
// snapshot behaves like the database did at snapshot time.
func Load(applicants []*models.Applicant, inventory []*models.InventoryEntry, records []*models.AllocationRecord) *Store {
	st := newState()
	for _, a := range applicants {
		st.applicants[a.ApplicationNumber] = cloneApplicant(a)
		if a.SubmissionSeq > st.nextSeq {
			st.nextSeq = a.SubmissionSeq
		}
	}
	for _, e := range inventory {
		c := *e
		st.inventory[c.Key()] = &c
		if c.ID > st.nextInvID {
			st.nextInvID = c.ID
		}
	}
	for _, r := range records {
		c := *r
		st.records[c.ApplicationNumber] = &c
	}
	return &Store{sh: &shared{st: st}}
}

// with runs fn against the transaction state, or under the store lock
// against the committed state.
func (s *Store) with(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()
	return fn(s.sh.st)
}

// Applicants returns the applicant repository
func (s *Store) Applicants() repositories.ApplicantRepository {
	return &applicantRepo{s: s}
}

// Inventory returns the inventory repository
func (s *Store) Inventory() repositories.InventoryRepository {
	return &inventoryRepo{s: s}
}

// Allocations returns the allocation repository
func (s *Store) Allocations() repositories.AllocationRepository {
	return &allocationRepo{s: s}
}

// WithinTransaction runs fn against a private copy of the state and commits
// the copy only if fn succeeds. Transactions are serialized.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	work := s.sh.st.clone()
	if err := fn(ctx, &Store{sh: s.sh, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sh.st = work
	return nil
}

func sortApplicants(list []*models.Applicant) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Ranked() != b.Ranked() {
			return a.Ranked()
		}
		if a.Ranked() && *a.CategoryRank != *b.CategoryRank {
			return *a.CategoryRank < *b.CategoryRank
		}
		return a.SubmissionSeq < b.SubmissionSeq
	})
}
