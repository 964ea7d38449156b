package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/pkg/apperrors"
)

type applicantRepo struct{ s *Store }

func (r *applicantRepo) ListByCategory(_ context.Context, category models.Category) ([]*models.Applicant, error) {
	var out []*models.Applicant
	err := r.s.with(func(st *state) error {
		for _, a := range st.applicants {
			if a.Category == category {
				out = append(out, cloneApplicant(a))
			}
		}
		return nil
	})
	sortApplicants(out)
	return out, err
}

func (r *applicantRepo) ListAll(_ context.Context) ([]*models.Applicant, error) {
	var out []*models.Applicant
	err := r.s.with(func(st *state) error {
		for _, a := range st.applicants {
			out = append(out, cloneApplicant(a))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionSeq < out[j].SubmissionSeq })
	return out, err
}

func (r *applicantRepo) GetByApplicationNumber(_ context.Context, applicationNumber string) (*models.Applicant, error) {
	var out *models.Applicant
	err := r.s.with(func(st *state) error {
		a, ok := st.applicants[applicationNumber]
		if !ok {
			return apperrors.ErrApplicantNotFound
		}
		out = cloneApplicant(a)
		return nil
	})
	return out, err
}

func (r *applicantRepo) GetByEmail(_ context.Context, email string) (*models.Applicant, error) {
	var out *models.Applicant
	err := r.s.with(func(st *state) error {
		for _, a := range st.applicants {
			if a.Email != "" && strings.EqualFold(a.Email, email) {
				out = cloneApplicant(a)
				return nil
			}
		}
		return apperrors.ErrApplicantNotFound
	})
	return out, err
}

func (r *applicantRepo) Create(_ context.Context, applicant *models.Applicant) error {
	return r.s.with(func(st *state) error {
		if _, exists := st.applicants[applicant.ApplicationNumber]; exists {
			return apperrors.ErrApplicantExists
		}
		st.nextSeq++
		applicant.SubmissionSeq = st.nextSeq
		if applicant.CreatedAt.IsZero() {
			applicant.CreatedAt = time.Now()
		}
		st.applicants[applicant.ApplicationNumber] = cloneApplicant(applicant)
		return nil
	})
}

func (r *applicantRepo) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.s.with(func(st *state) error {
		n = int64(len(st.applicants))
		return nil
	})
	return n, err
}

type inventoryRepo struct{ s *Store }

func (r *inventoryRepo) Snapshot(_ context.Context, category models.Category) ([]*models.InventoryEntry, error) {
	var out []*models.InventoryEntry
	err := r.s.with(func(st *state) error {
		for k, e := range st.inventory {
			if k.Category == category {
				c := *e
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out, err
}

func (r *inventoryRepo) ListAll(_ context.Context) ([]*models.InventoryEntry, error) {
	var out []*models.InventoryEntry
	err := r.s.with(func(st *state) error {
		for _, e := range st.inventory {
			c := *e
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Department < out[j].Department
	})
	return out, err
}

func (r *inventoryRepo) ListForUpdate(ctx context.Context) ([]*models.InventoryEntry, error) {
	return r.ListAll(ctx)
}

func (r *inventoryRepo) Reserve(_ context.Context, category models.Category, department string) error {
	return r.s.with(func(st *state) error {
		e, ok := st.inventory[models.InventoryKey{Category: category, Department: department}]
		switch {
		case !ok:
			return fmt.Errorf("%w: %s/%s", apperrors.ErrUnknownChoice, category, department)
		case e.Halted:
			return fmt.Errorf("%w: %s/%s is halted", apperrors.ErrInconsistentInventory, category, department)
		case e.RemainingSeats <= 0:
			return fmt.Errorf("%w: %s/%s", apperrors.ErrNoCapacity, category, department)
		}
		e.RemainingSeats--
		return nil
	})
}

func (r *inventoryRepo) Release(_ context.Context, category models.Category, department string) error {
	return r.s.with(func(st *state) error {
		e, ok := st.inventory[models.InventoryKey{Category: category, Department: department}]
		switch {
		case !ok:
			return fmt.Errorf("%w: %s/%s", apperrors.ErrUnknownChoice, category, department)
		case e.Halted:
			return fmt.Errorf("%w: %s/%s is halted", apperrors.ErrInconsistentInventory, category, department)
		case e.RemainingSeats >= e.OriginalSeats:
			return fmt.Errorf("%w: %s/%s", apperrors.ErrInconsistentInventory, category, department)
		}
		e.RemainingSeats++
		return nil
	})
}

func (r *inventoryRepo) SetState(_ context.Context, id int64, remaining int, halted bool) error {
	return r.s.with(func(st *state) error {
		for _, e := range st.inventory {
			if e.ID != id {
				continue
			}
			if remaining < 0 || remaining > e.OriginalSeats {
				return fmt.Errorf("%w: row %d remaining %d", apperrors.ErrInconsistentInventory, id, remaining)
			}
			e.RemainingSeats = remaining
			e.Halted = halted
			return nil
		}
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("seat inventory row %d not found", id))
	})
}

func (r *inventoryRepo) Create(_ context.Context, entry *models.InventoryEntry) error {
	return r.s.with(func(st *state) error {
		key := entry.Key()
		if _, exists := st.inventory[key]; exists {
			return apperrors.NewCustomError(apperrors.ErrConflict,
				fmt.Sprintf("seat inventory for %s/%s already exists", entry.Category, entry.Department))
		}
		st.nextInvID++
		entry.ID = st.nextInvID
		entry.RemainingSeats = entry.OriginalSeats
		c := *entry
		st.inventory[key] = &c
		return nil
	})
}

func (r *inventoryRepo) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.s.with(func(st *state) error {
		n = int64(len(st.inventory))
		return nil
	})
	return n, err
}

type allocationRepo struct{ s *Store }

func (r *allocationRepo) GetCurrent(_ context.Context, applicationNumber string) (*models.AllocationRecord, error) {
	var out *models.AllocationRecord
	err := r.s.with(func(st *state) error {
		rec, ok := st.records[applicationNumber]
		if !ok {
			return apperrors.ErrAllocationNotFound
		}
		c := *rec
		out = &c
		return nil
	})
	return out, err
}

func (r *allocationRepo) LockCurrent(ctx context.Context, applicationNumber string) (*models.AllocationRecord, error) {
	return r.GetCurrent(ctx, applicationNumber)
}

func (r *allocationRepo) Create(_ context.Context, record *models.AllocationRecord) error {
	return r.s.with(func(st *state) error {
		if _, exists := st.records[record.ApplicationNumber]; exists {
			return apperrors.NewCustomError(apperrors.ErrConflict,
				fmt.Sprintf("applicant %s already holds an allocation", record.ApplicationNumber))
		}
		record.UpdatedAt = record.CreatedAt
		c := *record
		st.records[record.ApplicationNumber] = &c
		return nil
	})
}

func (r *allocationRepo) Delete(_ context.Context, id string) error {
	return r.s.with(func(st *state) error {
		for appNo, rec := range st.records {
			if rec.ID == id {
				delete(st.records, appNo)
				return nil
			}
		}
		return apperrors.ErrAllocationNotFound
	})
}

func (r *allocationRepo) UpdateStatus(_ context.Context, id string, status models.DecisionStatus) error {
	return r.s.with(func(st *state) error {
		for _, rec := range st.records {
			if rec.ID == id {
				rec.Status = status
				rec.UpdatedAt = time.Now()
				return nil
			}
		}
		return apperrors.ErrAllocationNotFound
	})
}

func (r *allocationRepo) CountActive(_ context.Context) (map[models.InventoryKey]int, error) {
	counts := make(map[models.InventoryKey]int)
	err := r.s.with(func(st *state) error {
		for _, rec := range st.records {
			counts[models.InventoryKey{Category: rec.Category, Department: rec.Department}]++
		}
		return nil
	})
	return counts, err
}

func (r *allocationRepo) ListAll(_ context.Context) ([]*models.AllocationRecord, error) {
	var out []*models.AllocationRecord
	err := r.s.with(func(st *state) error {
		for _, rec := range st.records {
			c := *rec
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ApplicationNumber < out[j].ApplicationNumber
	})
	return out, err
}
