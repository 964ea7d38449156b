// Package seed imports the seat matrix and the applications from CSV exports.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories"
	"github.com/yigit/seatallot/internal/pkg/validation"
)

const (
	SeatMatrixFile   = "seatMatrix.csv"
	ApplicationsFile = "studentApplications.csv"
)

// ErrInvalidRow is wrapped by every row-level parse failure
var ErrInvalidRow = errors.New("invalid csv row")

// header maps column names to their index
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	h := make(header, len(names))
	for i, name := range names {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", name)
		}
	}
	return h, nil
}

// get returns the trimmed value of a column, or "" when the row is short
func (h header) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ParseSeatMatrix reads departmentId,category,totalSeats rows into inventory
// entries. Blank or unparsable seat counts become zero.
func ParseSeatMatrix(r io.Reader) ([]*models.InventoryEntry, error) {
	cr := newReader(r)
	h, err := readHeader(cr, "departmentId", "category", "totalSeats")
	if err != nil {
		return nil, err
	}

	var entries []*models.InventoryEntry
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		department := models.NormalizeDepartment(h.get(record, "departmentId"))
		category := models.NormalizeCategory(h.get(record, "category"))
		seats, _ := strconv.Atoi(h.get(record, "totalSeats"))

		if !validation.NewStringValidation(department).WithPattern(validation.CompiledPatterns.Department).Validate() {
			return nil, fmt.Errorf("line %d: %w: bad department %q", line, ErrInvalidRow, department)
		}
		if !validation.NewStringValidation(string(category)).WithPattern(validation.CompiledPatterns.Category).Validate() {
			return nil, fmt.Errorf("line %d: %w: bad category %q", line, ErrInvalidRow, category)
		}
		if !validation.NewNumericValidation(seats).WithMin(0).Validate() {
			return nil, fmt.Errorf("line %d: %w: negative seat count", line, ErrInvalidRow)
		}

		entries = append(entries, &models.InventoryEntry{
			Category:      category,
			Department:    department,
			OriginalSeats: seats,
		})
	}
	return entries, nil
}

// ParseApplications reads the application export. Up to maxChoices
// courseChoiceN columns are read; blank choices are dropped.
func ParseApplications(r io.Reader, maxChoices int) ([]*models.Applicant, error) {
	if maxChoices <= 0 {
		maxChoices = models.DefaultMaxChoices
	}

	cr := newReader(r)
	h, err := readHeader(cr, "applicationNumber", "studentName", "category")
	if err != nil {
		return nil, err
	}

	var applicants []*models.Applicant
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		a := &models.Applicant{
			ApplicationNumber: h.get(record, "applicationNumber"),
			Name:              h.get(record, "studentName"),
			Email:             h.get(record, "email"),
			Category:          models.NormalizeCategory(h.get(record, "category")),
		}

		if !validation.IsApplicationNumber(a.ApplicationNumber) {
			return nil, fmt.Errorf("line %d: %w: bad application number %q", line, ErrInvalidRow, a.ApplicationNumber)
		}
		if !validation.NewStringValidation(a.Name).
			WithMinLength(validation.NameMinLength).
			WithMaxLength(validation.NameMaxLength).
			Validate() {
			return nil, fmt.Errorf("line %d: %w: bad name for %s", line, ErrInvalidRow, a.ApplicationNumber)
		}
		if a.Email != "" && !validation.IsEmail(a.Email) {
			return nil, fmt.Errorf("line %d: %w: bad email for %s", line, ErrInvalidRow, a.ApplicationNumber)
		}
		if !validation.CompiledPatterns.Category.MatchString(string(a.Category)) {
			return nil, fmt.Errorf("line %d: %w: bad category %q", line, ErrInvalidRow, a.Category)
		}

		if raw := h.get(record, "categoryRank"); raw != "" {
			rank, err := strconv.Atoi(raw)
			if err != nil || !validation.NewNumericValidation(rank).WithMin(1).Validate() {
				return nil, fmt.Errorf("line %d: %w: bad category rank %q", line, ErrInvalidRow, raw)
			}
			a.CategoryRank = &rank
		}

		for i := 1; i <= maxChoices; i++ {
			if choice := h.get(record, fmt.Sprintf("courseChoice%d", i)); choice != "" {
				a.Choices = append(a.Choices, choice)
			}
		}

		applicants = append(applicants, a)
	}
	return applicants, nil
}

// Import loads the seat matrix and the applications into empty tables. Each
// table is only seeded when it has no rows; both imports share one transaction.
func Import(ctx context.Context, store repositories.Store, dir string, maxChoices int, lgr zerolog.Logger) error {
	return store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Store) error {
		invCount, err := tx.Inventory().Count(ctx)
		if err != nil {
			return err
		}
		if invCount == 0 {
			entries, err := parseFile(filepath.Join(dir, SeatMatrixFile), ParseSeatMatrix)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := tx.Inventory().Create(ctx, e); err != nil {
					return fmt.Errorf("seat matrix %s/%s: %w", e.Category, e.Department, err)
				}
			}
			lgr.Info().Int("rows", len(entries)).Msg("Seat matrix imported")
		} else {
			lgr.Info().Int64("rows", invCount).Msg("Seat inventory already present, skipping seat matrix import")
		}

		appCount, err := tx.Applicants().Count(ctx)
		if err != nil {
			return err
		}
		if appCount == 0 {
			applicants, err := parseFile(filepath.Join(dir, ApplicationsFile), func(r io.Reader) ([]*models.Applicant, error) {
				return ParseApplications(r, maxChoices)
			})
			if err != nil {
				return err
			}
			for _, a := range applicants {
				if err := tx.Applicants().Create(ctx, a); err != nil {
					return fmt.Errorf("application %s: %w", a.ApplicationNumber, err)
				}
			}
			lgr.Info().Int("rows", len(applicants)).Msg("Applications imported")
		} else {
			lgr.Info().Int64("rows", appCount).Msg("Applicants already present, skipping application import")
		}

		return nil
	})
}

func parseFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
