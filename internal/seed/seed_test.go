package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/seatallot/internal/app/models"
	"github.com/yigit/seatallot/internal/app/repositories/memstore"
)

const seatMatrixCSV = `departmentId,category,totalSeats
CSE ,gen, 2
ece,OBC,1
me,GEN,
`

const applicationsCSV = `applicationNumber,studentName,email,category,categoryRank,courseChoice1,courseChoice2,courseChoice3
APP1001,Asha Verma,asha@example.com,gen,3,CSE,,ECE
APP1002, Rohan Das ,,OBC,,ece,cse,
`

func TestParseSeatMatrix(t *testing.T) {
	entries, err := ParseSeatMatrix(strings.NewReader(seatMatrixCSV))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, &models.InventoryEntry{Category: models.CategoryGEN, Department: "cse", OriginalSeats: 2}, entries[0])
	assert.Equal(t, models.CategoryOBC, entries[1].Category)
	assert.Equal(t, 0, entries[2].OriginalSeats, "blank seat count reads as zero")
}

func TestParseSeatMatrix_ByteOrderMark(t *testing.T) {
	entries, err := ParseSeatMatrix(strings.NewReader("\uFEFFdepartmentId,category,totalSeats\ncse,GEN,3\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cse", entries[0].Department)
	assert.Equal(t, 3, entries[0].OriginalSeats)
}

func TestParseSeatMatrix_Errors(t *testing.T) {
	tests := map[string]string{
		"missing column":   "departmentId,category\ncse,GEN\n",
		"negative seats":   "departmentId,category,totalSeats\ncse,GEN,-1\n",
		"bad category":     "departmentId,category,totalSeats\ncse,G3N,1\n",
		"blank department": "departmentId,category,totalSeats\n,GEN,1\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSeatMatrix(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestParseApplications(t *testing.T) {
	applicants, err := ParseApplications(strings.NewReader(applicationsCSV), 7)
	require.NoError(t, err)
	require.Len(t, applicants, 2)

	a := applicants[0]
	assert.Equal(t, "APP1001", a.ApplicationNumber)
	assert.Equal(t, models.CategoryGEN, a.Category)
	require.NotNil(t, a.CategoryRank)
	assert.Equal(t, 3, *a.CategoryRank)
	assert.Equal(t, []string{"CSE", "ECE"}, a.Choices)

	b := applicants[1]
	assert.Equal(t, "Rohan Das", b.Name)
	assert.Empty(t, b.Email)
	assert.Nil(t, b.CategoryRank)
	assert.Equal(t, []string{"ece", "cse"}, b.Choices)
}

func TestParseApplications_Errors(t *testing.T) {
	header := "applicationNumber,studentName,email,category,categoryRank,courseChoice1\n"
	tests := map[string]string{
		"bad rank":               header + "APP1001,Asha Verma,,GEN,zero,cse\n",
		"rank below one":         header + "APP1001,Asha Verma,,GEN,0,cse\n",
		"bad email":              header + "APP1001,Asha Verma,asha@,GEN,1,cse\n",
		"bad application number": header + "A!,Asha Verma,,GEN,1,cse\n",
		"missing name":           header + "APP1001,,,GEN,1,cse\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseApplications(strings.NewReader(input), 7)
			assert.ErrorIs(t, err, ErrInvalidRow)
		})
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeatMatrixFile), []byte(seatMatrixCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ApplicationsFile), []byte(applicationsCSV), 0o600))

	store := memstore.New()
	ctx := context.Background()

	require.NoError(t, Import(ctx, store, dir, 7, zerolog.Nop()))

	rows, err := store.Inventory().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, r.OriginalSeats, r.RemainingSeats)
	}

	n, err := store.Applicants().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Second import is a no-op
	require.NoError(t, Import(ctx, store, dir, 7, zerolog.Nop()))
	n, err = store.Applicants().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestImport_RollsBackOnBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SeatMatrixFile), []byte(seatMatrixCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ApplicationsFile), []byte("applicationNumber\n"), 0o600))

	store := memstore.New()
	ctx := context.Background()

	assert.Error(t, Import(ctx, store, dir, 7, zerolog.Nop()))

	n, err := store.Inventory().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
