package models

import "time"

// DecisionStatus is the applicant's decision on a held seat
type DecisionStatus string

const (
	StatusPending DecisionStatus = "PENDING" // Set by the allocation engine
	StatusLock    DecisionStatus = "LOCK"    // Accepted and frozen
	StatusFloat   DecisionStatus = "FLOAT"   // Kept, still eligible for upgrades
)

// Valid reports whether the status is a known value
func (s DecisionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusLock, StatusFloat:
		return true
	}
	return false
}

// IsDecision reports whether the status is one an applicant may submit
func (s DecisionStatus) IsDecision() bool {
	return s == StatusLock || s == StatusFloat
}

// AllocationRecord is an applicant's current seat, based on the 'allocation_records' table.
// There is at most one record per application number.
type AllocationRecord struct {
	ID                string         `json:"id" db:"id"`
	ApplicationNumber string         `json:"applicationNumber" db:"application_number" example:"48213377"`
	Category          Category       `json:"category" db:"category" example:"GEN"`
	Department        string         `json:"department" db:"department" example:"cse"`
	Round             int            `json:"round" db:"round" example:"1"`
	PreferenceRank    int            `json:"preferenceRank" db:"preference_rank" example:"2"` // 1-based index into the choice list
	Status            DecisionStatus `json:"status" db:"status" example:"PENDING"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
}
