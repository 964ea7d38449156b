package models

// InventoryEntry is the remaining-capacity ledger for one (category, department) pair
type InventoryEntry struct {
	ID             int64    `json:"id" db:"id"`
	Category       Category `json:"category" db:"category" example:"SC"`
	Department     string   `json:"department" db:"department" example:"cse"`
	OriginalSeats  int      `json:"originalSeats" db:"original_seats" example:"10"`
	RemainingSeats int      `json:"remainingSeats" db:"remaining_seats" example:"3"`
	Halted         bool     `json:"halted" db:"halted"` // Set by reconciliation when conservation failed
}

// Occupied returns the number of seats currently held against this row.
func (e *InventoryEntry) Occupied() int {
	return e.OriginalSeats - e.RemainingSeats
}

// InventoryKey identifies an inventory row
type InventoryKey struct {
	Category   Category
	Department string
}

// Key returns the row's composite key
func (e *InventoryEntry) Key() InventoryKey {
	return InventoryKey{Category: e.Category, Department: e.Department}
}

// ReconcileResult describes the outcome of recomputing one inventory row
type ReconcileResult struct {
	Category          Category `json:"category"`
	Department        string   `json:"department"`
	OriginalSeats     int      `json:"originalSeats"`
	PreviousRemaining int      `json:"previousRemaining"`
	Remaining         int      `json:"remaining"`
	Active            int      `json:"active"`
	Halted            bool     `json:"halted"`
}

// Drifted reports whether the stored counter disagreed with the record count.
func (r ReconcileResult) Drifted() bool {
	return r.PreviousRemaining != r.Remaining
}
