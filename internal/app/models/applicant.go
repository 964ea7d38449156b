package models

import "time"

// Applicant defines an admission application based on the 'applicants' table.
// The allocation engine only reads applicants.
type Applicant struct {
	ApplicationNumber string    `json:"applicationNumber" db:"application_number" example:"48213377"` // Unique application number
	Name              string    `json:"name" db:"name" example:"Asha Verma"`                           // Applicant's full name
	Email             string    `json:"email" db:"email" example:"asha@example.com"`                   // Login email
	Category          Category  `json:"category" db:"category" example:"GEN"`                          // Reservation category
	CategoryRank      *int      `json:"categoryRank,omitempty" db:"category_rank" example:"12"`        // Merit rank within category, lower is better
	Choices           []string  `json:"choices" db:"choices"`                                          // Department choices in submitted order
	SubmissionSeq     int64     `json:"-" db:"submission_seq"`                                         // Insertion order, breaks rank ties
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// Ranked reports whether the applicant has a merit rank.
func (a *Applicant) Ranked() bool {
	return a.CategoryRank != nil
}
