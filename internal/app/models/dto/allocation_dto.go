package dto

import "time"

// AllocateRoundRequest triggers (or previews) an allocation round
type AllocateRoundRequest struct {
	RoundNumber int `json:"roundNumber" binding:"required,min=1" example:"1"`
}

// DecisionRequest carries the applicant's decision on their seat
type DecisionRequest struct {
	Status string `json:"status" binding:"required,oneof=LOCK FLOAT lock float" example:"LOCK"`
}

// SeatAllotmentResponse is the applicant's current seat
type SeatAllotmentResponse struct {
	ApplicationNumber string    `json:"applicationNumber" example:"48213377"`
	CandidateName     string    `json:"candidateName" example:"Asha Verma"`
	Category          string    `json:"category" example:"GEN"`
	Round             int       `json:"round" example:"2"`
	Department        string    `json:"department" example:"cse"`
	Preference        int       `json:"preference" example:"1"`
	Status            string    `json:"status" example:"PENDING"`
	AllocatedAt       time.Time `json:"allocatedAt"`
}

// DecisionResponse echoes the stored decision
type DecisionResponse struct {
	ApplicationNumber string `json:"applicationNumber" example:"48213377"`
	Department        string `json:"department" example:"cse"`
	Status            string `json:"status" example:"LOCK"`
}

// InventoryStatusResponse lists the seat counters
type InventoryStatusResponse struct {
	SeatsRemaining bool        `json:"seatsRemaining"`
	Rows           interface{} `json:"rows"`
}
