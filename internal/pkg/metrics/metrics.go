package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for SeatOutcomes
const (
	OutcomeAllocated  = "allocated"
	OutcomeUpgraded   = "upgraded"
	OutcomeUnchanged  = "unchanged"
	OutcomeUnseated   = "unseated"
	OutcomeLocked     = "locked"
	OutcomeUnresolved = "unresolved"
)

var (
	RoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_rounds_total",
			Help: "Total number of allocation rounds run, by result",
		},
		[]string{"result"},
	)

	CategoryRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "allocation_category_duration_seconds",
			Help:    "Duration of one category pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	CategoryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_category_failures_total",
			Help: "Category passes that could not run",
		},
		[]string{"category"},
	)

	SeatOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_applicant_outcomes_total",
			Help: "Per-applicant outcomes of category passes",
		},
		[]string{"category", "outcome"},
	)

	SkippedChoices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_skipped_choices_total",
			Help: "Preference choices skipped with a diagnostic",
		},
		[]string{"category", "reason"},
	)

	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_decisions_total",
			Help: "Seat decisions submitted by applicants, by decision and result",
		},
		[]string{"decision", "result"},
	)

	HaltedRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "allocation_inventory_halted_rows",
			Help: "Inventory rows halted by the last reconciliation",
		},
	)
)
