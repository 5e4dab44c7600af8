package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReconciliationSettings is the shared, mutable configuration read by the
// engine. An in-flight run snapshots the settings once at start; mutations
// made while a run is processing only affect the next run.
//
// Tolerances are inclusive: a difference exactly equal to AmountTolerance or
// DateToleranceDays is treated as within tolerance.
type ReconciliationSettings struct {
	// AmountTolerance is the absolute amount difference tolerated before an
	// amount mismatch discrepancy is raised.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// DateToleranceDays is the number of whole days tolerated between
	// transaction and settlement dates.
	DateToleranceDays int `json:"date_tolerance_days"`

	// MinConfidence is the committed-match confidence floor for scoring strategies
	MinConfidence float64 `json:"min_confidence"`

	// MaterialAmountThreshold escalates missing-record discrepancies when the
	// record's amount reaches it.
	MaterialAmountThreshold decimal.Decimal `json:"material_amount_threshold"`

	// AutoResolve enables the resolution stage to clear in-tolerance discrepancies
	AutoResolve bool `json:"auto_resolve"`

	// RequireManualApproval forces resolutions into a pending-approval state
	RequireManualApproval bool `json:"require_manual_approval"`

	// WorkerBudget bounds the concurrent resolution workers within a run
	WorkerBudget int `json:"worker_budget"`
}

// DefaultSettings returns settings suitable for most reconciliation contexts
func DefaultSettings() ReconciliationSettings {
	return ReconciliationSettings{
		AmountTolerance:         decimal.NewFromFloat(0.01),
		DateToleranceDays:       3,
		MinConfidence:           0.7,
		MaterialAmountThreshold: decimal.NewFromInt(10000),
		AutoResolve:             true,
		RequireManualApproval:   false,
		WorkerBudget:            4,
	}
}

// Validate validates the settings
func (s ReconciliationSettings) Validate() error {
	if s.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative, got %s", s.AmountTolerance)
	}

	if s.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative, got %d", s.DateToleranceDays)
	}

	if s.MinConfidence < 0 || s.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %f", s.MinConfidence)
	}

	if s.MaterialAmountThreshold.IsNegative() {
		return fmt.Errorf("material amount threshold cannot be negative, got %s", s.MaterialAmountThreshold)
	}

	if s.WorkerBudget <= 0 {
		return fmt.Errorf("worker budget must be positive, got %d", s.WorkerBudget)
	}

	return nil
}

// Clone returns a copy of the settings. Decimal values are immutable so a
// shallow copy is a full snapshot.
func (s ReconciliationSettings) Clone() ReconciliationSettings {
	return s
}
