package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchingResult is the outcome of the matching stage of one run
type MatchingResult struct {
	Strategy           string            `json:"strategy"`
	Matches            []*RecordMatch    `json:"matches"`
	UnmatchedPayments  []*PaymentRecord  `json:"unmatched_payments"`
	UnmatchedExternals []*ExternalRecord `json:"unmatched_externals"`
	TotalAmountMatched decimal.Decimal   `json:"total_amount_matched"`
}

// MatchCount returns the number of committed matches
func (r *MatchingResult) MatchCount() int {
	return len(r.Matches)
}

// DiscrepancyResult is the outcome of the analysis stage of one run
type DiscrepancyResult struct {
	Discrepancies    []*Discrepancy          `json:"discrepancies"`
	CountsByType     map[DiscrepancyType]int `json:"counts_by_type"`
	CountsBySeverity map[Severity]int        `json:"counts_by_severity"`
}

// DiscrepancyCount returns the total number of discrepancies
func (r *DiscrepancyResult) DiscrepancyCount() int {
	return len(r.Discrepancies)
}

// HighestSeverity returns the most severe grade present, or low when empty
func (r *DiscrepancyResult) HighestSeverity() Severity {
	highest := SeverityLow
	for _, d := range r.Discrepancies {
		highest = MaxSeverity(highest, d.Severity)
	}
	return highest
}

// ResolutionResult is the outcome of the resolution stage of one run
type ResolutionResult struct {
	Strategy       string                           `json:"strategy"`
	Resolutions    []DiscrepancyResolution          `json:"resolutions"`
	CountsByAction map[ResolutionAction]int         `json:"counts_by_action"`
	ResolvedCount  int                              `json:"resolved_count"`
	PendingCount   int                              `json:"pending_count"`
	ByDiscrepancy  map[string]DiscrepancyResolution `json:"-"`
}

// ReconciliationSummary is the immutable per-run snapshot produced once per
// completed run.
type ReconciliationSummary struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	Duration       time.Duration `json:"duration"`
	TotalPayments  int           `json:"total_payments"`
	TotalExternals int           `json:"total_externals"`
	MatchRate      float64       `json:"match_rate"`
	ResolutionRate float64       `json:"resolution_rate"`

	Matching    *MatchingResult    `json:"matching"`
	Discrepancy *DiscrepancyResult `json:"discrepancy,omitempty"`
	Resolution  *ResolutionResult  `json:"resolution,omitempty"`
}

// String returns a one-line overview of the summary
func (s *ReconciliationSummary) String() string {
	matched := 0
	if s.Matching != nil {
		matched = s.Matching.MatchCount()
	}
	discrepancies := 0
	if s.Discrepancy != nil {
		discrepancies = s.Discrepancy.DiscrepancyCount()
	}
	return fmt.Sprintf("ReconciliationSummary{run: %s, payments: %d, externals: %d, matched: %d, discrepancies: %d, match rate: %.1f%%}",
		s.RunID, s.TotalPayments, s.TotalExternals, matched, discrepancies, s.MatchRate*100)
}

// ComputeMatchRate returns matched payments over total payments in [0,1]
func ComputeMatchRate(matched, totalPayments int) float64 {
	if totalPayments == 0 {
		return 1.0
	}
	return float64(matched) / float64(totalPayments)
}

// ComputeResolutionRate returns resolved discrepancies over total discrepancies in [0,1]
func ComputeResolutionRate(resolved, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(resolved) / float64(total)
}
