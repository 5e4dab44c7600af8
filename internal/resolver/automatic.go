package resolver

import (
	"fmt"

	"payment-reconciliation-engine/internal/models"
)

// AutomaticStrategy resolves discrepancies whose magnitude is within the
// configured tolerances as ignored-within-tolerance, clears remaining
// low-severity findings, and escalates material mismatches to manual review.
type AutomaticStrategy struct{}

// NewAutomaticStrategy creates the automatic resolution strategy
func NewAutomaticStrategy() *AutomaticStrategy {
	return &AutomaticStrategy{}
}

// Name identifies the strategy
func (s *AutomaticStrategy) Name() string {
	return "automatic"
}

// Resolve applies the automatic policy to one discrepancy
func (s *AutomaticStrategy) Resolve(d *models.Discrepancy, settings models.ReconciliationSettings) models.DiscrepancyResolution {
	resolution := models.DiscrepancyResolution{
		DiscrepancyID: d.ID,
		ResolvedBy:    s.Name(),
	}

	// Tolerance is inclusive: a difference exactly equal to the tolerance is ignorable
	if s.withinTolerance(d, settings) {
		resolution.Action = models.ActionIgnoredWithinTolerance
		resolution.Resolved = true
		resolution.Notes = fmt.Sprintf("%s within configured tolerance", d.Type)
		return resolution
	}

	switch d.Severity {
	case models.SeverityCritical:
		resolution.Action = models.ActionEscalated
		resolution.Notes = "critical discrepancy escalated for investigation"
	case models.SeverityHigh, models.SeverityMedium:
		resolution.Action = models.ActionManualReview
		resolution.Notes = "material discrepancy requires manual review"
	default:
		if settings.AutoResolve {
			resolution.Action = models.ActionAutoResolved
			resolution.Resolved = true
			resolution.Notes = "low severity discrepancy auto-resolved"
		} else {
			resolution.Action = models.ActionManualReview
			resolution.Notes = "auto-resolve disabled"
		}
	}

	return resolution
}

func (s *AutomaticStrategy) withinTolerance(d *models.Discrepancy, settings models.ReconciliationSettings) bool {
	switch d.Type {
	case models.DiscrepancyAmountMismatch:
		return d.AmountDifference.Abs().LessThanOrEqual(settings.AmountTolerance)
	case models.DiscrepancyDateMismatch:
		days := int(d.DateDifference.Hours() / 24)
		return days <= settings.DateToleranceDays
	default:
		return false
	}
}
