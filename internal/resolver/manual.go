package resolver

import (
	"payment-reconciliation-engine/internal/models"
)

// ManualReviewStrategy never auto-resolves. Every discrepancy is routed to a
// human: pending-approval when the settings require manual approval,
// otherwise manual review. Used for regulated contexts where no automated
// disposition is acceptable.
type ManualReviewStrategy struct{}

// NewManualReviewStrategy creates the manual-review resolution strategy
func NewManualReviewStrategy() *ManualReviewStrategy {
	return &ManualReviewStrategy{}
}

// Name identifies the strategy
func (s *ManualReviewStrategy) Name() string {
	return "manual-review"
}

// Resolve routes the discrepancy to a human reviewer
func (s *ManualReviewStrategy) Resolve(d *models.Discrepancy, settings models.ReconciliationSettings) models.DiscrepancyResolution {
	action := models.ActionManualReview
	notes := "queued for manual review"

	if settings.RequireManualApproval {
		action = models.ActionPendingApproval
		notes = "awaiting manual approval"
	}

	return models.DiscrepancyResolution{
		DiscrepancyID: d.ID,
		Action:        action,
		Resolved:      false,
		ResolvedBy:    s.Name(),
		Notes:         notes,
	}
}
