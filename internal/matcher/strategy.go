package matcher

import (
	"sort"

	"payment-reconciliation-engine/internal/models"
)

// MatchingStrategy is the pluggable matching algorithm contract. Given one
// internal payment and the remaining external candidates, FindMatch either
// commits a best match or reports that none qualifies; FindPotentialMatches
// returns the ranked candidate list for human review and for explaining why
// no match was committed.
type MatchingStrategy interface {
	// Name identifies the strategy in match reasons and summaries
	Name() string

	// FindMatch returns the best qualifying match for the payment, if any
	FindMatch(payment *models.PaymentRecord, candidates []*models.ExternalRecord) (*models.RecordMatch, bool)

	// FindPotentialMatches returns all qualifying candidates sorted by
	// descending confidence
	FindPotentialMatches(payment *models.PaymentRecord, candidates []*models.ExternalRecord) []models.MatchCandidate
}

// sortCandidates orders candidates by descending confidence, breaking ties by
// reference id so ranking is deterministic.
func sortCandidates(candidates []models.MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].External.ReferenceID < candidates[j].External.ReferenceID
	})
}
