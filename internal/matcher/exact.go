package matcher

import (
	"fmt"

	"payment-reconciliation-engine/internal/models"
)

// ExactStrategy matches iff the amount is bit-exact equal, the currency is
// equal, and the settlement date falls on the same calendar day as the
// transaction date. Matches are binary, so the first qualifying external
// record wins and confidence is always 1.0.
type ExactStrategy struct{}

// NewExactStrategy creates the exact matching strategy
func NewExactStrategy() *ExactStrategy {
	return &ExactStrategy{}
}

// Name identifies the strategy
func (s *ExactStrategy) Name() string {
	return "exact"
}

// FindMatch returns the first external record that matches exactly
func (s *ExactStrategy) FindMatch(payment *models.PaymentRecord, candidates []*models.ExternalRecord) (*models.RecordMatch, bool) {
	if payment == nil {
		return nil, false
	}

	for _, external := range candidates {
		if s.matches(payment, external) {
			reason := fmt.Sprintf("exact amount %s %s on %s",
				payment.Amount.String(), payment.Currency,
				payment.TransactionDate.UTC().Format("2006-01-02"))
			return models.NewRecordMatch(payment, external, 1.0, reason, s.Name()), true
		}
	}

	return nil, false
}

// FindPotentialMatches returns every exactly-matching candidate, each with
// confidence 1.0.
func (s *ExactStrategy) FindPotentialMatches(payment *models.PaymentRecord, candidates []*models.ExternalRecord) []models.MatchCandidate {
	if payment == nil {
		return nil
	}

	var results []models.MatchCandidate
	for _, external := range candidates {
		if s.matches(payment, external) {
			results = append(results, models.NewMatchCandidate(external, 1.0, "exact match"))
		}
	}

	sortCandidates(results)
	return results
}

func (s *ExactStrategy) matches(payment *models.PaymentRecord, external *models.ExternalRecord) bool {
	if external == nil {
		return false
	}

	return payment.Amount.Equal(external.Amount) &&
		payment.Currency == external.Currency &&
		models.SameCalendarDay(payment.TransactionDate, external.SettlementDate)
}
