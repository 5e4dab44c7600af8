package matcher

import (
	"fmt"
	"strings"

	"payment-reconciliation-engine/internal/models"
)

// FuzzyStrategy computes a weighted confidence score across four dimensions:
// amount closeness, currency equality, date proximity within a fixed window,
// and reference-text similarity between the external description and the
// payment's transaction/order identifiers. A match is committed only when the
// confidence reaches the configured minimum; among qualifying candidates the
// highest confidence wins.
type FuzzyStrategy struct {
	config *Config
}

// NewFuzzyStrategy creates a fuzzy strategy, falling back to DefaultConfig
// when config is nil.
func NewFuzzyStrategy(config *Config) *FuzzyStrategy {
	if config == nil {
		config = DefaultConfig()
	}
	return &FuzzyStrategy{config: config}
}

// Name identifies the strategy
func (s *FuzzyStrategy) Name() string {
	return "fuzzy"
}

// Config returns a copy of the strategy configuration
func (s *FuzzyStrategy) Config() *Config {
	return s.config.Clone()
}

// FindMatch returns the highest-confidence candidate at or above the
// configured threshold.
func (s *FuzzyStrategy) FindMatch(payment *models.PaymentRecord, candidates []*models.ExternalRecord) (*models.RecordMatch, bool) {
	ranked := s.FindPotentialMatches(payment, candidates)
	if len(ranked) == 0 {
		return nil, false
	}

	best := ranked[0]
	return models.NewRecordMatch(payment, best.External, best.Confidence, best.Reason, s.Name()), true
}

// FindPotentialMatches returns all candidates at or above the threshold,
// sorted by descending confidence.
func (s *FuzzyStrategy) FindPotentialMatches(payment *models.PaymentRecord, candidates []*models.ExternalRecord) []models.MatchCandidate {
	if payment == nil {
		return nil
	}

	var results []models.MatchCandidate
	for _, external := range candidates {
		if external == nil {
			continue
		}

		confidence, reason := s.score(payment, external)
		if confidence >= s.config.MinConfidence {
			results = append(results, models.NewMatchCandidate(external, confidence, reason))
		}
	}

	sortCandidates(results)
	return results
}

// score computes the weighted confidence and a human-readable reason. A
// zero amount on exactly one side disqualifies the pair outright, whatever
// the configured minimum confidence.
func (s *FuzzyStrategy) score(payment *models.PaymentRecord, external *models.ExternalRecord) (float64, string) {
	if payment.Amount.IsZero() != external.Amount.IsZero() {
		return 0, "zero amount cannot match a nonzero amount"
	}

	weights := s.config.Weights

	amountScore := AmountCloseness(payment.Amount, external.Amount)

	currencyScore := 0.0
	if payment.Currency != "" && payment.Currency == external.Currency {
		currencyScore = 1.0
	}

	dateScore := DateProximity(payment.TransactionDate, external.SettlementDate, s.config.DateWindowDays)

	referenceScore := ReferenceSimilarity(external.Description, payment.TransactionID, payment.OrderID)

	confidence := amountScore*weights.Amount +
		currencyScore*weights.Currency +
		dateScore*weights.Date +
		referenceScore*weights.Reference

	return confidence, s.describe(amountScore, currencyScore, dateScore, referenceScore)
}

func (s *FuzzyStrategy) describe(amountScore, currencyScore, dateScore, referenceScore float64) string {
	var reasons []string

	if amountScore == 1.0 {
		reasons = append(reasons, "exact amount")
	} else if amountScore > 0.9 {
		reasons = append(reasons, "close amount")
	} else if amountScore > 0 {
		reasons = append(reasons, fmt.Sprintf("amount similarity %.2f", amountScore))
	} else {
		reasons = append(reasons, "amount differs")
	}

	if currencyScore == 1.0 {
		reasons = append(reasons, "same currency")
	} else {
		reasons = append(reasons, "currency differs")
	}

	if dateScore == 1.0 {
		reasons = append(reasons, "same date")
	} else if dateScore > 0 {
		reasons = append(reasons, fmt.Sprintf("date proximity %.2f", dateScore))
	} else {
		reasons = append(reasons, "date outside window")
	}

	if referenceScore == 1.0 {
		reasons = append(reasons, "description references identifier")
	} else if referenceScore > 0 {
		reasons = append(reasons, fmt.Sprintf("reference similarity %.2f", referenceScore))
	}

	return strings.Join(reasons, ", ")
}
