package matcher

import (
	"fmt"

	"payment-reconciliation-engine/internal/models"
)

// ScoredStrategy is a simulated learned-scoring matcher: it extracts five
// bounded features, applies fixed weights plus a bias, and passes the sum
// through a sigmoid to produce a confidence in (0,1).
//
// This is a heuristic placeholder, not a trained model. The weights below are
// hand-picked constants; a real classifier trained on labelled match data
// could be swapped in behind the same MatchingStrategy interface without any
// engine changes.
type ScoredStrategy struct {
	config *Config
}

// Fixed feature weights for the simulated classifier. Order: amount ratio
// decay, currency match, date decay, reference token overlap, amount
// magnitude bucket.
const (
	scoredAmountWeight    = 2.2
	scoredCurrencyWeight  = 1.4
	scoredDateWeight      = 1.6
	scoredReferenceWeight = 1.8
	scoredMagnitudeWeight = 0.4
	scoredBias            = -4.0

	// dateHalfLifeDays gives the exponential date feature a ~3-day half-life
	dateHalfLifeDays = 3.0
)

// NewScoredStrategy creates a scored strategy, falling back to DefaultConfig
// when config is nil.
func NewScoredStrategy(config *Config) *ScoredStrategy {
	if config == nil {
		config = DefaultConfig()
	}
	return &ScoredStrategy{config: config}
}

// Name identifies the strategy
func (s *ScoredStrategy) Name() string {
	return "scored"
}

// FindMatch returns the highest-confidence candidate at or above the scored
// acceptance threshold.
func (s *ScoredStrategy) FindMatch(payment *models.PaymentRecord, candidates []*models.ExternalRecord) (*models.RecordMatch, bool) {
	ranked := s.FindPotentialMatches(payment, candidates)
	if len(ranked) == 0 {
		return nil, false
	}

	best := ranked[0]
	return models.NewRecordMatch(payment, best.External, best.Confidence, best.Reason, s.Name()), true
}

// FindPotentialMatches returns all candidates at or above the threshold,
// sorted by descending confidence.
func (s *ScoredStrategy) FindPotentialMatches(payment *models.PaymentRecord, candidates []*models.ExternalRecord) []models.MatchCandidate {
	if payment == nil {
		return nil
	}

	var results []models.MatchCandidate
	for _, external := range candidates {
		if external == nil {
			continue
		}

		confidence := s.score(payment, external)
		if confidence >= s.config.ScoredMinConfidence {
			reason := fmt.Sprintf("feature score %.3f (weighted sigmoid)", confidence)
			results = append(results, models.NewMatchCandidate(external, confidence, reason))
		}
	}

	sortCandidates(results)
	return results
}

// score extracts the five features and folds them through the fixed weights.
// A zero amount on exactly one side scores zero, whatever the threshold.
func (s *ScoredStrategy) score(payment *models.PaymentRecord, external *models.ExternalRecord) float64 {
	if payment.Amount.IsZero() != external.Amount.IsZero() {
		return 0
	}

	amountFeature := AmountRatioDecay(payment.Amount, external.Amount)

	currencyFeature := 0.0
	if payment.Currency != "" && payment.Currency == external.Currency {
		currencyFeature = 1.0
	}

	dateFeature := ExpDateDecay(payment.TransactionDate, external.SettlementDate, dateHalfLifeDays)

	referenceFeature := TokenOverlap(external.Description, payment.TransactionID, payment.OrderID)

	magnitudeFeature := MagnitudeBucket(payment.Amount)

	raw := amountFeature*scoredAmountWeight +
		currencyFeature*scoredCurrencyWeight +
		dateFeature*scoredDateWeight +
		referenceFeature*scoredReferenceWeight +
		magnitudeFeature*scoredMagnitudeWeight +
		scoredBias

	return Sigmoid(raw)
}
