// Package matcher implements the pluggable record matching strategies used by
// the reconciliation engine.
//
// Three strategies of increasing cost are provided:
//   - ExactStrategy: bit-exact amount, equal currency, same calendar day
//   - FuzzyStrategy: weighted amount/currency/date/reference scoring
//   - ScoredStrategy: fixed-weight feature scoring through a sigmoid
//
// All strategies satisfy the MatchingStrategy interface and can be swapped on
// the engine at runtime. Confidence scores are always in [0,1].
package matcher

import (
	"fmt"
)

// ScoreWeights holds the relative weights the fuzzy strategy applies to each
// comparison dimension. Weights should sum to 1.0.
type ScoreWeights struct {
	Amount    float64 `json:"amount"`
	Currency  float64 `json:"currency"`
	Date      float64 `json:"date"`
	Reference float64 `json:"reference"`
}

// Sum returns the total of all weights
func (w ScoreWeights) Sum() float64 {
	return w.Amount + w.Currency + w.Date + w.Reference
}

// Config holds tuning parameters for the matching strategies. Use the factory
// functions for common scenarios: DefaultConfig for balanced matching,
// StrictConfig for tight thresholds, RelaxedConfig for exploratory matching.
type Config struct {
	// MinConfidence is the acceptance threshold for the fuzzy strategy
	MinConfidence float64 `json:"min_confidence"`

	// ScoredMinConfidence is the acceptance threshold for the scored strategy
	ScoredMinConfidence float64 `json:"scored_min_confidence"`

	// DateWindowDays is the window over which date proximity decays to zero
	DateWindowDays int `json:"date_window_days"`

	// Weights are the fuzzy strategy's scoring weights
	Weights ScoreWeights `json:"weights"`
}

// DefaultConfig returns the balanced configuration: 40% amount, 20% currency,
// 20% date, 20% reference, accepting at 0.7 (fuzzy) and 0.8 (scored).
func DefaultConfig() *Config {
	return &Config{
		MinConfidence:       0.7,
		ScoredMinConfidence: 0.8,
		DateWindowDays:      7,
		Weights: ScoreWeights{
			Amount:    0.4,
			Currency:  0.2,
			Date:      0.2,
			Reference: 0.2,
		},
	}
}

// StrictConfig returns a configuration with tight thresholds for critical
// reconciliation contexts.
func StrictConfig() *Config {
	config := DefaultConfig()
	config.MinConfidence = 0.85
	config.ScoredMinConfidence = 0.9
	config.DateWindowDays = 2
	return config
}

// RelaxedConfig returns a configuration with loose thresholds for
// exploratory matching and candidate review.
func RelaxedConfig() *Config {
	config := DefaultConfig()
	config.MinConfidence = 0.5
	config.ScoredMinConfidence = 0.6
	config.DateWindowDays = 14
	return config
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %f", c.MinConfidence)
	}

	if c.ScoredMinConfidence < 0 || c.ScoredMinConfidence > 1 {
		return fmt.Errorf("scored min confidence must be in [0,1], got %f", c.ScoredMinConfidence)
	}

	if c.DateWindowDays <= 0 {
		return fmt.Errorf("date window days must be positive, got %d", c.DateWindowDays)
	}

	sum := c.Weights.Sum()
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("score weights must sum to 1.0, got %f", sum)
	}

	return nil
}

// Clone returns a copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
