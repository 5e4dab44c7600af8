package resolver

import (
	"fmt"

	"payment-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

// Rule is one configurable resolution rule. Rules are evaluated in order;
// the first rule that applies decides the outcome.
type Rule struct {
	// Name identifies the rule in resolution notes
	Name string

	// Applies reports whether the rule decides this discrepancy
	Applies func(d *models.Discrepancy, settings models.ReconciliationSettings) bool

	// Action is the disposition the rule assigns
	Action models.ResolutionAction

	// Resolves marks whether the assigned action closes the discrepancy
	Resolves bool

	// Notes explains the disposition
	Notes string
}

// RuleBasedStrategy evaluates an ordered rule list before falling back to
// the automatic policy.
type RuleBasedStrategy struct {
	rules    []Rule
	fallback *AutomaticStrategy
}

// recognizedFXPairs are currency pairs for which a settlement-side currency
// difference is a known conversion artifact rather than a booking error.
var recognizedFXPairs = map[string]bool{
	"EUR/USD": true,
	"USD/EUR": true,
	"GBP/USD": true,
	"USD/GBP": true,
	"EUR/GBP": true,
	"GBP/EUR": true,
	"USD/JPY": true,
	"JPY/USD": true,
}

// NewRuleBasedStrategy creates a rule-based strategy. A nil or empty rule
// list uses DefaultRules.
func NewRuleBasedStrategy(rules []Rule) *RuleBasedStrategy {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleBasedStrategy{
		rules:    rules,
		fallback: NewAutomaticStrategy(),
	}
}

// Name identifies the strategy
func (s *RuleBasedStrategy) Name() string {
	return "rule-based"
}

// Rules returns the active rule list in evaluation order
func (s *RuleBasedStrategy) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Resolve evaluates the rules in order, falling back to automatic behavior
// when none applies.
func (s *RuleBasedStrategy) Resolve(d *models.Discrepancy, settings models.ReconciliationSettings) models.DiscrepancyResolution {
	for _, rule := range s.rules {
		if rule.Applies == nil || !rule.Applies(d, settings) {
			continue
		}

		return models.DiscrepancyResolution{
			DiscrepancyID: d.ID,
			Action:        rule.Action,
			Resolved:      rule.Resolves,
			ResolvedBy:    s.Name(),
			Notes:         fmt.Sprintf("rule %q: %s", rule.Name, rule.Notes),
			Data:          map[string]string{"rule": rule.Name},
		}
	}

	resolution := s.fallback.Resolve(d, settings)
	resolution.ResolvedBy = s.Name()
	return resolution
}

// DefaultRules returns the built-in rule list
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "fx-pair-currency-correction",
			Applies: func(d *models.Discrepancy, _ models.ReconciliationSettings) bool {
				if d.Type != models.DiscrepancyCurrencyMismatch || d.Payment == nil || d.External == nil {
					return false
				}
				pair := d.Payment.Currency + "/" + d.External.Currency
				return recognizedFXPairs[pair]
			},
			Action:   models.ActionSystemCorrection,
			Resolves: true,
			Notes:    "currency mismatch on a recognized FX pair corrected by the system",
		},
		{
			Name: "sub-cent-amount-ignore",
			Applies: func(d *models.Discrepancy, _ models.ReconciliationSettings) bool {
				return d.Type == models.DiscrepancyAmountMismatch &&
					d.AmountDifference.Abs().LessThan(decimal.NewFromFloat(0.01))
			},
			Action:   models.ActionIgnoredWithinTolerance,
			Resolves: true,
			Notes:    "sub-cent rounding difference ignored",
		},
		{
			Name: "critical-escalation",
			Applies: func(d *models.Discrepancy, _ models.ReconciliationSettings) bool {
				return d.Severity == models.SeverityCritical
			},
			Action:   models.ActionEscalated,
			Resolves: false,
			Notes:    "critical discrepancy escalated before any automated handling",
		},
		{
			Name: "manual-entry-rejection",
			Applies: func(d *models.Discrepancy, _ models.ReconciliationSettings) bool {
				return d.Type == models.DiscrepancyDuplicateRecord &&
					d.External != nil && d.External.Source == models.SourceManualEntry
			},
			Action:   models.ActionRejected,
			Resolves: true,
			Notes:    "duplicate manual entry rejected",
		},
	}
}
