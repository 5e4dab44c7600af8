// Package config builds engine settings and strategies from viper-backed
// configuration (flags, environment and optional config file).
package config

import (
	"payment-reconciliation-engine/internal/matcher"
	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/internal/resolver"
	"payment-reconciliation-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Viper keys for engine settings
const (
	KeyAmountTolerance       = "amount_tolerance"
	KeyDateToleranceDays     = "date_tolerance_days"
	KeyMinConfidence         = "min_confidence"
	KeyMaterialThreshold     = "material_amount_threshold"
	KeyAutoResolve           = "auto_resolve"
	KeyRequireManualApproval = "require_manual_approval"
	KeyWorkerBudget          = "worker_budget"
)

// LoadSettings builds ReconciliationSettings from viper, starting from the
// defaults and applying any bound flag, env or file values.
func LoadSettings() (models.ReconciliationSettings, error) {
	settings := models.DefaultSettings()

	if viper.IsSet(KeyAmountTolerance) {
		tolerance, err := decimal.NewFromString(viper.GetString(KeyAmountTolerance))
		if err != nil {
			return settings, errors.ConfigurationError(
				errors.CodeInvalidConfig, KeyAmountTolerance, viper.GetString(KeyAmountTolerance), err)
		}
		settings.AmountTolerance = tolerance
	}

	if viper.IsSet(KeyDateToleranceDays) {
		settings.DateToleranceDays = viper.GetInt(KeyDateToleranceDays)
	}

	if viper.IsSet(KeyMinConfidence) {
		settings.MinConfidence = viper.GetFloat64(KeyMinConfidence)
	}

	if viper.IsSet(KeyMaterialThreshold) {
		threshold, err := decimal.NewFromString(viper.GetString(KeyMaterialThreshold))
		if err != nil {
			return settings, errors.ConfigurationError(
				errors.CodeInvalidConfig, KeyMaterialThreshold, viper.GetString(KeyMaterialThreshold), err)
		}
		settings.MaterialAmountThreshold = threshold
	}

	if viper.IsSet(KeyAutoResolve) {
		settings.AutoResolve = viper.GetBool(KeyAutoResolve)
	}

	if viper.IsSet(KeyRequireManualApproval) {
		settings.RequireManualApproval = viper.GetBool(KeyRequireManualApproval)
	}

	if viper.IsSet(KeyWorkerBudget) {
		settings.WorkerBudget = viper.GetInt(KeyWorkerBudget)
	}

	if err := settings.Validate(); err != nil {
		return settings, errors.ConfigurationError(errors.CodeInvalidConfig, "settings", settings, err)
	}

	return settings, nil
}

// BuildMatchingStrategy resolves a strategy name to an implementation
func BuildMatchingStrategy(name string, settings models.ReconciliationSettings) (matcher.MatchingStrategy, error) {
	matcherConfig := matcher.DefaultConfig()
	matcherConfig.MinConfidence = settings.MinConfidence

	switch name {
	case "", "fuzzy":
		return matcher.NewFuzzyStrategy(matcherConfig), nil
	case "exact":
		return matcher.NewExactStrategy(), nil
	case "scored":
		return matcher.NewScoredStrategy(matcherConfig), nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "strategy", name, nil).
			WithSuggestion("use one of: exact, fuzzy, scored")
	}
}

// BuildResolutionStrategy resolves a resolution policy name to an implementation
func BuildResolutionStrategy(name string) (resolver.ResolutionStrategy, error) {
	switch name {
	case "", "automatic":
		return resolver.NewAutomaticStrategy(), nil
	case "manual":
		return resolver.NewManualReviewStrategy(), nil
	case "rules":
		return resolver.NewRuleBasedStrategy(nil), nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "resolution", name, nil).
			WithSuggestion("use one of: automatic, manual, rules")
	}
}
