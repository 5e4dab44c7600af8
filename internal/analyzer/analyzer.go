// Package analyzer classifies the outcome of a matching pass into a typed,
// severity-graded discrepancy set.
//
// The analyzer partitions every ingested record exactly once: a record is
// either part of a committed match or reported as a missing-counterpart
// discrepancy. Matched pairs are then re-compared field by field against the
// active tolerances.
package analyzer

import (
	"fmt"
	"time"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// Analyzer compares matched pairs and classifies unmatched records
type Analyzer struct {
	log logger.Logger
}

// New creates a discrepancy analyzer
func New() *Analyzer {
	return &Analyzer{
		log: logger.GetGlobalLogger().WithComponent("analyzer"),
	}
}

// Analyze produces the discrepancy result for one run. Tolerances are
// inclusive: a difference exactly equal to the configured tolerance raises no
// discrepancy. The analyzer does not assume its inputs passed ingestion
// validation; callers may feed it records from any source, so matched pairs
// are re-checked for invalid data such as negative amounts.
func (a *Analyzer) Analyze(
	payments []*models.PaymentRecord,
	externals []*models.ExternalRecord,
	matches []*models.RecordMatch,
	settings models.ReconciliationSettings,
) *models.DiscrepancyResult {

	result := &models.DiscrepancyResult{
		CountsByType:     make(map[models.DiscrepancyType]int),
		CountsBySeverity: make(map[models.Severity]int),
	}

	matchedPayments := make(map[string]bool, len(matches))
	matchedExternals := make(map[string]bool, len(matches))
	for _, match := range matches {
		matchedPayments[match.Payment.TransactionID] = true
		matchedExternals[match.External.ReferenceID] = true
	}

	// Unmatched internal records are missing their external counterpart
	for _, payment := range payments {
		if matchedPayments[payment.TransactionID] {
			continue
		}

		d := models.NewDiscrepancy(
			models.DiscrepancyMissingExternal,
			a.gradeMissing(payment.Amount, settings),
			fmt.Sprintf("no external record found for payment %s (%s %s)",
				payment.TransactionID, payment.Amount.String(), payment.Currency),
		)
		d.Payment = payment
		d.AmountDifference = payment.Amount
		a.add(result, d)
	}

	// Unmatched external records have no internal counterpart
	for _, external := range externals {
		if matchedExternals[external.ReferenceID] {
			continue
		}

		d := models.NewDiscrepancy(
			models.DiscrepancyMissingInternal,
			a.gradeMissing(external.Amount, settings),
			fmt.Sprintf("no internal payment found for external record %s (%s %s)",
				external.ReferenceID, external.Amount.String(), external.Currency),
		)
		d.External = external
		d.AmountDifference = external.Amount
		a.add(result, d)
	}

	// Matched pairs are re-compared field by field
	for _, match := range matches {
		for _, d := range a.compareMatchedPair(match, settings) {
			a.add(result, d)
		}
	}

	// Duplicate identifiers in either ingested set
	for _, d := range a.findDuplicates(payments, externals) {
		a.add(result, d)
	}

	a.log.WithFields(logger.Fields{
		"discrepancies": len(result.Discrepancies),
		"matches":       len(matches),
	}).Debug("Discrepancy analysis complete")

	return result
}

// compareMatchedPair re-checks a committed match against the tolerances
func (a *Analyzer) compareMatchedPair(match *models.RecordMatch, settings models.ReconciliationSettings) []*models.Discrepancy {
	var discrepancies []*models.Discrepancy
	payment := match.Payment
	external := match.External

	if payment.Amount.IsNegative() || external.Amount.IsNegative() {
		d := models.NewDiscrepancy(
			models.DiscrepancyInvalidData,
			models.SeverityHigh,
			fmt.Sprintf("matched pair %s/%s carries a negative amount",
				payment.TransactionID, external.ReferenceID),
		)
		d.Payment = payment
		d.External = external
		discrepancies = append(discrepancies, d)
	}

	amountDiff := payment.Amount.Sub(external.Amount).Abs()
	if amountDiff.GreaterThan(settings.AmountTolerance) {
		d := models.NewDiscrepancy(
			models.DiscrepancyAmountMismatch,
			a.gradeAmount(amountDiff, settings.AmountTolerance),
			fmt.Sprintf("amount differs by %s between payment %s (%s) and external %s (%s)",
				amountDiff.String(), payment.TransactionID, payment.Amount.String(),
				external.ReferenceID, external.Amount.String()),
		)
		d.Payment = payment
		d.External = external
		d.AmountDifference = amountDiff
		discrepancies = append(discrepancies, d)
	}

	if !models.CompareDatesWithTolerance(payment.TransactionDate, external.SettlementDate, settings.DateToleranceDays) {
		dateDiff := payment.TransactionDate.Sub(external.SettlementDate)
		if dateDiff < 0 {
			dateDiff = -dateDiff
		}

		d := models.NewDiscrepancy(
			models.DiscrepancyDateMismatch,
			a.gradeDate(dateDiff, settings.DateToleranceDays),
			fmt.Sprintf("settlement of %s lags payment %s by %d days",
				external.ReferenceID, payment.TransactionID, int(dateDiff.Hours()/24)),
		)
		d.Payment = payment
		d.External = external
		d.DateDifference = dateDiff
		discrepancies = append(discrepancies, d)
	}

	if payment.Currency != external.Currency {
		// Currency mismatches are never below medium
		d := models.NewDiscrepancy(
			models.DiscrepancyCurrencyMismatch,
			models.MaxSeverity(models.SeverityMedium, a.gradeMissing(payment.Amount, settings)),
			fmt.Sprintf("currency differs: payment %s in %s, external %s in %s",
				payment.TransactionID, payment.Currency, external.ReferenceID, external.Currency),
		)
		d.Payment = payment
		d.External = external
		discrepancies = append(discrepancies, d)
	}

	if payment.Status == models.StatusFailed || payment.Status == models.StatusCancelled {
		d := models.NewDiscrepancy(
			models.DiscrepancyStatusMismatch,
			models.SeverityHigh,
			fmt.Sprintf("payment %s has status %s but settled externally as %s",
				payment.TransactionID, payment.Status, external.ReferenceID),
		)
		d.Payment = payment
		d.External = external
		discrepancies = append(discrepancies, d)
	}

	return discrepancies
}

// findDuplicates reports repeated identifiers within each ingested set
func (a *Analyzer) findDuplicates(payments []*models.PaymentRecord, externals []*models.ExternalRecord) []*models.Discrepancy {
	var discrepancies []*models.Discrepancy

	seenPayments := make(map[string]bool, len(payments))
	for _, payment := range payments {
		if seenPayments[payment.TransactionID] {
			d := models.NewDiscrepancy(
				models.DiscrepancyDuplicateRecord,
				models.SeverityMedium,
				fmt.Sprintf("payment transaction ID %s ingested more than once", payment.TransactionID),
			)
			d.Payment = payment
			discrepancies = append(discrepancies, d)
			continue
		}
		seenPayments[payment.TransactionID] = true
	}

	seenExternals := make(map[string]bool, len(externals))
	for _, external := range externals {
		if seenExternals[external.ReferenceID] {
			d := models.NewDiscrepancy(
				models.DiscrepancyDuplicateRecord,
				models.SeverityMedium,
				fmt.Sprintf("external reference ID %s ingested more than once", external.ReferenceID),
			)
			d.External = external
			discrepancies = append(discrepancies, d)
			continue
		}
		seenExternals[external.ReferenceID] = true
	}

	return discrepancies
}

// gradeAmount grades amount discrepancies by their size relative to the
// tolerance: beyond 5x tolerance escalates to high, beyond 20x to critical.
func (a *Analyzer) gradeAmount(diff, tolerance decimal.Decimal) models.Severity {
	if tolerance.IsZero() {
		// No tolerance configured, grade on absolute size
		tolerance = decimal.NewFromFloat(0.01)
	}

	ratio := diff.Div(tolerance)
	switch {
	case ratio.GreaterThan(decimal.NewFromInt(20)):
		return models.SeverityCritical
	case ratio.GreaterThan(decimal.NewFromInt(5)):
		return models.SeverityHigh
	case ratio.GreaterThan(decimal.NewFromInt(2)):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// gradeDate grades date discrepancies by how far past tolerance they are
func (a *Analyzer) gradeDate(diff time.Duration, toleranceDays int) models.Severity {
	days := int(diff.Hours() / 24)
	switch {
	case days > toleranceDays*10:
		return models.SeverityHigh
	case days > toleranceDays*3:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// gradeMissing grades missing-record discrepancies: medium by default,
// escalating at the material amount threshold.
func (a *Analyzer) gradeMissing(amount decimal.Decimal, settings models.ReconciliationSettings) models.Severity {
	threshold := settings.MaterialAmountThreshold
	if threshold.IsZero() {
		return models.SeverityMedium
	}

	abs := amount.Abs()
	switch {
	case abs.GreaterThanOrEqual(threshold.Mul(decimal.NewFromInt(10))):
		return models.SeverityCritical
	case abs.GreaterThanOrEqual(threshold):
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

func (a *Analyzer) add(result *models.DiscrepancyResult, d *models.Discrepancy) {
	result.Discrepancies = append(result.Discrepancies, d)
	result.CountsByType[d.Type]++
	result.CountsBySeverity[d.Severity]++
}
