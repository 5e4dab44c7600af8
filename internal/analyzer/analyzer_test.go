package analyzer

import (
	"testing"
	"time"

	"payment-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

func testPayment(id string, amount float64, currency string, date time.Time) *models.PaymentRecord {
	return models.NewPaymentRecord(id, "", decimal.NewFromFloat(amount), currency, models.StatusCompleted, date)
}

func testExternal(ref string, amount float64, currency string, date time.Time) *models.ExternalRecord {
	return models.NewExternalRecord(ref, decimal.NewFromFloat(amount), currency, "", date, models.SourceBankStatement)
}

func matchPair(payment *models.PaymentRecord, external *models.ExternalRecord) *models.RecordMatch {
	return models.NewRecordMatch(payment, external, 1.0, "test", "exact")
}

func TestAnalyze_PartitionsEveryRecordOnce(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	settings := models.DefaultSettings()

	matchedPayment := testPayment("TXN-1", 100, "USD", day)
	matchedExternal := testExternal("REF-1", 100, "USD", day)
	lonelyPayment := testPayment("TXN-2", 200, "USD", day)
	lonelyExternal := testExternal("REF-2", 300, "USD", day)

	result := New().Analyze(
		[]*models.PaymentRecord{matchedPayment, lonelyPayment},
		[]*models.ExternalRecord{matchedExternal, lonelyExternal},
		[]*models.RecordMatch{matchPair(matchedPayment, matchedExternal)},
		settings,
	)

	if result.CountsByType[models.DiscrepancyMissingExternal] != 1 {
		t.Errorf("Expected 1 missing-external discrepancy, got %d", result.CountsByType[models.DiscrepancyMissingExternal])
	}
	if result.CountsByType[models.DiscrepancyMissingInternal] != 1 {
		t.Errorf("Expected 1 missing-internal discrepancy, got %d", result.CountsByType[models.DiscrepancyMissingInternal])
	}
	if len(result.Discrepancies) != 2 {
		t.Errorf("A clean match should raise nothing, got %d discrepancies", len(result.Discrepancies))
	}
}

func TestAnalyze_CleanRunHasNoDiscrepancies(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1", 100, "USD", day)
	external := testExternal("REF-1", 100, "USD", day)

	result := New().Analyze(
		[]*models.PaymentRecord{payment},
		[]*models.ExternalRecord{external},
		[]*models.RecordMatch{matchPair(payment, external)},
		models.DefaultSettings(),
	)

	if len(result.Discrepancies) != 0 {
		t.Errorf("Expected no discrepancies, got %v", result.Discrepancies)
	}
}

func TestAnalyze_AmountMismatch(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	settings := models.DefaultSettings()

	tests := []struct {
		name         string
		external     float64
		wantType     bool
		wantSeverity models.Severity
	}{
		{"Within tolerance", 100.005, false, ""},
		{"Exactly at tolerance", 100.01, false, ""},
		{"Small breach", 100.02, true, models.SeverityLow},
		{"Medium breach", 100.05, true, models.SeverityMedium},
		{"High breach", 100.10, true, models.SeverityHigh},
		{"Critical breach", 102.50, true, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := testPayment("TXN-1", 100, "USD", day)
			external := testExternal("REF-1", tt.external, "USD", day)

			result := New().Analyze(
				[]*models.PaymentRecord{payment},
				[]*models.ExternalRecord{external},
				[]*models.RecordMatch{matchPair(payment, external)},
				settings,
			)

			count := result.CountsByType[models.DiscrepancyAmountMismatch]
			if tt.wantType && count != 1 {
				t.Fatalf("Expected an amount mismatch, got %d", count)
			}
			if !tt.wantType {
				if count != 0 {
					t.Fatalf("Expected no amount mismatch, got %d", count)
				}
				return
			}

			if got := result.Discrepancies[0].Severity; got != tt.wantSeverity {
				t.Errorf("Expected severity %s, got %s", tt.wantSeverity, got)
			}
		})
	}
}

func TestAnalyze_DateMismatch(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	settings := models.DefaultSettings() // 3-day tolerance

	payment := testPayment("TXN-1", 100, "USD", day)
	within := testExternal("REF-1", 100, "USD", day.Add(3*24*time.Hour))
	outside := testExternal("REF-2", 100, "USD", day.Add(5*24*time.Hour))

	resultWithin := New().Analyze(
		[]*models.PaymentRecord{payment},
		[]*models.ExternalRecord{within},
		[]*models.RecordMatch{matchPair(payment, within)},
		settings,
	)
	if resultWithin.CountsByType[models.DiscrepancyDateMismatch] != 0 {
		t.Error("Settlement exactly at tolerance should raise nothing")
	}

	resultOutside := New().Analyze(
		[]*models.PaymentRecord{payment},
		[]*models.ExternalRecord{outside},
		[]*models.RecordMatch{matchPair(payment, outside)},
		settings,
	)
	if resultOutside.CountsByType[models.DiscrepancyDateMismatch] != 1 {
		t.Error("Settlement beyond tolerance should raise a date mismatch")
	}
}

func TestAnalyze_CurrencyMismatchAtLeastMedium(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1", 100, "USD", day)
	external := testExternal("REF-1", 100, "EUR", day)

	result := New().Analyze(
		[]*models.PaymentRecord{payment},
		[]*models.ExternalRecord{external},
		[]*models.RecordMatch{matchPair(payment, external)},
		models.DefaultSettings(),
	)

	if result.CountsByType[models.DiscrepancyCurrencyMismatch] != 1 {
		t.Fatal("Expected a currency mismatch")
	}
	for _, d := range result.Discrepancies {
		if d.Type == models.DiscrepancyCurrencyMismatch && !d.Severity.AtLeast(models.SeverityMedium) {
			t.Errorf("Currency mismatch should be at least MEDIUM, got %s", d.Severity)
		}
	}
}

func TestAnalyze_StatusMismatch(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	failed := testPayment("TXN-1", 100, "USD", day)
	failed.Status = models.StatusFailed
	external := testExternal("REF-1", 100, "USD", day)

	result := New().Analyze(
		[]*models.PaymentRecord{failed},
		[]*models.ExternalRecord{external},
		[]*models.RecordMatch{matchPair(failed, external)},
		models.DefaultSettings(),
	)

	if result.CountsByType[models.DiscrepancyStatusMismatch] != 1 {
		t.Error("A failed payment settling externally should raise a status mismatch")
	}

	pending := testPayment("TXN-2", 100, "USD", day)
	pending.Status = models.StatusPending

	result = New().Analyze(
		[]*models.PaymentRecord{pending},
		[]*models.ExternalRecord{external},
		[]*models.RecordMatch{matchPair(pending, external)},
		models.DefaultSettings(),
	)
	if result.CountsByType[models.DiscrepancyStatusMismatch] != 0 {
		t.Error("A pending payment settling externally is normal")
	}
}

func TestAnalyze_MissingRecordSeverityScalesWithAmount(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	settings := models.DefaultSettings() // material threshold 10000

	tests := []struct {
		name     string
		amount   float64
		expected models.Severity
	}{
		{"Immaterial", 500, models.SeverityMedium},
		{"Material", 15000, models.SeverityHigh},
		{"Ten times material", 150000, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := testPayment("TXN-1", tt.amount, "USD", day)

			result := New().Analyze([]*models.PaymentRecord{payment}, nil, nil, settings)
			if len(result.Discrepancies) != 1 {
				t.Fatalf("Expected 1 discrepancy, got %d", len(result.Discrepancies))
			}
			if got := result.Discrepancies[0].Severity; got != tt.expected {
				t.Errorf("Expected severity %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestAnalyze_Duplicates(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	payments := []*models.PaymentRecord{
		testPayment("TXN-1", 100, "USD", day),
		testPayment("TXN-1", 100, "USD", day),
	}
	externals := []*models.ExternalRecord{
		testExternal("REF-1", 100, "USD", day),
		testExternal("REF-1", 100, "USD", day),
		testExternal("REF-1", 100, "USD", day),
	}

	result := New().Analyze(payments, externals, nil, models.DefaultSettings())

	if result.CountsByType[models.DiscrepancyDuplicateRecord] != 3 {
		t.Errorf("Expected 3 duplicate discrepancies (1 payment, 2 external), got %d",
			result.CountsByType[models.DiscrepancyDuplicateRecord])
	}
}

func TestAnalyze_NegativeAmountInvalidData(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	payment := testPayment("TXN-1", 100, "USD", day)
	payment.Amount = decimal.NewFromInt(-100)
	external := testExternal("REF-1", 100, "USD", day)

	result := New().Analyze(
		[]*models.PaymentRecord{payment},
		[]*models.ExternalRecord{external},
		[]*models.RecordMatch{matchPair(payment, external)},
		models.DefaultSettings(),
	)

	if result.CountsByType[models.DiscrepancyInvalidData] != 1 {
		t.Error("A negative amount in a matched pair should raise invalid data")
	}
}

func TestAnalyze_CountsMatchDiscrepancies(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	payment := testPayment("TXN-1", 100, "USD", day)
	external := testExternal("REF-1", 175, "EUR", day.Add(10*24*time.Hour))

	result := New().Analyze(
		[]*models.PaymentRecord{payment},
		[]*models.ExternalRecord{external},
		[]*models.RecordMatch{matchPair(payment, external)},
		models.DefaultSettings(),
	)

	total := 0
	for _, count := range result.CountsByType {
		total += count
	}
	if total != len(result.Discrepancies) {
		t.Errorf("Type counts (%d) should sum to total discrepancies (%d)", total, len(result.Discrepancies))
	}

	total = 0
	for _, count := range result.CountsBySeverity {
		total += count
	}
	if total != len(result.Discrepancies) {
		t.Errorf("Severity counts (%d) should sum to total discrepancies (%d)", total, len(result.Discrepancies))
	}
}
