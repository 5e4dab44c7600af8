package matcher

import (
	"testing"
	"time"

	"payment-reconciliation-engine/internal/models"

	"github.com/shopspring/decimal"
)

func testPayment(id string, amount float64, currency string, date time.Time) *models.PaymentRecord {
	return models.NewPaymentRecord(id, "", decimal.NewFromFloat(amount), currency, models.StatusCompleted, date)
}

func testExternal(ref string, amount float64, currency, description string, date time.Time) *models.ExternalRecord {
	return models.NewExternalRecord(ref, decimal.NewFromFloat(amount), currency, description, date, models.SourceBankStatement)
}

func TestExactStrategy_FindMatch(t *testing.T) {
	day := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)

	tests := []struct {
		name      string
		external  *models.ExternalRecord
		wantMatch bool
	}{
		{"Identical", testExternal("REF-1", 150.00, "USD", "", day.Add(6*time.Hour)), true},
		{"Amount off by a cent", testExternal("REF-2", 150.01, "USD", "", day), false},
		{"Different currency", testExternal("REF-3", 150.00, "EUR", "", day), false},
		{"Next calendar day", testExternal("REF-4", 150.00, "USD", "", day.Add(24*time.Hour)), false},
	}

	strategy := NewExactStrategy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := strategy.FindMatch(payment, []*models.ExternalRecord{tt.external})
			if ok != tt.wantMatch {
				t.Fatalf("FindMatch() ok = %v, want %v", ok, tt.wantMatch)
			}
			if ok && match.Confidence != 1.0 {
				t.Errorf("Exact match confidence should be 1.0, got %f", match.Confidence)
			}
		})
	}
}

func TestExactStrategy_Deterministic(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 99.99, "USD", day)
	candidates := []*models.ExternalRecord{
		testExternal("REF-A", 99.99, "USD", "", day),
		testExternal("REF-B", 99.99, "USD", "", day),
	}

	exact := NewExactStrategy()
	first, ok := exact.FindMatch(payment, candidates)
	if !ok {
		t.Fatal("Expected a match")
	}
	for i := 0; i < 10; i++ {
		match, ok := exact.FindMatch(payment, candidates)
		if !ok || match.External.ReferenceID != first.External.ReferenceID {
			t.Fatal("Exact matching should pick the same candidate every time")
		}
	}
}

func TestExactStrategy_ZeroAmount(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	zeroPayment := testPayment("TXN-Z", 0, "USD", day)

	zero := testExternal("REF-Z", 0, "USD", "", day)
	nonzero := testExternal("REF-N", 10, "USD", "", day)

	if _, ok := NewExactStrategy().FindMatch(zeroPayment, []*models.ExternalRecord{nonzero}); ok {
		t.Error("Zero amount should not match a nonzero amount")
	}
	if _, ok := NewExactStrategy().FindMatch(zeroPayment, []*models.ExternalRecord{zero}); !ok {
		t.Error("Zero amount should match another zero amount")
	}
}

func TestFuzzyStrategy_CloseAmountSameDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)
	external := testExternal("REF-1", 147.50, "USD", "", day)

	match, ok := NewFuzzyStrategy(nil).FindMatch(payment, []*models.ExternalRecord{external})
	if !ok {
		t.Fatal("Close amount on the same day should qualify")
	}
	if match.Confidence >= 1.0 {
		t.Errorf("Approximate match should score below 1.0, got %f", match.Confidence)
	}
	if match.Confidence < 0.7 {
		t.Errorf("Confidence should reach the acceptance threshold, got %f", match.Confidence)
	}
	// 0.4*(1 - 2.5/150) + 0.2 currency + 0.2 date
	if !almostEqual(match.Confidence, 0.4*(1.0-2.5/150.0)+0.4) {
		t.Errorf("Unexpected confidence %f", match.Confidence)
	}
}

func TestFuzzyStrategy_RejectsBelowThreshold(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)

	// wrong currency, half the amount, three days out
	external := testExternal("REF-1", 75.00, "EUR", "UNRELATED", day.Add(3*24*time.Hour))

	if _, ok := NewFuzzyStrategy(nil).FindMatch(payment, []*models.ExternalRecord{external}); ok {
		t.Error("A weak candidate should not qualify")
	}
}

func TestFuzzyStrategy_BestCandidateWins(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)
	candidates := []*models.ExternalRecord{
		testExternal("REF-NEAR", 148.00, "USD", "", day),
		testExternal("REF-EXACT", 150.00, "USD", "PAYMENT TXN-1001", day),
	}

	match, ok := NewFuzzyStrategy(nil).FindMatch(payment, candidates)
	if !ok {
		t.Fatal("Expected a match")
	}
	if match.External.ReferenceID != "REF-EXACT" {
		t.Errorf("Highest confidence candidate should win, got %s", match.External.ReferenceID)
	}
}

func TestFuzzyStrategy_PotentialMatchesSorted(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)
	candidates := []*models.ExternalRecord{
		testExternal("REF-1", 145.00, "USD", "", day),
		testExternal("REF-2", 150.00, "USD", "", day),
		testExternal("REF-3", 149.00, "USD", "", day),
	}

	ranked := NewFuzzyStrategy(nil).FindPotentialMatches(payment, candidates)
	if len(ranked) != 3 {
		t.Fatalf("Expected 3 qualifying candidates, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Confidence > ranked[i-1].Confidence {
			t.Error("Candidates should be sorted by descending confidence")
		}
	}
	if ranked[0].External.ReferenceID != "REF-2" {
		t.Errorf("Exact amount should rank first, got %s", ranked[0].External.ReferenceID)
	}
}

func TestFuzzyStrategy_ConfidenceBounds(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)
	external := testExternal("REF-1", 150.00, "USD", "PAYMENT TXN-1001", day)

	relaxed := NewFuzzyStrategy(RelaxedConfig())
	ranked := relaxed.FindPotentialMatches(payment, []*models.ExternalRecord{external})
	if len(ranked) == 0 {
		t.Fatal("Perfect candidate should qualify")
	}
	if ranked[0].Confidence < 0 || ranked[0].Confidence > 1 {
		t.Errorf("Confidence %f outside [0,1]", ranked[0].Confidence)
	}
}

func TestFuzzyStrategy_ZeroAmountNeverQualifies(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)

	// currency, date and reference all agree; only the amount is zero
	zero := testExternal("REF-Z", 0, "USD", "PAYMENT TXN-1001", day)

	for _, config := range []*Config{DefaultConfig(), RelaxedConfig()} {
		strategy := NewFuzzyStrategy(config)
		if _, ok := strategy.FindMatch(payment, []*models.ExternalRecord{zero}); ok {
			t.Errorf("Zero-amount external matched a nonzero payment at min confidence %.2f",
				config.MinConfidence)
		}
	}

	zeroPayment := testPayment("TXN-Z", 0, "USD", day)
	zeroExternal := testExternal("REF-Z", 0, "USD", "PAYMENT TXN-Z", day)
	if _, ok := NewFuzzyStrategy(RelaxedConfig()).FindMatch(zeroPayment, []*models.ExternalRecord{zeroExternal}); !ok {
		t.Error("Two zero amounts with agreeing fields should still match")
	}
}

func TestScoredStrategy_AcceptsStrongPair(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)
	external := testExternal("REF-1", 150.00, "USD", "TXN-1001", day)

	match, ok := NewScoredStrategy(nil).FindMatch(payment, []*models.ExternalRecord{external})
	if !ok {
		t.Fatal("A fully aligned pair should qualify")
	}
	if match.Confidence < 0.8 {
		t.Errorf("Expected confidence at or above 0.8, got %f", match.Confidence)
	}
	if match.Confidence >= 1.0 {
		t.Errorf("Sigmoid output should stay below 1.0, got %f", match.Confidence)
	}
}

func TestScoredStrategy_RejectsWeakPair(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	payment := testPayment("TXN-1001", 150.00, "USD", day)

	// half the amount, five days out, unrelated narrative
	external := testExternal("REF-1", 300.00, "USD", "SOMETHING ELSE", day.Add(5*24*time.Hour))

	if _, ok := NewScoredStrategy(nil).FindMatch(payment, []*models.ExternalRecord{external}); ok {
		t.Error("A weak pair should not reach the scored threshold")
	}
}

func TestScoredStrategy_ZeroAmount(t *testing.T) {
	day := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	zeroPayment := testPayment("TXN-Z", 0, "USD", day)
	nonzero := testExternal("REF-N", 50, "USD", "TXN-Z", day)

	if _, ok := NewScoredStrategy(nil).FindMatch(zeroPayment, []*models.ExternalRecord{nonzero}); ok {
		t.Error("Zero amount should not match a nonzero amount")
	}
	if _, ok := NewScoredStrategy(RelaxedConfig()).FindMatch(zeroPayment, []*models.ExternalRecord{nonzero}); ok {
		t.Error("Zero amount should not match a nonzero amount under a relaxed threshold")
	}
}

func TestStrategies_NilPayment(t *testing.T) {
	strategies := []MatchingStrategy{NewExactStrategy(), NewFuzzyStrategy(nil), NewScoredStrategy(nil)}
	external := testExternal("REF-1", 100, "USD", "", time.Now())

	for _, s := range strategies {
		if _, ok := s.FindMatch(nil, []*models.ExternalRecord{external}); ok {
			t.Errorf("%s: nil payment should never match", s.Name())
		}
		if ranked := s.FindPotentialMatches(nil, []*models.ExternalRecord{external}); ranked != nil {
			t.Errorf("%s: nil payment should yield no candidates", s.Name())
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
	if err := StrictConfig().Validate(); err != nil {
		t.Errorf("Strict config should validate: %v", err)
	}
	if err := RelaxedConfig().Validate(); err != nil {
		t.Errorf("Relaxed config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.Weights.Amount = 0.9
	if err := bad.Validate(); err == nil {
		t.Error("Weights that do not sum to 1 should fail validation")
	}
}
