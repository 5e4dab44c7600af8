package models

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func summaryWithRates(matchRate, resolutionRate float64) *ReconciliationSummary {
	return &ReconciliationSummary{
		RunID:          "run",
		StartedAt:      time.Now(),
		CompletedAt:    time.Now(),
		TotalPayments:  10,
		TotalExternals: 10,
		MatchRate:      matchRate,
		ResolutionRate: resolutionRate,
		Matching: &MatchingResult{
			Strategy: "exact",
			Matches:  []*RecordMatch{{}, {}},
		},
		Discrepancy: &DiscrepancyResult{
			Discrepancies: []*Discrepancy{{ID: "d1", Type: DiscrepancyAmountMismatch}},
			CountsByType:  map[DiscrepancyType]int{DiscrepancyAmountMismatch: 1},
		},
		Resolution: &ResolutionResult{
			Strategy:       "automatic",
			Resolutions:    []DiscrepancyResolution{{DiscrepancyID: "d1", Action: ActionAutoResolved, Resolved: true}},
			CountsByAction: map[ResolutionAction]int{ActionAutoResolved: 1},
			ResolvedCount:  1,
		},
	}
}

func TestReconciliationMetrics_RecordRun(t *testing.T) {
	metrics := NewReconciliationMetrics()

	metrics.RecordRun(summaryWithRates(1.0, 1.0))
	metrics.RecordRun(summaryWithRates(0.5, 0.0))

	snapshot := metrics.Snapshot()

	if snapshot.TotalRuns != 2 {
		t.Errorf("Expected 2 runs, got %d", snapshot.TotalRuns)
	}
	if snapshot.TotalPayments != 20 {
		t.Errorf("Expected 20 total payments, got %d", snapshot.TotalPayments)
	}
	if snapshot.TotalMatches != 4 {
		t.Errorf("Expected 4 total matches, got %d", snapshot.TotalMatches)
	}
	if snapshot.TotalDiscrepancies != 2 {
		t.Errorf("Expected 2 total discrepancies, got %d", snapshot.TotalDiscrepancies)
	}
	if math.Abs(snapshot.AverageMatchRate-0.75) > 1e-9 {
		t.Errorf("Expected average match rate 0.75, got %f", snapshot.AverageMatchRate)
	}
	if math.Abs(snapshot.AverageResolutionRate-0.5) > 1e-9 {
		t.Errorf("Expected average resolution rate 0.5, got %f", snapshot.AverageResolutionRate)
	}
	if snapshot.DiscrepanciesByType[DiscrepancyAmountMismatch] != 2 {
		t.Errorf("Expected 2 amount mismatches, got %d", snapshot.DiscrepanciesByType[DiscrepancyAmountMismatch])
	}
	if snapshot.ResolutionsByAction[ActionAutoResolved] != 2 {
		t.Errorf("Expected 2 auto resolutions, got %d", snapshot.ResolutionsByAction[ActionAutoResolved])
	}
}

func TestReconciliationMetrics_RunningAverage(t *testing.T) {
	metrics := NewReconciliationMetrics()

	rates := []float64{1.0, 0.0, 0.5, 0.9}
	var sum float64
	for _, rate := range rates {
		metrics.RecordRun(summaryWithRates(rate, rate))
		sum += rate
	}

	expected := sum / float64(len(rates))
	snapshot := metrics.Snapshot()
	if math.Abs(snapshot.AverageMatchRate-expected) > 1e-9 {
		t.Errorf("Expected running average %f, got %f", expected, snapshot.AverageMatchRate)
	}
}

func TestReconciliationMetrics_NilSummaryIgnored(t *testing.T) {
	metrics := NewReconciliationMetrics()
	metrics.RecordRun(nil)

	if snapshot := metrics.Snapshot(); snapshot.TotalRuns != 0 {
		t.Errorf("Nil summary should not count as a run, got %d", snapshot.TotalRuns)
	}
}

func TestReconciliationMetrics_Reset(t *testing.T) {
	metrics := NewReconciliationMetrics()
	metrics.RecordRun(summaryWithRates(1.0, 1.0))
	metrics.Reset()

	snapshot := metrics.Snapshot()
	if snapshot.TotalRuns != 0 || snapshot.TotalPayments != 0 || snapshot.AverageMatchRate != 0 {
		t.Errorf("Reset should clear all counters, got %+v", snapshot)
	}
	if len(snapshot.DiscrepanciesByType) != 0 {
		t.Error("Reset should clear per-type counts")
	}
}

func TestReconciliationMetrics_SnapshotIsCopy(t *testing.T) {
	metrics := NewReconciliationMetrics()
	metrics.RecordRun(summaryWithRates(1.0, 1.0))

	snapshot := metrics.Snapshot()
	snapshot.DiscrepanciesByType[DiscrepancyDateMismatch] = 99

	if metrics.Snapshot().DiscrepanciesByType[DiscrepancyDateMismatch] != 0 {
		t.Error("Mutating a snapshot must not affect the accumulator")
	}
}

func TestReconciliationMetrics_ConcurrentRecording(t *testing.T) {
	metrics := NewReconciliationMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordRun(summaryWithRates(1.0, 1.0))
		}()
	}
	wg.Wait()

	if snapshot := metrics.Snapshot(); snapshot.TotalRuns != 20 {
		t.Errorf("Expected 20 runs after concurrent recording, got %d", snapshot.TotalRuns)
	}
}

func TestSeverity_Ordering(t *testing.T) {
	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i].AtLeast(ordered[i-1]) {
			t.Errorf("%s should be at least %s", ordered[i], ordered[i-1])
		}
		if ordered[i-1].AtLeast(ordered[i]) {
			t.Errorf("%s should not be at least %s", ordered[i-1], ordered[i])
		}
	}

	if MaxSeverity(SeverityLow, SeverityHigh) != SeverityHigh {
		t.Error("MaxSeverity(LOW, HIGH) should be HIGH")
	}
	if MaxSeverity(SeverityCritical, SeverityMedium) != SeverityCritical {
		t.Error("MaxSeverity(CRITICAL, MEDIUM) should be CRITICAL")
	}
}

func TestNewDiscrepancy(t *testing.T) {
	d := NewDiscrepancy(DiscrepancyAmountMismatch, SeverityMedium, "amounts differ")

	if d.ID == "" {
		t.Error("Expected a generated id")
	}
	if d.DetectedAt.IsZero() {
		t.Error("Expected a detection timestamp")
	}
	if d.Type != DiscrepancyAmountMismatch || d.Severity != SeverityMedium {
		t.Errorf("Unexpected type/severity: %s/%s", d.Type, d.Severity)
	}
}

func TestDiscrepancy_Validate(t *testing.T) {
	payment := NewPaymentRecord("TXN001", "", decimal.NewFromInt(100), "USD", StatusCompleted, time.Now())

	valid := NewDiscrepancy(DiscrepancyMissingExternal, SeverityLow, "no counterpart")
	valid.Payment = payment
	if err := valid.Validate(); err != nil {
		t.Errorf("Valid discrepancy failed validation: %v", err)
	}

	orphan := NewDiscrepancy(DiscrepancyMissingExternal, SeverityLow, "no records at all")
	if err := orphan.Validate(); err == nil {
		t.Error("Discrepancy without any record reference should fail validation")
	}

	badSeverity := NewDiscrepancy(DiscrepancyMissingExternal, "WHATEVER", "bad grade")
	badSeverity.Payment = payment
	if err := badSeverity.Validate(); err == nil {
		t.Error("Discrepancy with unknown severity should fail validation")
	}
}

func TestDiscrepancyResult_HighestSeverity(t *testing.T) {
	result := &DiscrepancyResult{}
	if result.HighestSeverity() != SeverityLow {
		t.Error("Empty result should report LOW")
	}

	result.Discrepancies = []*Discrepancy{
		{ID: "a", Severity: SeverityMedium},
		{ID: "b", Severity: SeverityCritical},
		{ID: "c", Severity: SeverityLow},
	}
	if result.HighestSeverity() != SeverityCritical {
		t.Errorf("Expected CRITICAL, got %s", result.HighestSeverity())
	}
}

func TestComputeRates(t *testing.T) {
	if rate := ComputeMatchRate(0, 0); rate != 1.0 {
		t.Errorf("Empty run should have match rate 1.0, got %f", rate)
	}
	if rate := ComputeMatchRate(3, 4); rate != 0.75 {
		t.Errorf("Expected match rate 0.75, got %f", rate)
	}
	if rate := ComputeResolutionRate(0, 0); rate != 1.0 {
		t.Errorf("No discrepancies should have resolution rate 1.0, got %f", rate)
	}
	if rate := ComputeResolutionRate(1, 2); rate != 0.5 {
		t.Errorf("Expected resolution rate 0.5, got %f", rate)
	}
}

func TestRecordMatch_ConfidenceClamped(t *testing.T) {
	payment := NewPaymentRecord("TXN001", "", decimal.NewFromInt(100), "USD", StatusCompleted, time.Now())
	external := NewExternalRecord("REF001", decimal.NewFromInt(100), "USD", "", time.Now(), SourceBankStatement)

	over := NewRecordMatch(payment, external, 1.5, "test", "exact")
	if over.Confidence != 1.0 {
		t.Errorf("Confidence should clamp to 1.0, got %f", over.Confidence)
	}

	under := NewRecordMatch(payment, external, -0.2, "test", "exact")
	if under.Confidence != 0.0 {
		t.Errorf("Confidence should clamp to 0.0, got %f", under.Confidence)
	}
}

func TestSettings_Validate(t *testing.T) {
	valid := DefaultSettings()
	if err := valid.Validate(); err != nil {
		t.Errorf("Default settings should validate: %v", err)
	}

	negative := DefaultSettings()
	negative.AmountTolerance = decimal.NewFromFloat(-0.01)
	if err := negative.Validate(); err == nil {
		t.Error("Negative amount tolerance should fail validation")
	}

	confidence := DefaultSettings()
	confidence.MinConfidence = 1.5
	if err := confidence.Validate(); err == nil {
		t.Error("Confidence above 1 should fail validation")
	}

	workers := DefaultSettings()
	workers.WorkerBudget = 0
	if err := workers.Validate(); err == nil {
		t.Error("Zero worker budget should fail validation")
	}
}
