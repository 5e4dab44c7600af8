// Package reporting renders reconciliation summaries and lifetime metrics
// into named, typed report objects. Generating a report never triggers a
// reconciliation run.
package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"payment-reconciliation-engine/internal/models"

	"github.com/google/uuid"
)

// ReportType names the report views available on demand
type ReportType string

const (
	ReportSummary     ReportType = "SUMMARY"
	ReportDetailed    ReportType = "DETAILED"
	ReportDiscrepancy ReportType = "DISCREPANCY"
	ReportException   ReportType = "EXCEPTION"
	ReportTrend       ReportType = "TREND"
	ReportAuditTrail  ReportType = "AUDIT_TRAIL"
	ReportPerformance ReportType = "PERFORMANCE"
)

// String returns the string representation of ReportType
func (t ReportType) String() string {
	return string(t)
}

// ParseReportType parses a report type from string
func ParseReportType(s string) (ReportType, error) {
	t := ReportType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ReportSummary, ReportDetailed, ReportDiscrepancy, ReportException,
		ReportTrend, ReportAuditTrail, ReportPerformance:
		return t, nil
	case "":
		return ReportSummary, nil
	default:
		return "", fmt.Errorf("unknown report type '%s'", s)
	}
}

// Report is a named report rendered from one summary plus lifetime metrics
type Report struct {
	ID          string            `json:"id"`
	Type        ReportType        `json:"type"`
	Title       string            `json:"title"`
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Lines       []string          `json:"lines"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Strategy is the pluggable report generation contract
type Strategy interface {
	// Name identifies the reporting strategy
	Name() string

	// Generate renders the given summary and metrics into a report
	Generate(t ReportType, summary *models.ReconciliationSummary, metrics models.MetricsSnapshot) (*Report, error)
}

// StandardGenerator is the default reporting strategy
type StandardGenerator struct{}

// NewStandardGenerator creates the default reporting strategy
func NewStandardGenerator() *StandardGenerator {
	return &StandardGenerator{}
}

// Name identifies the strategy
func (g *StandardGenerator) Name() string {
	return "standard"
}

// Generate renders the requested report type
func (g *StandardGenerator) Generate(t ReportType, summary *models.ReconciliationSummary, metrics models.MetricsSnapshot) (*Report, error) {
	if summary == nil {
		return nil, fmt.Errorf("no reconciliation summary available, run a reconciliation first")
	}

	report := &Report{
		ID:          uuid.NewString(),
		Type:        t,
		RunID:       summary.RunID,
		GeneratedAt: time.Now().UTC(),
		Fields:      make(map[string]string),
	}

	switch t {
	case ReportSummary:
		g.renderSummary(report, summary)
	case ReportDetailed:
		g.renderSummary(report, summary)
		g.renderMatches(report, summary)
		g.renderDiscrepancies(report, summary)
		g.renderResolutions(report, summary)
	case ReportDiscrepancy:
		g.renderDiscrepancies(report, summary)
	case ReportException:
		g.renderExceptions(report, summary)
	case ReportTrend:
		g.renderTrend(report, metrics)
	case ReportAuditTrail:
		g.renderAuditTrail(report, summary)
	case ReportPerformance:
		g.renderPerformance(report, summary, metrics)
	default:
		return nil, fmt.Errorf("unknown report type '%s'", t)
	}

	return report, nil
}

func (g *StandardGenerator) renderSummary(report *Report, summary *models.ReconciliationSummary) {
	report.Title = fmt.Sprintf("Reconciliation Summary (run %s)", summary.RunID)

	matched := 0
	if summary.Matching != nil {
		matched = summary.Matching.MatchCount()
	}

	report.add("payments ingested: %d", summary.TotalPayments)
	report.add("external records ingested: %d", summary.TotalExternals)
	report.add("matched pairs: %d", matched)
	report.add("match rate: %.1f%%", summary.MatchRate*100)
	report.add("resolution rate: %.1f%%", summary.ResolutionRate*100)
	report.add("duration: %s", summary.Duration)

	report.Fields["match_rate"] = fmt.Sprintf("%.4f", summary.MatchRate)
	report.Fields["resolution_rate"] = fmt.Sprintf("%.4f", summary.ResolutionRate)
}

func (g *StandardGenerator) renderMatches(report *Report, summary *models.ReconciliationSummary) {
	if summary.Matching == nil {
		return
	}

	report.add("-- matches (strategy: %s) --", summary.Matching.Strategy)
	for _, match := range summary.Matching.Matches {
		report.add("%s <-> %s confidence %.3f (%s)",
			match.Payment.TransactionID, match.External.ReferenceID, match.Confidence, match.Reason)
	}
	for _, payment := range summary.Matching.UnmatchedPayments {
		report.add("unmatched payment: %s (%s %s)", payment.TransactionID, payment.Amount, payment.Currency)
	}
	for _, external := range summary.Matching.UnmatchedExternals {
		report.add("unmatched external: %s (%s %s)", external.ReferenceID, external.Amount, external.Currency)
	}
}

func (g *StandardGenerator) renderDiscrepancies(report *Report, summary *models.ReconciliationSummary) {
	if report.Title == "" {
		report.Title = fmt.Sprintf("Discrepancy Report (run %s)", summary.RunID)
	}

	if summary.Discrepancy == nil || len(summary.Discrepancy.Discrepancies) == 0 {
		report.add("no discrepancies detected")
		return
	}

	report.add("-- discrepancies: %d --", summary.Discrepancy.DiscrepancyCount())
	for _, d := range summary.Discrepancy.Discrepancies {
		report.add("[%s] %s: %s", d.Severity, d.Type, d.Description)
	}

	for _, dType := range sortedTypeKeys(summary.Discrepancy.CountsByType) {
		report.Fields["discrepancy."+string(dType)] = fmt.Sprintf("%d", summary.Discrepancy.CountsByType[dType])
	}
}

func (g *StandardGenerator) renderResolutions(report *Report, summary *models.ReconciliationSummary) {
	if summary.Resolution == nil {
		return
	}

	report.add("-- resolutions (strategy: %s) --", summary.Resolution.Strategy)
	report.add("resolved: %d, pending: %d", summary.Resolution.ResolvedCount, summary.Resolution.PendingCount)
	for _, resolution := range summary.Resolution.Resolutions {
		report.add("%s -> %s (resolved: %t) %s",
			resolution.DiscrepancyID, resolution.Action, resolution.Resolved, resolution.Notes)
	}
}

// renderExceptions lists only what still needs a human: unresolved
// discrepancies of high or critical severity.
func (g *StandardGenerator) renderExceptions(report *Report, summary *models.ReconciliationSummary) {
	report.Title = fmt.Sprintf("Exception Report (run %s)", summary.RunID)

	if summary.Discrepancy == nil {
		report.add("no exceptions")
		return
	}

	count := 0
	for _, d := range summary.Discrepancy.Discrepancies {
		if !d.Severity.AtLeast(models.SeverityHigh) {
			continue
		}
		if summary.Resolution != nil {
			if resolution, ok := summary.Resolution.ByDiscrepancy[d.ID]; ok && resolution.Resolved {
				continue
			}
		}
		count++
		report.add("[%s] %s: %s", d.Severity, d.Type, d.Description)
	}

	if count == 0 {
		report.add("no exceptions")
	}
	report.Fields["exception_count"] = fmt.Sprintf("%d", count)
}

func (g *StandardGenerator) renderTrend(report *Report, metrics models.MetricsSnapshot) {
	report.Title = "Reconciliation Trend Report"

	report.add("total runs: %d", metrics.TotalRuns)
	report.add("lifetime payments: %d", metrics.TotalPayments)
	report.add("lifetime external records: %d", metrics.TotalExternals)
	report.add("lifetime matches: %d", metrics.TotalMatches)
	report.add("average match rate: %.1f%%", metrics.AverageMatchRate*100)
	report.add("average resolution rate: %.1f%%", metrics.AverageResolutionRate*100)
}

func (g *StandardGenerator) renderAuditTrail(report *Report, summary *models.ReconciliationSummary) {
	report.Title = fmt.Sprintf("Audit Trail (run %s)", summary.RunID)

	report.add("run %s started %s completed %s",
		summary.RunID,
		summary.StartedAt.Format(time.RFC3339),
		summary.CompletedAt.Format(time.RFC3339))

	if summary.Matching != nil {
		report.add("matching strategy: %s", summary.Matching.Strategy)
		for _, match := range summary.Matching.Matches {
			report.add("matched %s to %s at confidence %.3f because: %s",
				match.Payment.TransactionID, match.External.ReferenceID, match.Confidence, match.Reason)
		}
	}

	if summary.Discrepancy != nil {
		for _, d := range summary.Discrepancy.Discrepancies {
			report.add("detected %s %s at %s: %s", d.Severity, d.Type, d.DetectedAt.Format(time.RFC3339), d.Description)
		}
	}

	if summary.Resolution != nil {
		report.add("resolution strategy: %s", summary.Resolution.Strategy)
		for _, resolution := range summary.Resolution.Resolutions {
			report.add("resolved %s as %s by %s at %s",
				resolution.DiscrepancyID, resolution.Action, resolution.ResolvedBy,
				resolution.ResolvedAt.Format(time.RFC3339))
		}
	}
}

func (g *StandardGenerator) renderPerformance(report *Report, summary *models.ReconciliationSummary, metrics models.MetricsSnapshot) {
	report.Title = fmt.Sprintf("Performance Report (run %s)", summary.RunID)

	total := summary.TotalPayments + summary.TotalExternals
	report.add("records processed: %d", total)
	report.add("duration: %s", summary.Duration)
	if summary.Duration > 0 {
		report.add("records per second: %.0f", float64(total)/summary.Duration.Seconds())
	}
	report.add("lifetime runs: %d", metrics.TotalRuns)
}

func (r *Report) add(format string, args ...interface{}) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

func sortedTypeKeys(counts map[models.DiscrepancyType]int) []models.DiscrepancyType {
	keys := make([]models.DiscrepancyType, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// WriteText renders the report as indented text
func WriteText(w io.Writer, report *Report) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n", report.Title, strings.Repeat("=", len(report.Title))); err != nil {
		return err
	}
	for _, line := range report.Lines {
		if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON renders the report as indented JSON
func WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
