package models

import (
	"sync"
)

// ReconciliationMetrics accumulates monotonically across the engine's
// lifetime. It is the only state mutated by the pipeline while read by
// callers, so every update happens under the mutex. Metrics are never reset
// except by an explicit Reset call.
type ReconciliationMetrics struct {
	mu sync.Mutex

	totalRuns             int64
	totalPayments         int64
	totalExternals        int64
	totalMatches          int64
	totalDiscrepancies    int64
	totalResolutions      int64
	averageMatchRate      float64
	averageResolutionRate float64
	discrepanciesByType   map[DiscrepancyType]int64
	resolutionsByAction   map[ResolutionAction]int64
}

// MetricsSnapshot is an immutable copy of the metrics at a point in time
type MetricsSnapshot struct {
	TotalRuns             int64                     `json:"total_runs"`
	TotalPayments         int64                     `json:"total_payments"`
	TotalExternals        int64                     `json:"total_externals"`
	TotalMatches          int64                     `json:"total_matches"`
	TotalDiscrepancies    int64                     `json:"total_discrepancies"`
	TotalResolutions      int64                     `json:"total_resolutions"`
	AverageMatchRate      float64                   `json:"average_match_rate"`
	AverageResolutionRate float64                   `json:"average_resolution_rate"`
	DiscrepanciesByType   map[DiscrepancyType]int64 `json:"discrepancies_by_type"`
	ResolutionsByAction   map[ResolutionAction]int64 `json:"resolutions_by_action"`
}

// NewReconciliationMetrics creates an empty metrics accumulator
func NewReconciliationMetrics() *ReconciliationMetrics {
	return &ReconciliationMetrics{
		discrepanciesByType: make(map[DiscrepancyType]int64),
		resolutionsByAction: make(map[ResolutionAction]int64),
	}
}

// RecordRun folds one completed run summary into the lifetime counters.
// Rates update as a running average: newAvg = (oldAvg*(n-1) + thisRun) / n.
func (m *ReconciliationMetrics) RecordRun(summary *ReconciliationSummary) {
	if summary == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRuns++
	n := float64(m.totalRuns)

	m.totalPayments += int64(summary.TotalPayments)
	m.totalExternals += int64(summary.TotalExternals)
	m.averageMatchRate = (m.averageMatchRate*(n-1) + summary.MatchRate) / n
	m.averageResolutionRate = (m.averageResolutionRate*(n-1) + summary.ResolutionRate) / n

	if summary.Matching != nil {
		m.totalMatches += int64(summary.Matching.MatchCount())
	}

	if summary.Discrepancy != nil {
		m.totalDiscrepancies += int64(summary.Discrepancy.DiscrepancyCount())
		for dType, count := range summary.Discrepancy.CountsByType {
			m.discrepanciesByType[dType] += int64(count)
		}
	}

	if summary.Resolution != nil {
		m.totalResolutions += int64(len(summary.Resolution.Resolutions))
		for action, count := range summary.Resolution.CountsByAction {
			m.resolutionsByAction[action] += int64(count)
		}
	}
}

// Snapshot returns an immutable copy of the current counters
func (m *ReconciliationMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType := make(map[DiscrepancyType]int64, len(m.discrepanciesByType))
	for k, v := range m.discrepanciesByType {
		byType[k] = v
	}

	byAction := make(map[ResolutionAction]int64, len(m.resolutionsByAction))
	for k, v := range m.resolutionsByAction {
		byAction[k] = v
	}

	return MetricsSnapshot{
		TotalRuns:             m.totalRuns,
		TotalPayments:         m.totalPayments,
		TotalExternals:        m.totalExternals,
		TotalMatches:          m.totalMatches,
		TotalDiscrepancies:    m.totalDiscrepancies,
		TotalResolutions:      m.totalResolutions,
		AverageMatchRate:      m.averageMatchRate,
		AverageResolutionRate: m.averageResolutionRate,
		DiscrepanciesByType:   byType,
		ResolutionsByAction:   byAction,
	}
}

// Reset clears all counters. Explicit operator action only.
func (m *ReconciliationMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRuns = 0
	m.totalPayments = 0
	m.totalExternals = 0
	m.totalMatches = 0
	m.totalDiscrepancies = 0
	m.totalResolutions = 0
	m.averageMatchRate = 0
	m.averageResolutionRate = 0
	m.discrepanciesByType = make(map[DiscrepancyType]int64)
	m.resolutionsByAction = make(map[ResolutionAction]int64)
}
