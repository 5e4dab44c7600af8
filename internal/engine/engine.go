// Package engine provides the reconciliation orchestrator: it owns the
// ingestion buffers, the lifecycle state machine, the strategy wiring, the
// asynchronous run coordination, metrics accumulation and event fan-out.
//
// One Engine instance serves one reconciliation context. At most one run is
// in flight at a time; starting a second run while one is processing is
// rejected synchronously with a descriptive conflict error rather than
// queued or blocked.
//
// Example usage:
//
//	eng := engine.New(models.DefaultSettings())
//	eng.IngestInternalRecords(payments)
//	eng.IngestExternalRecords(externals)
//	eng.SetMatchingStrategy(matcher.NewFuzzyStrategy(nil))
//
//	handle, err := eng.StartReconciliation()
//	if err != nil { ... }
//	summary, err := handle.WaitTimeout(30 * time.Second)
package engine

import (
	"fmt"
	"sync"
	"time"

	"payment-reconciliation-engine/internal/analyzer"
	"payment-reconciliation-engine/internal/matcher"
	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/internal/reporting"
	"payment-reconciliation-engine/internal/resolver"
	"payment-reconciliation-engine/pkg/errors"
	"payment-reconciliation-engine/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine orchestrates the Match, Analyze, Resolve and Summarize pipeline
type Engine struct {
	mu     sync.Mutex
	paused *sync.Cond

	state     State
	payments  []*models.PaymentRecord
	externals []*models.ExternalRecord

	matching  matcher.MatchingStrategy
	pipeline  Pipeline
	resolving *resolver.Resolver
	reporting reporting.Strategy

	settings models.ReconciliationSettings
	metrics  *models.ReconciliationMetrics

	listeners   []Listener
	lastSummary *models.ReconciliationSummary
	lastErr     error

	analyzer *analyzer.Analyzer
	log      logger.Logger
}

// IngestResult reports the outcome of one ingestion call. Rejected records
// are counted with their reasons; partial success is never an error.
type IngestResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Reasons  []string `json:"reasons,omitempty"`
}

// New creates an engine with the given settings and default strategies:
// fuzzy matching, the full pipeline, automatic resolution and the standard
// report generator.
func New(settings models.ReconciliationSettings) *Engine {
	e := &Engine{
		state:     StateIdle,
		matching:  matcher.NewFuzzyStrategy(nil),
		pipeline:  FullPipeline{},
		resolving: resolver.NewResolver(resolver.NewAutomaticStrategy()),
		reporting: reporting.NewStandardGenerator(),
		settings:  settings,
		metrics:   models.NewReconciliationMetrics(),
		analyzer:  analyzer.New(),
		log:       logger.GetGlobalLogger().WithComponent("engine"),
	}
	e.paused = sync.NewCond(&e.mu)
	return e
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError returns the preserved failure reason of the most recent failed run
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// LastSummary returns the most recent completed run summary, or nil
func (e *Engine) LastSummary() *models.ReconciliationSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSummary
}

// IngestInternalRecords adds payment records to the engine's buffers.
// Records missing required identifiers or failing validation are rejected
// and counted. Valid in any state except while a run is in flight.
func (e *Engine) IngestInternalRecords(records []*models.PaymentRecord) (*IngestResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.isRunning() {
		return nil, errors.ConflictError(errors.CodeIngestionLocked, e.state.String())
	}

	result := &IngestResult{}
	for i, record := range records {
		if record == nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("record %d: nil record", i))
			continue
		}
		if err := record.Validate(); err != nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		e.payments = append(e.payments, record)
		result.Accepted++
	}

	e.log.WithFields(logger.Fields{
		"accepted": result.Accepted,
		"rejected": result.Rejected,
	}).Debug("ingested internal records")

	return result, nil
}

// IngestExternalRecords adds external records to the engine's buffers, with
// the same rejection semantics as IngestInternalRecords.
func (e *Engine) IngestExternalRecords(records []*models.ExternalRecord) (*IngestResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.isRunning() {
		return nil, errors.ConflictError(errors.CodeIngestionLocked, e.state.String())
	}

	result := &IngestResult{}
	for i, record := range records {
		if record == nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("record %d: nil record", i))
			continue
		}
		if err := record.Validate(); err != nil {
			result.Rejected++
			result.Reasons = append(result.Reasons, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		e.externals = append(e.externals, record)
		result.Accepted++
	}

	e.log.WithFields(logger.Fields{
		"accepted": result.Accepted,
		"rejected": result.Rejected,
	}).Debug("ingested external records")

	return result, nil
}

// ClearRecords empties the ingestion buffers. Rejected while a run is in flight.
func (e *Engine) ClearRecords() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.isRunning() {
		return errors.ConflictError(errors.CodeIngestionLocked, e.state.String())
	}

	e.payments = nil
	e.externals = nil
	return nil
}

// Strategy setters. Permitted at any time; they take effect on the next run
// and never affect a run already processing, which snapshots its strategies
// at start.

// SetMatchingStrategy swaps the matching strategy for subsequent runs
func (e *Engine) SetMatchingStrategy(s matcher.MatchingStrategy) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matching = s
}

// SetReconciliationStrategy swaps the pipeline deciding which stages run
func (e *Engine) SetReconciliationStrategy(p Pipeline) {
	if p == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pipeline = p
}

// SetDiscrepancyResolutionStrategy swaps the resolution policy. Recorded
// resolutions are kept so re-resolving stays idempotent.
func (e *Engine) SetDiscrepancyResolutionStrategy(s resolver.ResolutionStrategy) {
	if s == nil {
		return
	}
	e.resolving.SetStrategy(s)
}

// SetReportingStrategy swaps the report generator
func (e *Engine) SetReportingStrategy(s reporting.Strategy) {
	if s == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporting = s
}

// UpdateSettings replaces the shared settings. An in-flight run keeps the
// snapshot it took at start; the new settings apply from the next run.
func (e *Engine) UpdateSettings(settings models.ReconciliationSettings) error {
	if err := settings.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "settings", settings, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = settings
	return nil
}

// Settings returns a snapshot of the current settings
func (e *Engine) Settings() models.ReconciliationSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Clone()
}

// AddListener registers an event listener
func (e *Engine) AddListener(l Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Metrics returns a snapshot of the lifetime metrics
func (e *Engine) Metrics() models.MetricsSnapshot {
	return e.metrics.Snapshot()
}

// ResetMetrics clears the lifetime metrics. Explicit operator action.
func (e *Engine) ResetMetrics() {
	e.metrics.Reset()
}

// StartReconciliation begins an asynchronous run over the currently ingested
// record sets and returns an awaitable handle. Valid only when no run is in
// flight; a conflicting start is rejected synchronously.
func (e *Engine) StartReconciliation() (*RunHandle, error) {
	e.mu.Lock()

	if !e.state.canStartRun() {
		state := e.state
		e.mu.Unlock()
		return nil, errors.ConflictError(errors.CodeRunInProgress, state.String())
	}

	e.state = StateProcessing
	e.lastErr = nil

	// Snapshot everything the run needs once, at start, so mid-run mutations
	// of settings or strategies cannot tear the run.
	runID := uuid.NewString()
	settings := e.settings.Clone()
	matching := e.matching
	pipeline := e.pipeline
	reslv := e.resolving
	payments := make([]*models.PaymentRecord, len(e.payments))
	copy(payments, e.payments)
	externals := make([]*models.ExternalRecord, len(e.externals))
	copy(externals, e.externals)

	e.mu.Unlock()

	handle := newRunHandle(runID)

	e.log.WithFields(logger.Fields{
		"run_id":    runID,
		"payments":  len(payments),
		"externals": len(externals),
		"strategy":  matching.Name(),
		"pipeline":  pipeline.Name(),
	}).Info("reconciliation run started")

	e.notify(func(l Listener) { l.OnRunStarted(runID) })

	go e.run(handle, runID, settings, matching, pipeline, reslv, payments, externals)

	return handle, nil
}

// Pause suspends an in-flight run at its next stage boundary
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateProcessing {
		return errors.ConflictError(errors.CodeInvalidState, e.state.String())
	}

	e.state = StatePaused
	return nil
}

// Resume continues a paused run
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePaused {
		return errors.ConflictError(errors.CodeInvalidState, e.state.String())
	}

	e.state = StateProcessing
	e.paused.Broadcast()
	return nil
}

// GenerateReport renders the most recent summary plus lifetime metrics into
// a typed report. It never triggers a new reconciliation run.
func (e *Engine) GenerateReport(t reporting.ReportType) (*reporting.Report, error) {
	e.mu.Lock()
	summary := e.lastSummary
	generator := e.reporting
	e.mu.Unlock()

	if summary == nil {
		return nil, errors.ReportingError(errors.CodeNoSummary, string(t), nil)
	}

	report, err := generator.Generate(t, summary, e.metrics.Snapshot())
	if err != nil {
		return nil, errors.ReportingError(errors.CodeUnknownReportType, string(t), err)
	}

	return report, nil
}

// run executes the pipeline on its own goroutine. Any panic inside a stage
// transitions the engine to ERROR with the failure preserved; committed
// metrics from earlier runs are never touched by a failed run.
func (e *Engine) run(
	handle *RunHandle,
	runID string,
	settings models.ReconciliationSettings,
	matching matcher.MatchingStrategy,
	pipeline Pipeline,
	reslv *resolver.Resolver,
	payments []*models.PaymentRecord,
	externals []*models.ExternalRecord,
) {
	startedAt := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			err := errors.StrategyError(errors.CodePipelinePanic, "reconciliation pipeline",
				fmt.Errorf("panic: %v", r))
			e.fail(handle, runID, err)
		}
	}()

	// Stage 1: matching
	matchingResult := e.matchStage(matching, payments, externals)
	e.checkpoint()

	// Stage 2: discrepancy analysis
	var discrepancyResult *models.DiscrepancyResult
	if pipeline.AnalyzeEnabled() {
		discrepancyResult = e.analyzer.Analyze(payments, externals, matchingResult.Matches, settings)
		for _, d := range discrepancyResult.Discrepancies {
			d := d
			e.notify(func(l Listener) { l.OnDiscrepancyDetected(d) })
		}
	}
	e.checkpoint()

	// Stage 3: resolution
	var resolutionResult *models.ResolutionResult
	if pipeline.ResolveEnabled() && discrepancyResult != nil {
		resolutionResult = reslv.ResolveAll(discrepancyResult.Discrepancies, settings)
		for _, d := range discrepancyResult.Discrepancies {
			d := d
			resolution := resolutionResult.ByDiscrepancy[d.ID]
			e.notify(func(l Listener) { l.OnDiscrepancyResolved(d, resolution) })
		}
	}
	e.checkpoint()

	// Stage 4: summarize
	summary := e.summarize(runID, startedAt, payments, externals, matchingResult, discrepancyResult, resolutionResult)

	e.metrics.RecordRun(summary)

	e.mu.Lock()
	e.state = StateCompleted
	e.lastSummary = summary
	e.mu.Unlock()

	e.log.WithFields(logger.Fields{
		"run_id":     runID,
		"matched":    matchingResult.MatchCount(),
		"match_rate": summary.MatchRate,
		"duration":   summary.Duration,
	}).Info("reconciliation run completed")

	e.notify(func(l Listener) { l.OnRunCompleted(summary) })
	handle.complete(summary, nil)
}

// matchStage commits at most one match per record on either side: an
// external record consumed by one payment is excluded from the candidate
// sets of the remaining payments.
func (e *Engine) matchStage(
	matching matcher.MatchingStrategy,
	payments []*models.PaymentRecord,
	externals []*models.ExternalRecord,
) *models.MatchingResult {

	result := &models.MatchingResult{
		Strategy:           matching.Name(),
		TotalAmountMatched: decimal.Zero,
	}

	matchedExternals := make(map[string]bool, len(externals))
	matchedPayments := make(map[string]bool, len(payments))

	for _, payment := range payments {
		if matchedPayments[payment.TransactionID] {
			// Duplicate transaction id, the analyzer reports it
			continue
		}

		candidates := make([]*models.ExternalRecord, 0, len(externals))
		for _, external := range externals {
			if !matchedExternals[external.ReferenceID] {
				candidates = append(candidates, external)
			}
		}

		match, ok := matching.FindMatch(payment, candidates)
		if !ok {
			continue
		}

		matchedPayments[payment.TransactionID] = true
		matchedExternals[match.External.ReferenceID] = true
		result.Matches = append(result.Matches, match)
		result.TotalAmountMatched = result.TotalAmountMatched.Add(payment.Amount.Abs())

		found := match
		e.notify(func(l Listener) { l.OnMatchFound(found) })
	}

	for _, payment := range payments {
		if !matchedPayments[payment.TransactionID] {
			result.UnmatchedPayments = append(result.UnmatchedPayments, payment)
			matchedPayments[payment.TransactionID] = true
		}
	}
	for _, external := range externals {
		if !matchedExternals[external.ReferenceID] {
			result.UnmatchedExternals = append(result.UnmatchedExternals, external)
			matchedExternals[external.ReferenceID] = true
		}
	}

	return result
}

// summarize builds the immutable per-run snapshot
func (e *Engine) summarize(
	runID string,
	startedAt time.Time,
	payments []*models.PaymentRecord,
	externals []*models.ExternalRecord,
	matchingResult *models.MatchingResult,
	discrepancyResult *models.DiscrepancyResult,
	resolutionResult *models.ResolutionResult,
) *models.ReconciliationSummary {

	completedAt := time.Now().UTC()

	summary := &models.ReconciliationSummary{
		RunID:          runID,
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		Duration:       completedAt.Sub(startedAt),
		TotalPayments:  len(payments),
		TotalExternals: len(externals),
		MatchRate:      models.ComputeMatchRate(matchingResult.MatchCount(), len(payments)),
		Matching:       matchingResult,
		Discrepancy:    discrepancyResult,
		Resolution:     resolutionResult,
	}

	if resolutionResult != nil && discrepancyResult != nil {
		summary.ResolutionRate = models.ComputeResolutionRate(
			resolutionResult.ResolvedCount, discrepancyResult.DiscrepancyCount())
	} else if discrepancyResult != nil && discrepancyResult.DiscrepancyCount() > 0 {
		summary.ResolutionRate = 0
	} else {
		summary.ResolutionRate = 1
	}

	return summary
}

// fail transitions the engine to ERROR, preserving the failure reason. A
// subsequent StartReconciliation may retry from the accumulated record sets.
func (e *Engine) fail(handle *RunHandle, runID string, err error) {
	e.mu.Lock()
	e.state = StateError
	e.lastErr = err
	e.mu.Unlock()

	e.log.WithError(err).WithField("run_id", runID).Error("reconciliation run failed")

	e.notify(func(l Listener) { l.OnRunFailed(runID, err) })
	handle.complete(nil, err)
}

// checkpoint blocks between pipeline stages while the engine is paused
func (e *Engine) checkpoint() {
	e.mu.Lock()
	for e.state == StatePaused {
		e.paused.Wait()
	}
	e.mu.Unlock()
}
