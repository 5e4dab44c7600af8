package engine

import (
	"payment-reconciliation-engine/internal/models"
)

// Listener receives engine lifecycle, match, discrepancy and resolution
// events. Delivery is asynchronous and best-effort: a slow or panicking
// listener never blocks the pipeline or the other listeners. Listeners are
// consumed by external logging/alerting and are never required for
// correctness.
type Listener interface {
	OnRunStarted(runID string)
	OnMatchFound(match *models.RecordMatch)
	OnDiscrepancyDetected(d *models.Discrepancy)
	OnDiscrepancyResolved(d *models.Discrepancy, resolution models.DiscrepancyResolution)
	OnRunCompleted(summary *models.ReconciliationSummary)
	OnRunFailed(runID string, err error)
}

// NopListener implements Listener with no-ops; embed it to receive only the
// events you care about.
type NopListener struct{}

func (NopListener) OnRunStarted(string)                                                     {}
func (NopListener) OnMatchFound(*models.RecordMatch)                                        {}
func (NopListener) OnDiscrepancyDetected(*models.Discrepancy)                               {}
func (NopListener) OnDiscrepancyResolved(*models.Discrepancy, models.DiscrepancyResolution) {}
func (NopListener) OnRunCompleted(*models.ReconciliationSummary)                            {}
func (NopListener) OnRunFailed(string, error)                                               {}

// notify fans an event out to every listener on its own goroutine, so a slow
// or stuck listener cannot delay the others. Each delivery is guarded against
// panics.
func (e *Engine) notify(fn func(Listener)) {
	e.mu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		go func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					e.log.WithField("panic", r).Warn("event listener panicked")
				}
			}()
			fn(l)
		}(l)
	}
}
