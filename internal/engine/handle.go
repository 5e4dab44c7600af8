package engine

import (
	"context"
	"time"

	"payment-reconciliation-engine/internal/models"
	"payment-reconciliation-engine/pkg/errors"
)

// RunHandle is the awaitable future returned by StartReconciliation. The
// pipeline closes the handle exactly once, with either a summary or an
// error. Waiting with a timeout is the caller's concern; the run itself
// always executes to completion or failure once started.
type RunHandle struct {
	runID   string
	done    chan struct{}
	summary *models.ReconciliationSummary
	err     error
}

func newRunHandle(runID string) *RunHandle {
	return &RunHandle{
		runID: runID,
		done:  make(chan struct{}),
	}
}

// RunID returns the unique id of the run this handle tracks
func (h *RunHandle) RunID() string {
	return h.runID
}

// Done returns a channel closed when the run finishes
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes or the context is cancelled. A context
// cancellation abandons the wait only; the run keeps executing.
func (h *RunHandle) Wait(ctx context.Context) (*models.ReconciliationSummary, error) {
	select {
	case <-h.done:
		return h.summary, h.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.CategoryConflict, errors.CodeInvalidState,
			"wait abandoned before run completion").
			WithContext("run_id", h.runID)
	}
}

// WaitTimeout blocks until the run finishes or the timeout elapses
func (h *RunHandle) WaitTimeout(timeout time.Duration) (*models.ReconciliationSummary, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return h.Wait(ctx)
}

// Summary returns the run outcome without blocking. The second return is
// false until the run has finished.
func (h *RunHandle) Summary() (*models.ReconciliationSummary, bool) {
	select {
	case <-h.done:
		return h.summary, true
	default:
		return nil, false
	}
}

// complete records the outcome and releases waiters
func (h *RunHandle) complete(summary *models.ReconciliationSummary, err error) {
	h.summary = summary
	h.err = err
	close(h.done)
}
