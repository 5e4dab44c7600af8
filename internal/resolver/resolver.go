// Package resolver implements the pluggable discrepancy resolution policies.
//
// A ResolutionStrategy decides, per discrepancy, whether to auto-resolve,
// escalate, or leave the discrepancy pending. Strategies are pure policy:
// they never mutate the discrepancy. The Resolver wrapper memoizes outcomes
// so resolving the same discrepancy twice returns the identical resolution
// without side effects.
package resolver

import (
	"sync"
	"time"

	"payment-reconciliation-engine/internal/models"
)

// ResolutionStrategy is the pluggable policy contract
type ResolutionStrategy interface {
	// Name identifies the strategy in resolution records and summaries
	Name() string

	// Resolve produces the disposition for one discrepancy under the given settings
	Resolve(d *models.Discrepancy, settings models.ReconciliationSettings) models.DiscrepancyResolution
}

// Resolver wraps a strategy with an idempotency memo keyed by discrepancy id
type Resolver struct {
	mu       sync.Mutex
	strategy ResolutionStrategy
	resolved map[string]models.DiscrepancyResolution
}

// NewResolver creates a resolver around the given strategy
func NewResolver(strategy ResolutionStrategy) *Resolver {
	return &Resolver{
		strategy: strategy,
		resolved: make(map[string]models.DiscrepancyResolution),
	}
}

// Strategy returns the wrapped strategy
func (r *Resolver) Strategy() ResolutionStrategy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.strategy
}

// SetStrategy swaps the wrapped strategy. Already-recorded resolutions are
// kept so idempotency holds across strategy changes.
func (r *Resolver) SetStrategy(strategy ResolutionStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = strategy
}

// Resolve returns the recorded resolution if the discrepancy was already
// resolved, otherwise asks the strategy and records the outcome.
func (r *Resolver) Resolve(d *models.Discrepancy, settings models.ReconciliationSettings) models.DiscrepancyResolution {
	r.mu.Lock()
	if existing, ok := r.resolved[d.ID]; ok {
		r.mu.Unlock()
		return existing
	}
	strategy := r.strategy
	r.mu.Unlock()

	resolution := strategy.Resolve(d, settings)
	resolution.DiscrepancyID = d.ID
	if resolution.ResolvedAt.IsZero() {
		resolution.ResolvedAt = time.Now().UTC()
	}

	r.mu.Lock()
	// Another caller may have raced us; the first recorded outcome wins
	if existing, ok := r.resolved[d.ID]; ok {
		r.mu.Unlock()
		return existing
	}
	r.resolved[d.ID] = resolution
	r.mu.Unlock()

	return resolution
}

// ResolveAll resolves a batch of discrepancies and aggregates the stage
// result. Resolutions run concurrently, bounded by settings.WorkerBudget;
// result order follows the input order regardless of completion order.
func (r *Resolver) ResolveAll(discrepancies []*models.Discrepancy, settings models.ReconciliationSettings) *models.ResolutionResult {
	result := &models.ResolutionResult{
		Strategy:       r.Strategy().Name(),
		CountsByAction: make(map[models.ResolutionAction]int),
		ByDiscrepancy:  make(map[string]models.DiscrepancyResolution),
	}

	resolutions := make([]models.DiscrepancyResolution, len(discrepancies))

	workers := settings.WorkerBudget
	if workers < 1 {
		workers = 1
	}
	if workers <= 1 || len(discrepancies) <= 1 {
		for i, d := range discrepancies {
			resolutions[i] = r.Resolve(d, settings)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i, d := range discrepancies {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, d *models.Discrepancy) {
				defer wg.Done()
				defer func() { <-sem }()
				resolutions[i] = r.Resolve(d, settings)
			}(i, d)
		}
		wg.Wait()
	}

	for i, resolution := range resolutions {
		result.Resolutions = append(result.Resolutions, resolution)
		result.CountsByAction[resolution.Action]++
		result.ByDiscrepancy[discrepancies[i].ID] = resolution

		if resolution.Resolved {
			result.ResolvedCount++
		} else {
			result.PendingCount++
		}
	}

	return result
}
