// Package operations runs the source adapters of one refresh cycle.
//
// The Executor dispatches every adapter concurrently, applies a per-adapter
// RetryPolicy with constant backoff, bounds each attempt with its own
// deadline and recovers adapter panics. Successful results are kept in a
// ResultCache keyed by adapter id and reused while fresh; failures are never
// cached.
//
//	exec := operations.NewExecutor(adapters, cfg.Sources, metrics, logger)
//	outcomes := exec.FetchAll(ctx, false)
//	if o := outcomes[sources.IDWarehouse]; o.NotFound() {
//		// o.Err explains why
//	}
package operations
