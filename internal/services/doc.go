// Package services implements the refresh pipeline and health reporting
// behind the HTTP and WebSocket layers.
//
// DashboardService owns one refresh cycle: it runs every source adapter
// through the fetch executor, records the warehouse observation in the
// history store, backfills a short history, derives the indicators and
// publishes the result as an immutable domain.AppState. Cycles are
// serialized; readers always see a complete snapshot.
//
//	svc := services.NewDashboardService(services.DashboardDeps{
//	    Fetcher: executor,
//	    Reports: warehouse,
//	    Store:   store,
//	}, logger)
//	state, err := svc.Refresh(ctx, false, services.TriggerManual)
//
// HealthService backs the health, readiness and version endpoints.
package services
