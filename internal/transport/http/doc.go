// Package http implements the HTTP handlers of the SilverPulse web service.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result.
//
// # Routes
//
//	GET  /api/dashboard             latest snapshot (503 before the first refresh)
//	POST /api/dashboard/refresh     run a refresh cycle, ?force=true bypasses the cache
//	GET  /api/dashboard/indicators  derived indicators of the latest snapshot
//	GET  /api/history               stored entries, ?from= and ?to= as YYYY-MM-DD
//	GET  /api/history/export        the same range as a CSV download
//	GET  /api/sources               adapter status and cache statistics
//	GET  /api/health[/ready|/live]  health probes
//	GET  /api/version               build information
//	GET  /metrics                   Prometheus exposition
//	GET  /ws                        snapshot push channel
//
// # Error Handling
//
// All errors are rendered as RFC 7807 Problem Details by
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/dashboard/no-snapshot",
//	    "title": "Service Unavailable",
//	    "status": 503,
//	    "detail": "No refresh has completed yet",
//	    "instance": "/api/dashboard"
//	}
//
// # Testing
//
// Handlers are tested with httptest against chi routers and a testify
// mock of the dashboard service.
package http
