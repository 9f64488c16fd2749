// Package httpserver provides the REST gateway over the queue read services,
// with SSE and WebSocket event streaming and a Prometheus /metrics endpoint.
//
// Example:
//
//	adapter := bull.New(bull.Options{})
//	_ = adapter.Connect(ctx, "redis://127.0.0.1:6379")
//	metrics := telemetry.New()
//	s := httpserver.New(queuesvc.New(adapter, logger, metrics), eventsvc.New(adapter, logger, metrics), metrics, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
