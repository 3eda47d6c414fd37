// Package instrumentation provides OpenTelemetry instrumentation for agentpark.
//
// This package enables observability through:
//   - OpenTelemetry metrics for briefing sources, HTTP requests and OAuth refreshes
//   - Distributed tracing for every source fetch during a briefing
//   - Prometheus metrics export via /metrics on a dedicated port, served from a
//     registry owned by the Provider together with Go runtime and process metrics
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// Briefing Metrics:
//   - briefing_compose_total: Counter of composed briefings
//   - briefing_compose_duration_seconds: Histogram of end-to-end compose time
//   - briefing_source_fetch_total: Counter of source fetches by source and status
//   - briefing_source_fetch_duration_seconds: Histogram of source fetch durations
//   - text_expansion_total: Counter of abstract expansions by status
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// OAuth Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: agentpark)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordSourceFetch(ctx, instrumentation.SourceWeather, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
