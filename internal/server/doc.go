// Package server exposes the morning briefing over HTTP.
//
// # Key Components
//
// ServerContext owns the briefing composer shared by the HTTP handlers and
// the MCP tools, and tracks shutdown.
//
// HTTPServer serves the briefing:
//   - GET / reports that the service is running
//   - GET /morning-briefing returns {"summary": "..."}
//   - /healthz, /readyz and /healthz/detailed (with per-source state) for orchestrators
//   - anything added with Mount, such as the MCP endpoint
//
// Every request gets an X-Request-ID and is counted in the HTTP metrics.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
