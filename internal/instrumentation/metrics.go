package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod = "method"
	attrPath   = "path"
	attrStatus = "status"
	attrSource = "source"
	attrResult = "result"
	attrTool   = "tool"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a valid no-op recorder.
type Metrics struct {
	// Briefing metrics
	composeTotal        metric.Int64Counter
	composeDuration     metric.Float64Histogram
	sourceFetchTotal    metric.Int64Counter
	sourceFetchDuration metric.Float64Histogram
	expansionTotal      metric.Int64Counter

	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.composeTotal, err = meter.Int64Counter(
		"briefing_compose_total",
		metric.WithDescription("Total number of composed briefings"),
		metric.WithUnit("{briefing}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create briefing_compose_total counter: %w", err)
	}

	m.composeDuration, err = meter.Float64Histogram(
		"briefing_compose_duration_seconds",
		metric.WithDescription("End-to-end briefing compose duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create briefing_compose_duration_seconds histogram: %w", err)
	}

	m.sourceFetchTotal, err = meter.Int64Counter(
		"briefing_source_fetch_total",
		metric.WithDescription("Total number of briefing source fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create briefing_source_fetch_total counter: %w", err)
	}

	m.sourceFetchDuration, err = meter.Float64Histogram(
		"briefing_source_fetch_duration_seconds",
		metric.WithDescription("Briefing source fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create briefing_source_fetch_duration_seconds histogram: %w", err)
	}

	m.expansionTotal, err = meter.Int64Counter(
		"text_expansion_total",
		metric.WithDescription("Total number of abstract expansions"),
		metric.WithUnit("{expansion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create text_expansion_total counter: %w", err)
	}

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	return m, nil
}

// RecordCompose records one composed briefing and how long it took.
func (m *Metrics) RecordCompose(ctx context.Context, duration time.Duration) {
	if m == nil || m.composeTotal == nil || m.composeDuration == nil {
		return
	}

	m.composeTotal.Add(ctx, 1)
	m.composeDuration.Record(ctx, duration.Seconds())
}

// RecordSourceFetch records a fetch from one briefing source.
//
// Parameters:
//   - source: weather, news, calendar or mail
//   - status: "success", "error" or "fallback"
//   - duration: Time taken for the fetch
func (m *Metrics) RecordSourceFetch(ctx context.Context, source, status string, duration time.Duration) {
	if m == nil || m.sourceFetchTotal == nil || m.sourceFetchDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	}

	m.sourceFetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sourceFetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordExpansion records an abstract expansion attempt.
// Status should be "success" or "fallback".
func (m *Metrics) RecordExpansion(ctx context.Context, status string) {
	if m == nil || m.expansionTotal == nil {
		return
	}

	m.expansionTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "granted"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name and status.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
