package expand

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teemow/agentpark/internal/instrumentation"
	"github.com/teemow/agentpark/internal/logging"
)

// Expander turns a story's abstract into longer narrative text.
type Expander interface {
	Expand(ctx context.Context, title, abstract, sourceURL string) (string, error)
}

// Func adapts a plain function to the Expander interface.
type Func func(ctx context.Context, title, abstract, sourceURL string) (string, error)

// Expand implements Expander.
func (f Func) Expand(ctx context.Context, title, abstract, sourceURL string) (string, error) {
	return f(ctx, title, abstract, sourceURL)
}

// Fallback wraps an Expander so that expansion never fails.
type Fallback struct {
	next    Expander
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// WithLogger sets the logger used to report failed expansions.
func WithLogger(l *slog.Logger) FallbackOption {
	return func(f *Fallback) {
		f.logger = l
	}
}

// WithMetrics records each expansion as success or fallback.
func WithMetrics(m *instrumentation.Metrics) FallbackOption {
	return func(f *Fallback) {
		f.metrics = m
	}
}

// WithFallback returns an Expander that yields the unchanged abstract when e
// is nil, returns an error, panics or produces only whitespace. Its error
// result is always nil.
func WithFallback(e Expander, opts ...FallbackOption) *Fallback {
	f := &Fallback{
		next:   e,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Expand implements Expander.
func (f *Fallback) Expand(ctx context.Context, title, abstract, sourceURL string) (text string, err error) {
	if f.next == nil {
		return abstract, nil
	}

	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("text expansion panicked, using abstract", "panic", r)
			f.metrics.RecordExpansion(ctx, instrumentation.StatusFallback)
			text, err = abstract, nil
		}
	}()

	out, xerr := f.next.Expand(ctx, title, abstract, sourceURL)
	if xerr != nil {
		f.logger.Warn("text expansion failed, using abstract",
			"title", title,
			logging.Err(xerr))
		f.metrics.RecordExpansion(ctx, instrumentation.StatusFallback)
		return abstract, nil
	}

	out = strings.TrimSpace(out)
	if out == "" {
		f.logger.Debug("text expansion returned nothing, using abstract", "title", title)
		f.metrics.RecordExpansion(ctx, instrumentation.StatusFallback)
		return abstract, nil
	}

	f.metrics.RecordExpansion(ctx, instrumentation.StatusSuccess)
	return out, nil
}
