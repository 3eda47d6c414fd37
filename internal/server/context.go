package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/agentpark/internal/briefing"
	"github.com/teemow/agentpark/internal/instrumentation"
)

// ServerContext holds the state shared by the HTTP server and the MCP tools.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	composer *briefing.Composer
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	sources  SourceReport
	mu       sync.RWMutex
	shutdown bool
}

// ServerContextOption configures a ServerContext.
type ServerContextOption func(*ServerContext)

// WithMetrics sets the metrics recorder used by handlers and tools.
func WithMetrics(m *instrumentation.Metrics) ServerContextOption {
	return func(sc *ServerContext) {
		sc.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerContextOption {
	return func(sc *ServerContext) {
		sc.logger = l
	}
}

// WithSourceReport sets how the detailed health endpoint learns which
// briefing sources are configured.
func WithSourceReport(r SourceReport) ServerContextOption {
	return func(sc *ServerContext) {
		sc.sources = r
	}
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, composer *briefing.Composer, opts ...ServerContextOption) (*ServerContext, error) {
	if composer == nil {
		return nil, fmt.Errorf("briefing composer is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		composer: composer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Composer returns the briefing composer.
func (sc *ServerContext) Composer() *briefing.Composer {
	return sc.composer
}

// Metrics returns the metrics recorder; nil when metrics are disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
