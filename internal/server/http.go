package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/agentpark/internal/instrumentation"
	"github.com/teemow/agentpark/internal/logging"
)

const (
	// DefaultAddr is the default listen address of the briefing server.
	DefaultAddr = ":8000"

	// RequestIDHeader carries the request ID in and out.
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength bounds client-supplied request IDs.
	maxRequestIDLength = 128

	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout leaves room for a briefing that waits on every source.
	DefaultWriteTimeout = 2 * time.Minute
)

type requestIDKey struct{}

// RequestIDFromContext returns the request ID set by the server middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// HTTPServer serves the briefing endpoints.
type HTTPServer struct {
	sc         *ServerContext
	health     *HealthChecker
	mu         sync.Mutex
	addr       string
	listener   net.Listener
	httpServer *http.Server
	mounts     map[string]http.Handler

	// stopRequests ends the request base context once draining is over.
	stopRequests context.CancelFunc
}

// NewHTTPServer creates the briefing HTTP server.
func NewHTTPServer(sc *ServerContext, addr, version string) *HTTPServer {
	if addr == "" {
		addr = DefaultAddr
	}
	// Requests keep the server context's values but not its cancellation:
	// a shutdown signal must let in-flight briefings finish while draining.
	baseCtx, stop := context.WithCancel(context.WithoutCancel(sc.Context()))
	s := &HTTPServer{
		sc:           sc,
		health:       NewHealthChecker(sc, version),
		addr:         addr,
		stopRequests: stop,
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}
	return s
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Mount serves h under pattern next to the briefing routes, e.g. the MCP
// endpoint at /mcp. It must be called before Start.
func (s *HTTPServer) Mount(pattern string, h http.Handler) {
	s.mu.Lock()
	if s.mounts == nil {
		s.mounts = make(map[string]http.Handler)
	}
	s.mounts[pattern] = h
	s.mu.Unlock()

	s.httpServer.Handler = s.Handler()
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /morning-briefing", s.handleBriefing)
	s.health.RegisterHealthEndpoints(mux)

	s.mu.Lock()
	for pattern, h := range s.mounts {
		mux.Handle(pattern, h)
	}
	s.mu.Unlock()

	return s.withRequestContext(mux)
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Agent Park is running"})
}

// BriefingResponse is the body of GET /morning-briefing.
type BriefingResponse struct {
	Summary string `json:"summary"`
}

func (s *HTTPServer) handleBriefing(w http.ResponseWriter, r *http.Request) {
	summary := s.sc.Composer().Compose(r.Context())
	writeJSON(w, http.StatusOK, BriefingResponse{Summary: summary})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestContext assigns a request ID and a server span, then logs and
// measures the request.
func (s *HTTPServer) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := routeLabel(r.URL.Path)

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx, span := instrumentation.StartSpan(ctx, r.Method+" "+path,
			attribute.String("http.request.method", r.Method),
			attribute.String("http.route", path),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		duration := time.Since(start)
		span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			instrumentation.SetSpanError(span, fmt.Errorf("status %d", rec.status))
		}
		s.sc.Metrics().RecordHTTPRequest(ctx, r.Method, path, rec.status, duration)

		attrs := []any{
			logging.RequestID(id),
			"method", r.Method,
			"path", path,
			"status", rec.status,
			logging.Duration(duration),
		}
		if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
			attrs = append(attrs, logging.TraceID(traceID))
		}
		s.sc.Logger().Debug("http request", attrs...)
	})
}

// routeLabel maps a request path onto a fixed set of metric labels.
func routeLabel(path string) string {
	switch path {
	case "/", "/morning-briefing", "/healthz", "/readyz", "/healthz/detailed", "/mcp":
		return path
	default:
		return "other"
	}
}

// Listen binds the server address.
func (s *HTTPServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()
	return nil
}

// Start listens (if needed) and serves until Shutdown.
func (s *HTTPServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.sc.Logger().Info("starting briefing server", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains in-flight requests. Requests
// still running when ctx expires are cancelled.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	defer s.stopRequests()

	s.mu.Lock()
	started := s.listener != nil
	s.mu.Unlock()

	if !started {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address; after Listen it is the bound address.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
