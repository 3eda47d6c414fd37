package server

import (
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusMissing      = "missing"
)

// Source states reported by the detailed health endpoint. A source that is
// not configured still answers with its fallback text.
const (
	SourceConfigured    = "configured"
	SourceMissingKey    = "missing api key"
	SourceDisabled      = "disabled"
	SourceNoCredentials = "missing oauth client"
	SourceNotAuthorized = "not authorized"
)

// SourceReport maps briefing sources (news, weather, calendar, mail and
// expansion) to one of the Source* states.
type SourceReport func() map[string]string

// HealthChecker serves liveness, readiness and the detailed briefing status.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	startTime time.Time
	version   string
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil,
// in which case only liveness is meaningful.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		sc:        sc,
		startTime: time.Now(),
		version:   version,
	}
	h.ready.Store(true)
	return h
}

// SetReady flips the readiness state, e.g. to drain before shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness state.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime"`
	StartedAt string            `json:"started_at"`
	Checks    map[string]string `json:"checks"`
	Sources   map[string]string `json:"sources,omitempty"`
}

// checks evaluates readiness. The status is healthStatusOK only when every
// check passed; otherwise it is the first failure in ready, shutdown,
// composer order.
func (h *HealthChecker) checks() (map[string]string, string) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
		"composer": healthStatusOK,
	}
	status := healthStatusOK
	fail := func(name, state, overall string) {
		checks[name] = state
		if status == healthStatusOK {
			status = overall
		}
	}

	if !h.ready.Load() {
		fail("ready", healthStatusNotReady, healthStatusNotReady)
	}
	if h.sc != nil && h.sc.IsShutdown() {
		fail("shutdown", healthStatusShuttingDown, healthStatusShuttingDown)
	}
	if h.sc == nil || h.sc.Composer() == nil {
		fail("composer", healthStatusMissing, healthStatusNotReady)
	}
	return checks, status
}

// LivenessHandler serves /healthz. It only tells whether the process answers.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz: 200 while briefings can be composed,
// 503 otherwise.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.checks()
		code := http.StatusOK
		if status != healthStatusOK {
			code = http.StatusServiceUnavailable
			status = healthStatusNotReady
		}
		writeJSON(w, code, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed with uptime, readiness
// checks and the state of every briefing source.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.checks()
		code := http.StatusOK
		if status != healthStatusOK {
			code = http.StatusServiceUnavailable
		}

		var sources map[string]string
		if h.sc != nil && h.sc.sources != nil {
			sources = h.sc.sources()
		}

		writeJSON(w, code, DetailedHealthResponse{
			Status:    status,
			Version:   h.version,
			Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
			StartedAt: h.startTime.UTC().Format(time.RFC3339),
			Checks:    checks,
			Sources:   sources,
		})
	})
}

// RegisterHealthEndpoints adds /healthz, /readyz and /healthz/detailed to mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
}
