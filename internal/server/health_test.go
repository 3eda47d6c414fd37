package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "1.2.3")

	rr := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func readiness(t *testing.T, h *HealthChecker) (int, HealthResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func TestHealthChecker_Readiness(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc, "1.2.3")

	code, resp := readiness(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"ready": "ok", "shutdown": "ok", "composer": "ok"}, resp.Checks)

	h.SetReady(false)
	code, resp = readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, resp.Checks["ready"])

	h.SetReady(true)
	require.NoError(t, sc.Shutdown())
	code, resp = readiness(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusNotReady, resp.Status)
	assert.Equal(t, healthStatusShuttingDown, resp.Checks["shutdown"])
}

func TestHealthChecker_ReadinessWithoutComposer(t *testing.T) {
	code, resp := readiness(t, NewHealthChecker(nil, "1.2.3"))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusMissing, resp.Checks["composer"])
}

func TestHealthChecker_DetailedReportsSources(t *testing.T) {
	sc := newTestServerContext(t, WithSourceReport(func() map[string]string {
		return map[string]string{
			"news":      SourceConfigured,
			"weather":   SourceMissingKey,
			"expansion": SourceDisabled,
			"calendar":  SourceNotAuthorized,
			"mail":      SourceConfigured,
		}
	}))
	h := NewHealthChecker(sc, "1.2.3")

	rr := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.StartedAt)
	assert.Equal(t, "ok", resp.Checks["composer"])
	assert.Equal(t, SourceMissingKey, resp.Sources["weather"])
	assert.Equal(t, SourceNotAuthorized, resp.Sources["calendar"])
	assert.Len(t, resp.Sources, 5)
}

func TestHealthChecker_DetailedWhileShuttingDown(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc, "1.2.3")
	require.NoError(t, sc.Shutdown())

	rr := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusShuttingDown, resp.Status)
	assert.Empty(t, resp.Sources)
}
