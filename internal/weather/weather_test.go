package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, query *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		if query != nil {
			*query = r.URL.Query()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const clearSky = `{
  "weather": [{"id": 800, "main": "Clear", "description": "clear sky"}],
  "main": {"temp": 61.6, "feels_like": 60.1, "temp_min": 54.5, "temp_max": 66.5}
}`

func TestCurrent(t *testing.T) {
	var q url.Values
	srv := newTestServer(t, http.StatusOK, clearSky, &q)

	report, err := NewClient("k", 40.7128, -74.006, WithBaseURL(srv.URL)).Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Description: "clear sky", Temp: 62, High: 66, Low: 54}, report)
	assert.Equal(t, "40.7128", q.Get("lat"))
	assert.Equal(t, "-74.006", q.Get("lon"))
	assert.Equal(t, "k", q.Get("appid"))
	assert.Equal(t, "imperial", q.Get("units"))
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, clearSky, nil)

	got := NewClient("k", DefaultLat, DefaultLon, WithBaseURL(srv.URL)).Summary(context.Background())
	assert.Equal(t, "clear sky, currently 62°F with a high of 66 and low of 54", got)
}

func TestSummary_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		status int
		body   string
		want   string
	}{
		{"missing key", " ", http.StatusOK, clearSky, MissingKeySummary},
		{"unauthorized", "k", http.StatusUnauthorized, `{"cod": 401}`, UnavailableSummary},
		{"bad json", "k", http.StatusOK, `{`, UnavailableSummary},
		{"no conditions", "k", http.StatusOK, `{"weather": [], "main": {"temp": 50}}`, UnavailableSummary},
		{"no readings", "k", http.StatusOK, `{"weather": [{"description": "clear sky"}]}`, UnavailableSummary},
		{"null readings", "k", http.StatusOK, `{"weather": [{"description": "clear sky"}], "main": null}`, UnavailableSummary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			got := NewClient(tt.key, DefaultLat, DefaultLon, WithBaseURL(srv.URL)).Summary(context.Background())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrent_MissingReadings(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"weather": [{"description": "clear sky"}]}`, nil)

	_, err := NewClient("k", 0, 0, WithBaseURL(srv.URL)).Current(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no temperature readings")
}

func TestCurrent_MissingKey(t *testing.T) {
	_, err := NewClient("", 0, 0).Current(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestCurrent_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient("very-secret", 0, 0, WithBaseURL(srv.URL)).Current(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "very-secret")
}
