// Package weather reads current conditions from the OpenWeatherMap API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/agentpark/internal/logging"
)

const (
	// DefaultBaseURL is the OpenWeatherMap API root.
	DefaultBaseURL = "https://api.openweathermap.org"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	// Default coordinates (San Francisco).
	DefaultLat = 37.7749
	DefaultLon = -122.4194

	// MissingKeySummary is reported instead of a forecast when no key is set.
	MissingKeySummary = "(Weather API key missing – add WEATHER_API_KEY in .env)"

	// UnavailableSummary is reported when the forecast cannot be fetched.
	UnavailableSummary = "weather unavailable"
)

// ErrMissingAPIKey is returned when no OpenWeatherMap API key is configured.
var ErrMissingAPIKey = errors.New("weather: API key missing")

// Report is the current weather at the configured location. Temperatures
// are in degrees Fahrenheit, rounded half to even.
type Report struct {
	Description string `json:"description"`
	Temp        int    `json:"temp"`
	High        int    `json:"high"`
	Low         int    `json:"low"`
}

// String renders the report as spoken text.
func (r Report) String() string {
	return fmt.Sprintf("%s, currently %d°F with a high of %d and low of %d", r.Description, r.Temp, r.High, r.Low)
}

type currentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	// Main is nil when the response carries no readings.
	Main *struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
}

// Client fetches current weather for a fixed location.
type Client struct {
	apiKey     string
	lat, lon   float64
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a weather client for the given coordinates.
func NewClient(apiKey string, lat, lon float64, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		lat:        lat,
		lon:        lon,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches the current weather.
func (c *Client) Current(ctx context.Context) (Report, error) {
	if c.apiKey == "" {
		return Report{}, ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	q := url.Values{
		"lat":   {strconv.FormatFloat(c.lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(c.lon, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"imperial"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return Report{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Report{}, fmt.Errorf("weather request: unexpected status %s", resp.Status)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(body.Weather) == 0 {
		return Report{}, fmt.Errorf("weather response has no conditions")
	}
	if body.Main == nil {
		return Report{}, fmt.Errorf("weather response has no temperature readings")
	}

	return Report{
		Description: body.Weather[0].Description,
		Temp:        int(math.RoundToEven(body.Main.Temp)),
		High:        int(math.RoundToEven(body.Main.TempMax)),
		Low:         int(math.RoundToEven(body.Main.TempMin)),
	}, nil
}

// Summary returns the current weather as spoken text. It never fails: a
// missing key or any request problem yields a fixed placeholder.
func (c *Client) Summary(ctx context.Context) string {
	if c.apiKey == "" {
		return MissingKeySummary
	}

	report, err := c.Current(ctx)
	if err != nil {
		c.logger.Warn("weather unavailable", logging.Err(err))
		return UnavailableSummary
	}
	return report.String()
}
