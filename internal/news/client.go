package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/teemow/agentpark/internal/expand"
	"github.com/teemow/agentpark/internal/logging"
)

const (
	// DefaultBaseURL is the NYT API root.
	DefaultBaseURL = "https://api.nytimes.com"

	// DefaultTimeout bounds a single section request.
	DefaultTimeout = 10 * time.Second

	globalFetchPerSection = 8
	globalMaxItems        = 3
	techFetch             = 10
	techMaxItems          = 4
)

// Sections read by TopNews.
const (
	SectionWorld      = "world"
	SectionPolitics   = "politics"
	SectionTechnology = "technology"
)

// ErrMissingAPIKey is returned when no NYT API key is configured.
var ErrMissingAPIKey = errors.New("news: NYT API key missing")

// NewLimiter returns a limiter matching the NYT allowance of five requests
// per minute, allowing one briefing's worth of requests in a burst.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(12*time.Second), 5)
}

// Client talks to the Top Stories API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	expander   expand.Expander
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

// WithLimiter replaces the request pacing limiter. A nil limiter disables
// pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithExpander expands each item's summary. The expander is wrapped so a
// failed expansion keeps the original summary.
func WithExpander(e expand.Expander) Option {
	return func(c *Client) {
		c.expander = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Top Stories client. An empty apiKey is allowed;
// TopNews then reports the missing key instead of fetching.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    NewLimiter(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.expander != nil {
		if _, ok := c.expander.(*expand.Fallback); !ok {
			c.expander = expand.WithFallback(c.expander, expand.WithLogger(c.logger))
		}
	}
	return c
}

// FetchSection returns the first max stories of a Top Stories section.
func (c *Client) FetchSection(ctx context.Context, section string, max int) ([]Story, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/svc/topstories/v2/%s.json?%s",
		c.baseURL, url.PathEscape(section), url.Values{"api-key": {c.apiKey}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the request URL, which includes the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("request for section %s failed: %w", section, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("section %s: unexpected status %s", section, resp.Status)
	}

	var body topStoriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("section %s: failed to decode response: %w", section, err)
	}

	stories := body.Results
	if max >= 0 && len(stories) > max {
		stories = stories[:max]
	}

	c.logger.Debug("fetched NYT section",
		"section", section,
		"count", len(stories))

	return stories, nil
}

// TopNews returns up to three global or political stories and up to four
// technology stories. It never fails; problems are reported as placeholder
// items.
func (c *Client) TopNews(ctx context.Context) Digest {
	if c.apiKey == "" {
		items := placeholder("(NYT API key missing)", "Add NYT_API_KEY in your .env file to enable news.")
		return Digest{GlobalPolitics: items, Technology: items, Fallback: true}
	}

	digest, err := c.topNews(ctx)
	if err != nil {
		c.logger.Warn("news unavailable", logging.Err(err))
		items := placeholder("News unavailable", "Error fetching NYT news: "+err.Error())
		return Digest{GlobalPolitics: items, Technology: items, Fallback: true}
	}
	return digest
}

func (c *Client) topNews(ctx context.Context) (Digest, error) {
	world, err := c.FetchSection(ctx, SectionWorld, globalFetchPerSection)
	if err != nil {
		return Digest{}, err
	}
	politics, err := c.FetchSection(ctx, SectionPolitics, globalFetchPerSection)
	if err != nil {
		return Digest{}, err
	}

	candidates := make([]Story, 0, len(world)+len(politics))
	candidates = append(candidates, world...)
	candidates = append(candidates, politics...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].published().After(candidates[j].published())
	})
	global := c.selectItems(ctx, candidates, globalMaxItems)

	tech, err := c.FetchSection(ctx, SectionTechnology, techFetch)
	if err != nil {
		return Digest{}, err
	}
	technology := c.selectItems(ctx, tech, techMaxItems)

	if len(global) == 0 {
		global = placeholder("No global or political stories available.",
			"The New York Times API did not return any global or political stories at this time.")
	}
	if len(technology) == 0 {
		technology = placeholder("No technology stories available.",
			"The New York Times API did not return any technology stories at this time.")
	}

	return Digest{GlobalPolitics: global, Technology: technology}, nil
}

// selectItems keeps stories in order, skipping empty and repeated titles,
// until max items are collected.
func (c *Client) selectItems(ctx context.Context, stories []Story, max int) []Item {
	seen := make(map[string]bool)
	var items []Item

	for _, s := range stories {
		if len(items) >= max {
			break
		}
		title := strings.TrimSpace(s.Title)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true

		summary := RichSummary(s)
		if c.expander != nil {
			if expanded, err := c.expander.Expand(ctx, title, summary, s.URL); err == nil {
				summary = expanded
			}
		}

		items = append(items, Item{
			Ordinal: Ordinal(len(items)),
			Title:   title,
			Summary: summary,
			URL:     s.URL,
		})
	}
	return items
}
