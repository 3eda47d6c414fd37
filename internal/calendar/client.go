package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/agentpark/internal/google"
)

const (
	// PrimaryCalendarID addresses the account's main calendar.
	PrimaryCalendarID = "primary"

	// UpcomingWindow is how far ahead UpcomingEvents looks.
	UpcomingWindow = 24 * time.Hour
)

// Client wraps the Google Calendar service
type Client struct {
	svc    *calendar.Service
	logger *slog.Logger
}

// NewClient creates a Calendar client authorized with the cached token of the
// calendar account. Extra options are passed to the underlying service.
func NewClient(ctx context.Context, provider google.HTTPClientProvider, opts ...option.ClientOption) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	httpClient, err := provider.HTTPClient(ctx, google.AccountCalendar)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth client for account %s: %w", google.AccountCalendar, err)
	}

	return NewClientWithOptions(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
}

// NewClientWithOptions creates a Calendar client from raw service options.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:    svc,
		logger: slog.Default(),
	}, nil
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// ListEvents lists single (expanded) events in a calendar within
// [timeMin, timeMax), ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	call := c.svc.Events.List(calendarID).
		Context(ctx).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", google.WrapError(err))
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}

	c.logger.Debug("listed calendar events",
		"calendar", calendarID,
		"count", len(summaries))

	return summaries, nil
}

// UpcomingEvents returns the primary calendar's events for the next 24 hours
// as "{start}: {title}" lines, with times shown in now's location.
func (c *Client) UpcomingEvents(ctx context.Context, now time.Time) ([]string, error) {
	events, err := c.ListEvents(ctx, PrimaryCalendarID, now, now.Add(UpcomingWindow))
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, e.Line(now.Location()))
	}
	return lines, nil
}
