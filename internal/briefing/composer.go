package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/agentpark/internal/instrumentation"
	"github.com/teemow/agentpark/internal/logging"
	"github.com/teemow/agentpark/internal/news"
	"github.com/teemow/agentpark/internal/weather"
)

// Fallback values substituted when a source fails.
const (
	WeatherUnavailable  = weather.UnavailableSummary
	CalendarUnavailable = "(calendar unavailable)"
	MailUnavailable     = "(mail unavailable)"
)

// WeatherSource describes current conditions.
type WeatherSource interface {
	Summary(ctx context.Context) string
}

// NewsSource lists top stories.
type NewsSource interface {
	TopNews(ctx context.Context) news.Digest
}

// CalendarSource lists events of the next day starting at now.
type CalendarSource interface {
	UpcomingEvents(ctx context.Context, now time.Time) ([]string, error)
}

// MailSource lists recent package notifications.
type MailSource interface {
	PackageUpdates(ctx context.Context) ([]string, error)
}

// Sources are the briefing's inputs. A nil source yields its fallback value.
type Sources struct {
	Weather  WeatherSource
	News     NewsSource
	Calendar CalendarSource
	Mail     MailSource
}

// Composer gathers the sources and renders the briefing.
type Composer struct {
	sources  Sources
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// Option configures a Composer.
type Option func(*Composer)

// WithClock sets the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// WithLocation sets the time zone of the briefing date and event times.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Composer) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = l
	}
}

// WithMetrics records compose and per-source metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Composer) {
		c.metrics = m
	}
}

// New creates a Composer.
func New(sources Sources, opts ...Option) *Composer {
	c := &Composer{
		sources:  sources,
		now:      time.Now,
		location: time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the briefing text. It never fails.
func (c *Composer) Compose(ctx context.Context) string {
	start := time.Now()
	ctx, span := instrumentation.StartSpan(ctx, "briefing.compose")
	defer span.End()

	text := Render(c.Gather(ctx))

	c.metrics.RecordCompose(ctx, time.Since(start))
	instrumentation.SetSpanSuccess(span)
	return text
}

// Gather calls every source in turn and returns their values, with fallbacks
// substituted for failed sources.
func (c *Composer) Gather(ctx context.Context) Briefing {
	now := c.now().In(c.location)
	b := Briefing{Date: now}

	b.Weather = c.Weather(ctx)
	b.News = c.News(ctx)
	b.Events = c.Events(ctx, now)
	b.Packages = c.Packages(ctx)

	return b
}

// Weather returns the weather summary or WeatherUnavailable.
func (c *Composer) Weather(ctx context.Context) string {
	summary := WeatherUnavailable
	c.fetch(ctx, instrumentation.SourceWeather, func(ctx context.Context) (int, bool, error) {
		if c.sources.Weather == nil {
			return 0, false, fmt.Errorf("no weather source configured")
		}
		summary = c.sources.Weather.Summary(ctx)
		fallback := summary == weather.UnavailableSummary || summary == weather.MissingKeySummary
		return 1, fallback, nil
	}, func(error) {
		summary = WeatherUnavailable
	})
	return summary
}

// News returns the top stories or a single "News unavailable" item.
func (c *Composer) News(ctx context.Context) news.Digest {
	var digest news.Digest
	c.fetch(ctx, instrumentation.SourceNews, func(ctx context.Context) (int, bool, error) {
		if c.sources.News == nil {
			return 0, false, fmt.Errorf("no news source configured")
		}
		digest = c.sources.News.TopNews(ctx)
		return len(digest.GlobalPolitics) + len(digest.Technology), digest.Fallback, nil
	}, func(err error) {
		items := []news.Item{{Ordinal: news.Ordinal(0), Title: "News unavailable", Summary: "Error fetching NYT news: " + err.Error()}}
		digest = news.Digest{GlobalPolitics: items, Technology: items}
	})
	return digest
}

// Events returns the next day's calendar lines or CalendarUnavailable.
func (c *Composer) Events(ctx context.Context, now time.Time) []string {
	var events []string
	c.fetch(ctx, instrumentation.SourceCalendar, func(ctx context.Context) (int, bool, error) {
		if c.sources.Calendar == nil {
			return 0, false, fmt.Errorf("no calendar source configured")
		}
		var err error
		events, err = c.sources.Calendar.UpcomingEvents(ctx, now)
		return len(events), false, err
	}, func(error) {
		events = []string{CalendarUnavailable}
	})
	return events
}

// Packages returns package notification lines or MailUnavailable.
func (c *Composer) Packages(ctx context.Context) []string {
	var packages []string
	c.fetch(ctx, instrumentation.SourceMail, func(ctx context.Context) (int, bool, error) {
		if c.sources.Mail == nil {
			return 0, false, fmt.Errorf("no mail source configured")
		}
		var err error
		packages, err = c.sources.Mail.PackageUpdates(ctx)
		return len(packages), false, err
	}, func(error) {
		packages = []string{MailUnavailable}
	})
	return packages
}

// fetch runs one source call under its own span. When fn errors or panics,
// onFail substitutes the fallback value.
func (c *Composer) fetch(ctx context.Context, source string, fn func(context.Context) (items int, fallback bool, err error), onFail func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartSourceSpan(ctx, source)
	defer span.End()
	logger := logging.WithSource(c.logger, source)

	items, fallback, err := safeCall(ctx, fn)
	duration := time.Since(start)

	if err != nil {
		onFail(err)
		logger.Warn("source failed, using fallback", logging.Err(err), logging.Duration(duration))
		instrumentation.SetSpanError(span, err)
		span.SetAttributes(attribute.Bool(instrumentation.SpanAttrFallback, true))
		c.metrics.RecordSourceFetch(ctx, source, instrumentation.StatusError, duration)
		return
	}

	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrItems, items),
		attribute.Bool(instrumentation.SpanAttrFallback, fallback),
	)
	instrumentation.SetSpanSuccess(span)

	status := instrumentation.StatusSuccess
	if fallback {
		status = instrumentation.StatusFallback
	}
	c.metrics.RecordSourceFetch(ctx, source, status, duration)
	logger.Debug("source fetched",
		logging.Status(status),
		logging.Duration(duration),
		"items", items)
}

func safeCall(ctx context.Context, fn func(context.Context) (int, bool, error)) (items int, fallback bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
