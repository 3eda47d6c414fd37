package briefing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/teemow/agentpark/internal/instrumentation/instrumentationtest"
	"github.com/teemow/agentpark/internal/news"
	"github.com/teemow/agentpark/internal/weather"
)

type fakeWeather struct {
	summary string
	panic   bool
}

func (f fakeWeather) Summary(context.Context) string {
	if f.panic {
		panic("weather exploded")
	}
	return f.summary
}

type fakeNews struct {
	digest news.Digest
	panic  bool
}

func (f fakeNews) TopNews(context.Context) news.Digest {
	if f.panic {
		panic("news exploded")
	}
	return f.digest
}

type fakeCalendar struct {
	events []string
	err    error
	panic  bool
	gotNow time.Time
}

func (f *fakeCalendar) UpcomingEvents(_ context.Context, now time.Time) ([]string, error) {
	f.gotNow = now
	if f.panic {
		panic("calendar exploded")
	}
	return f.events, f.err
}

type fakeMail struct {
	packages []string
	err      error
	panic    bool
}

func (f fakeMail) PackageUpdates(context.Context) ([]string, error) {
	if f.panic {
		panic("mail exploded")
	}
	return f.packages, f.err
}

var fixedNow = time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestCompose(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	cal := &fakeCalendar{events: []string{"9:00 AM: Standup"}}
	c := New(Sources{
		Weather: fakeWeather{summary: "clear sky, currently 30°F with a high of 35 and low of 20"},
		News: fakeNews{digest: news.Digest{
			GlobalPolitics: []news.Item{{Ordinal: "first", Title: "Summit Ends", Summary: "Leaders left."}},
			Technology:     []news.Item{{Ordinal: "first", Title: "Chips", Summary: "Scarce."}},
		}},
		Calendar: cal,
		Mail:     fakeMail{packages: []string{"Shipped from Shop"}},
	}, WithClock(clock), WithLocation(loc))

	got := c.Compose(context.Background())

	assert.True(t, strings.HasPrefix(got, "Alrighty, here’s your rundown for Monday, January 05.\n"))
	assert.Contains(t, got, "\nWeather: clear sky, currently 30°F with a high of 35 and low of 20.\n")
	assert.Contains(t, got, "The first global update is: Summit Ends.\nLeaders left.")
	assert.Contains(t, got, "The first tech trend is: Chips.\nScarce.")
	assert.Contains(t, got, "Your key events today:\n• 9:00 AM: Standup")
	assert.True(t, strings.HasSuffix(got, "Recent package updates:\n• Shipped from Shop"))

	assert.Equal(t, loc, cal.gotNow.Location())
	assert.True(t, cal.gotNow.Equal(fixedNow))
}

func TestCompose_DateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-10", -10*3600)
	c := New(Sources{}, WithClock(func() time.Time {
		return time.Date(2026, 1, 6, 2, 0, 0, 0, time.UTC)
	}), WithLocation(loc))

	assert.True(t, strings.HasPrefix(c.Compose(context.Background()), "Alrighty, here’s your rundown for Monday, January 05."))
}

func TestCompose_SourceErrors(t *testing.T) {
	rec := instrumentationtest.NewRecorder(t)
	c := New(Sources{
		Weather:  fakeWeather{summary: weather.UnavailableSummary},
		News:     fakeNews{digest: news.Digest{}},
		Calendar: &fakeCalendar{err: errors.New("token revoked")},
		Mail:     fakeMail{err: errors.New("quota")},
	}, WithClock(clock), WithLocation(time.UTC), WithMetrics(rec.Metrics))

	b := c.Gather(context.Background())

	assert.Equal(t, WeatherUnavailable, b.Weather)
	assert.Equal(t, []string{CalendarUnavailable}, b.Events)
	assert.Equal(t, []string{MailUnavailable}, b.Packages)

	text := Render(b)
	assert.Contains(t, text, "Your key events today:\n• (calendar unavailable)")
	assert.Contains(t, text, "Recent package updates:\n• (mail unavailable)")

	assert.Equal(t, int64(1), rec.Count(t, "briefing_source_fetch_total", map[string]string{"source": "weather", "status": "fallback"}))
	assert.Equal(t, int64(1), rec.Count(t, "briefing_source_fetch_total", map[string]string{"source": "news", "status": "success"}))
	assert.Equal(t, int64(1), rec.Count(t, "briefing_source_fetch_total", map[string]string{"source": "calendar", "status": "error"}))
	assert.Equal(t, int64(1), rec.Count(t, "briefing_source_fetch_total", map[string]string{"source": "mail", "status": "error"}))
}

func TestCompose_NeverFails(t *testing.T) {
	tests := []struct {
		name    string
		sources Sources
	}{
		{name: "no sources", sources: Sources{}},
		{
			name: "every source panics",
			sources: Sources{
				Weather:  fakeWeather{panic: true},
				News:     fakeNews{panic: true},
				Calendar: &fakeCalendar{panic: true},
				Mail:     fakeMail{panic: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := instrumentationtest.NewRecorder(t)
			c := New(tt.sources, WithClock(clock), WithLocation(time.UTC), WithMetrics(rec.Metrics))

			var got string
			require.NotPanics(t, func() {
				got = c.Compose(context.Background())
			})

			assert.Contains(t, got, "Weather: weather unavailable.")
			assert.Contains(t, got, "The first global update is: News unavailable.")
			assert.Contains(t, got, "The first tech trend is: News unavailable.")
			assert.Contains(t, got, "• (calendar unavailable)")
			assert.Contains(t, got, "• (mail unavailable)")
			assert.Equal(t, int64(1), rec.Count(t, "briefing_compose_total", nil))
			assert.Equal(t, int64(4), rec.Count(t, "briefing_source_fetch_total", map[string]string{"status": "error"}))
		})
	}
}

func TestCompose_PanicMessageInNewsFallback(t *testing.T) {
	c := New(Sources{News: fakeNews{panic: true}}, WithClock(clock))

	d := c.News(context.Background())
	require.Len(t, d.GlobalPolitics, 1)
	assert.Equal(t, "Error fetching NYT news: panic: news exploded", d.GlobalPolitics[0].Summary)
}

func TestCompose_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	c := New(Sources{
		Weather:  fakeWeather{summary: "sunny, currently 70°F with a high of 75 and low of 60"},
		Calendar: &fakeCalendar{err: errors.New("boom")},
	}, WithClock(clock))
	c.Compose(context.Background())

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{
		"briefing.source.weather",
		"briefing.source.news",
		"briefing.source.calendar",
		"briefing.source.mail",
		"briefing.compose",
	}, names)
}
