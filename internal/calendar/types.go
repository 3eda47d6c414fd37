package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// dateLayout is the format of all-day event dates.
const dateLayout = "2006-01-02"

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID       string
	Summary  string
	Location string
	Status   string

	// Start is the parsed start time; zero if the API value was malformed.
	Start time.Time
	End   time.Time

	// RawStart is the start exactly as the API returned it.
	RawStart string
	AllDay   bool
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Location: event.Location,
		Status:   event.Status,
	}

	if event.Start != nil {
		if event.Start.DateTime != "" {
			summary.RawStart = event.Start.DateTime
			if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
				summary.Start = t
			}
		} else if event.Start.Date != "" {
			summary.RawStart = event.Start.Date
			summary.AllDay = true
			if t, err := time.Parse(dateLayout, event.Start.Date); err == nil {
				summary.Start = t
			}
		}
	}

	if event.End != nil {
		if event.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
				summary.End = t
			}
		} else if event.End.Date != "" {
			if t, err := time.Parse(dateLayout, event.End.Date); err == nil {
				summary.End = t
			}
		}
	}

	return summary
}

// Line renders the event as "{start}: {title}". Timed events show a 12-hour
// clock time in loc; all-day events and unparseable times show the raw start.
func (e EventSummary) Line(loc *time.Location) string {
	title := e.Summary
	if title == "" {
		title = "(no title)"
	}

	start := e.RawStart
	if !e.AllDay && !e.Start.IsZero() {
		if loc == nil {
			loc = time.Local
		}
		start = e.Start.In(loc).Format("3:04 PM")
	}
	return start + ": " + title
}
