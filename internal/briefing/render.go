package briefing

import (
	"strings"
	"time"

	"github.com/teemow/agentpark/internal/news"
)

// DateLayout formats the briefing date, e.g. "Monday, January 02".
const DateLayout = "Monday, January 02"

// Briefing holds the gathered source values of one briefing.
type Briefing struct {
	Date     time.Time   `json:"date"`
	Weather  string      `json:"weather"`
	News     news.Digest `json:"news"`
	Events   []string    `json:"events"`
	Packages []string    `json:"packages"`
}

// Render formats b as the spoken briefing text.
func Render(b Briefing) string {
	var parts []string
	parts = append(parts, "Alrighty, here’s your rundown for "+b.Date.Format(DateLayout)+".")
	parts = append(parts, "\nWeather: "+b.Weather+".")

	global, tech := b.News.GlobalPolitics, b.News.Technology
	if len(global) > 0 || len(tech) > 0 {
		parts = append(parts, "\nHere are today's trending stories:")
	}

	if len(global) > 0 {
		parts = append(parts, "\nFirst, let’s ramp you up on the global and political updates.")
		parts = appendItems(parts, global, "global update")
	}

	if len(tech) > 0 {
		parts = append(parts, "\nNow, here's the latest within the tech industry.")
		parts = appendItems(parts, tech, "tech trend")
	}

	if len(b.Events) > 0 {
		parts = append(parts, "\nYour key events today:")
		for _, e := range b.Events {
			parts = append(parts, "• "+e)
		}
	} else {
		parts = append(parts, "\nLooks like we have no events noted in the calendar today!")
	}

	if len(b.Packages) > 0 {
		parts = append(parts, "\nRecent package updates:")
		for _, p := range b.Packages {
			parts = append(parts, "• "+p)
		}
	} else {
		parts = append(parts, "\nYou don't have any delivery updates you need to worry about right now.")
	}

	return strings.Join(parts, "\n")
}

// appendItems adds "The {ordinal} {kind} is: {title}." and the summary for
// each item, skipping empty lines.
func appendItems(parts []string, items []news.Item, kind string) []string {
	for _, item := range items {
		ordinal := strings.TrimSpace(item.Ordinal)
		if ordinal == "" {
			ordinal = "first"
		}
		title := strings.TrimSpace(item.Title)
		summary := strings.TrimSpace(item.Summary)

		if title != "" {
			parts = append(parts, "The "+ordinal+" "+kind+" is: "+title+".")
		}
		if summary != "" {
			parts = append(parts, summary)
		}
	}
	return parts
}
