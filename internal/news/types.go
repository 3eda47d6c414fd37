package news

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Story is one result of the Top Stories API. Only the fields the briefing
// uses are decoded.
type Story struct {
	Section       string `json:"section"`
	Subsection    string `json:"subsection"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	Snippet       string `json:"snippet"`
	URL           string `json:"url"`
	Byline        string `json:"byline"`
	PublishedDate string `json:"published_date"`
	DesFacet      Facets `json:"des_facet"`
	GeoFacet      Facets `json:"geo_facet"`
}

// Facets is a list of story tags. The API sends "" instead of an empty
// array for untagged stories; "" and null decode as no facets and any other
// string as a single facet.
type Facets []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Facets) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		var s *string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("facets must be a list or a string: %w", err)
		}
		*f = nil
		if s != nil && strings.TrimSpace(*s) != "" {
			*f = Facets{strings.TrimSpace(*s)}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

// topStoriesResponse is the envelope of a section request.
type topStoriesResponse struct {
	Status     string  `json:"status"`
	NumResults int     `json:"num_results"`
	Results    []Story `json:"results"`
}

// Item is one story as read out in the briefing.
type Item struct {
	Ordinal string `json:"ordinal"`
	Title   string `json:"title"`
	Summary string `json:"summary"`

	// URL links to the full story; empty for placeholder items.
	URL string `json:"url,omitempty"`
}

// Digest holds the two news lists of a briefing.
type Digest struct {
	GlobalPolitics []Item `json:"global_politics"`
	Technology     []Item `json:"technology"`

	// Fallback is set when the lists are placeholders for a missing key or
	// a failed request.
	Fallback bool `json:"-"`
}

var ordinalWords = []string{"first", "second", "third", "fourth", "fifth"}

// Ordinal names the zero-based position i: "first" through "fifth", then
// "6th", "7th" and so on.
func Ordinal(i int) string {
	if i >= 0 && i < len(ordinalWords) {
		return ordinalWords[i]
	}
	return fmt.Sprintf("%dth", i+1)
}

// RichSummary turns a story's metadata into a few sentences: the abstract
// (or snippet), where it ran, its places and themes, and the byline.
func RichSummary(s Story) string {
	abstract := strings.TrimSpace(s.Abstract)
	if abstract == "" {
		abstract = strings.TrimSpace(s.Snippet)
	}

	section := strings.TrimSpace(s.Section)
	subsection := strings.TrimSpace(s.Subsection)
	byline := strings.TrimSpace(s.Byline)

	var extra []string
	if section != "" {
		if subsection != "" {
			extra = append(extra, fmt.Sprintf("This story appears in the %s – %s section of the New York Times.", section, subsection))
		} else {
			extra = append(extra, fmt.Sprintf("This story appears in the %s section of the New York Times.", section))
		}
	}
	if len(s.GeoFacet) > 0 {
		extra = append(extra, fmt.Sprintf("It is particularly focused on %s.", strings.Join(head(s.GeoFacet, 2), ", ")))
	}
	if len(s.DesFacet) > 0 {
		extra = append(extra, fmt.Sprintf("Key themes include %s.", strings.Join(head(s.DesFacet, 3), ", ")))
	}
	if byline != "" {
		extra = append(extra, byline)
	}

	if abstract == "" && len(extra) == 0 {
		return "No summary available."
	}
	return strings.TrimSpace(strings.Join(append([]string{abstract}, extra...), " "))
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// published parses the story's publication time; unparseable dates are zero.
func (s Story) published() time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s.PublishedDate))
	if err != nil {
		return time.Time{}
	}
	return t
}

// placeholder is a single-item list used in place of real stories.
func placeholder(title, summary string) []Item {
	return []Item{{Ordinal: Ordinal(0), Title: title, Summary: summary}}
}
