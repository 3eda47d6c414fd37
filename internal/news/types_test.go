package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdinal(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "first"},
		{1, "second"},
		{2, "third"},
		{3, "fourth"},
		{4, "fifth"},
		{5, "6th"},
		{6, "7th"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Ordinal(tt.i))
	}
}

func TestRichSummary(t *testing.T) {
	tests := []struct {
		name  string
		story Story
		want  string
	}{
		{
			name: "all fields",
			story: Story{
				Abstract:   " Leaders met in Geneva. ",
				Section:    "World",
				Subsection: "Europe",
				GeoFacet:   []string{"Switzerland", "Geneva", "Europe"},
				DesFacet:   []string{"Diplomacy", "Trade", "Tariffs", "Shipping"},
				Byline:     "By Jane Doe",
			},
			want: "Leaders met in Geneva. This story appears in the World – Europe section of the New York Times. " +
				"It is particularly focused on Switzerland, Geneva. Key themes include Diplomacy, Trade, Tariffs. By Jane Doe",
		},
		{
			name:  "section without subsection",
			story: Story{Abstract: "A bill passed.", Section: "U.S."},
			want:  "A bill passed. This story appears in the U.S. section of the New York Times.",
		},
		{
			name:  "snippet when abstract is empty",
			story: Story{Snippet: "From the snippet."},
			want:  "From the snippet.",
		},
		{
			name:  "metadata only",
			story: Story{Byline: "By John Roe"},
			want:  "By John Roe",
		},
		{
			name:  "nothing",
			story: Story{Abstract: "  ", Section: " "},
			want:  "No summary available.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RichSummary(tt.story))
		})
	}
}
