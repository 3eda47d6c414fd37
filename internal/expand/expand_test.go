package expand

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/agentpark/internal/instrumentation/instrumentationtest"
)

func TestWithFallback(t *testing.T) {
	tests := []struct {
		name     string
		expander Expander
		want     string
		status   string
	}{
		{
			name: "success",
			expander: Func(func(_ context.Context, title, abstract, _ string) (string, error) {
				return "  Longer story about " + title + ".  ", nil
			}),
			want:   "Longer story about Rain.",
			status: "success",
		},
		{
			name: "error",
			expander: Func(func(context.Context, string, string, string) (string, error) {
				return "", errors.New("quota exceeded")
			}),
			want:   "It rained.",
			status: "fallback",
		},
		{
			name: "blank output",
			expander: Func(func(context.Context, string, string, string) (string, error) {
				return " \n ", nil
			}),
			want:   "It rained.",
			status: "fallback",
		},
		{
			name: "panic",
			expander: Func(func(context.Context, string, string, string) (string, error) {
				panic("boom")
			}),
			want:   "It rained.",
			status: "fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := instrumentationtest.NewRecorder(t)
			f := WithFallback(tt.expander, WithMetrics(rec.Metrics))

			got, err := f.Expand(context.Background(), "Rain", "It rained.", "https://example.com/rain")
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, int64(1), rec.Count(t, "text_expansion_total", map[string]string{"status": tt.status}))
		})
	}
}

func TestWithFallback_NilExpander(t *testing.T) {
	rec := instrumentationtest.NewRecorder(t)
	f := WithFallback(nil, WithMetrics(rec.Metrics))

	got, err := f.Expand(context.Background(), "Rain", "It rained.", "")
	assert.NoError(t, err)
	assert.Equal(t, "It rained.", got)
	assert.Zero(t, rec.Count(t, "text_expansion_total", nil), "disabled expansion is not counted")
}
