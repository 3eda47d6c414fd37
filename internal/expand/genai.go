package expand

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const promptTemplate = `You are the voice of a friendly morning news briefing that is read aloud.
Expand the news story below into two to three short paragraphs of natural spoken prose.
Use only the facts given. Do not use markdown, bullet points, headings or links.

Title: %s
Abstract: %s
Source: %s`

// generator is the subset of *genai.Models used for expansion.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIExpander expands abstracts with a Gemini model.
type GenAIExpander struct {
	models          generator
	model           string
	maxOutputTokens int32
}

// NewGenAIExpander creates an expander backed by the Gemini API.
func NewGenAIExpander(ctx context.Context, apiKey, model string) (*GenAIExpander, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return newGenAIExpander(client.Models, model), nil
}

func newGenAIExpander(models generator, model string) *GenAIExpander {
	if model == "" {
		model = DefaultModel
	}
	return &GenAIExpander{
		models:          models,
		model:           model,
		maxOutputTokens: 600,
	}
}

// Model returns the model name used for generation.
func (e *GenAIExpander) Model() string {
	return e.model
}

// Expand implements Expander.
func (e *GenAIExpander) Expand(ctx context.Context, title, abstract, sourceURL string) (string, error) {
	prompt := fmt.Sprintf(promptTemplate, title, abstract, sourceURL)

	temperature := float32(0.4)
	resp, err := e.models.GenerateContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: e.maxOutputTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("GenAI returned no text")
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
