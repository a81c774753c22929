package llm

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
)

// generateFunc issues one GenerateContent call for the given model.
type generateFunc func(ctx context.Context, model string, p Prompt) (*genai.GenerateContentResponse, error)

// Gemini is an Oracle over Google's Gemini API.
type Gemini struct {
	client   *genai.Client
	model    string
	timeout  time.Duration
	generate generateFunc
}

// NewGemini connects to Gemini with an API key.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, eris.New("llm: gemini.key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}

	g := &Gemini{client: client, model: model, timeout: timeout}
	g.generate = g.generateWithClient
	return g, nil
}

// Name implements Oracle.
func (g *Gemini) Name() string { return "gemini" }

// Model implements Oracle.
func (g *Gemini) Model() string { return g.model }

// Complete implements Oracle.
func (g *Gemini) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.generate(ctx, g.model, p)
	if err != nil {
		return "", eris.Wrapf(err, "llm: gemini %s", p.Phase)
	}

	text, err := textFromResponse(resp)
	if err != nil {
		return "", eris.Wrapf(err, "llm: gemini %s", p.Phase)
	}
	return cleanText(text), nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *Gemini) generateWithClient(ctx context.Context, model string, p Prompt) (*genai.GenerateContentResponse, error) {
	m := g.client.GenerativeModel(model)
	m.SetTemperature(0)
	if p.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(p.System)}}
	}
	return m.GenerateContent(ctx, genai.Text(p.User))
}

// textFromResponse joins the text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", eris.New("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", eris.New("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", eris.New("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
