package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/pkg/openai"
)

// Chat is an Oracle over any OpenAI-compatible chat completions endpoint.
type Chat struct {
	name    string
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewChat creates a chat completions oracle. name is "openai" or "ollama".
func NewChat(name string, client openai.Client, model string, timeout time.Duration) *Chat {
	return &Chat{name: name, client: client, model: model, timeout: timeout}
}

// Name implements Oracle.
func (c *Chat) Name() string { return c.name }

// Model implements Oracle.
func (c *Chat) Model() string { return c.model }

// Complete implements Oracle.
func (c *Chat) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	var msgs []openai.Message
	if p.System != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: p.System})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: p.User})

	resp, err := c.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s %s", c.name, p.Phase)
	}
	if len(resp.Choices) == 0 {
		return "", eris.Errorf("llm: %s %s: no choices in response", c.name, p.Phase)
	}
	return cleanText(resp.Content()), nil
}
