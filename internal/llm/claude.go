package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/pkg/anthropic"
)

// Claude is an Oracle over the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewClaude creates a Claude oracle.
func NewClaude(client anthropic.Client, model string, maxTokens int64, timeout time.Duration) *Claude {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Claude{client: client, model: model, maxTokens: maxTokens, timeout: timeout}
}

// Name implements Oracle.
func (c *Claude) Name() string { return "anthropic" }

// Model implements Oracle.
func (c *Claude) Model() string { return c.model }

// Complete implements Oracle.
func (c *Claude) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	if p.System != "" {
		req.System = []anthropic.SystemBlock{{Text: p.System}}
	}

	resp, err := c.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrapf(err, "llm: anthropic %s", p.Phase)
	}
	resp.Usage.LogCost(c.model, p.Phase)

	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("llm: anthropic %s: empty response", p.Phase)
	}
	return cleanText(text), nil
}
