// Package llm wraps the language-model backends consulted for company
// classification, contact extraction and report composition behind one
// Oracle interface.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/pkg/anthropic"
	"github.com/sells-group/lead-cli/pkg/openai"
)

// Prompt is a single-turn request. Phase labels the call in logs.
type Prompt struct {
	Phase  string
	System string
	User   string
}

// Oracle answers a single-turn prompt with free text.
type Oracle interface {
	Name() string
	Model() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// New builds the oracle selected by cfg.LLM.Provider. Gemini holds a gRPC
// connection; callers should Close the result when it implements io.Closer.
func New(ctx context.Context, cfg *config.Config) (Oracle, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		client := openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(strings.TrimRight(cfg.OpenAI.BaseURL, "/")))
		return NewChat("openai", client, cfg.OpenAI.Model, timeout), nil
	case "ollama":
		base := strings.TrimRight(cfg.Ollama.BaseURL, "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		client := openai.NewClient(cfg.Ollama.Key, openai.WithBaseURL(base))
		return NewChat("ollama", client, cfg.Ollama.Model, timeout), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic.key is required")
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewClaude(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, timeout), nil
	case "gemini":
		return NewGemini(ctx, cfg.Gemini.Key, cfg.Gemini.Model, timeout)
	default:
		return nil, eris.Errorf("llm: invalid provider %q (use openai, gemini, ollama or anthropic)", cfg.LLM.Provider)
	}
}

// withTimeout bounds a single oracle call; zero leaves ctx untouched.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// cleanText strips markdown code fences some models wrap around answers.
func cleanText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```html")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
