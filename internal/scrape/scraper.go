// Package scrape fetches the raw markup of a company home page. One page per
// company; no link following.
package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/pkg/jina"
)

// Fetcher fetches a single URL and returns its markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Name() string
}

// FetchError reports a failed fetch. It is recoverable: the caller keeps the
// candidate with empty contacts.
type FetchError struct {
	URL        string
	Fetcher    string
	StatusCode int
	Block      BlockType
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Block != BlockNone:
		return fmt.Sprintf("%s: blocked (%s): %s", e.Fetcher, e.Block, e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Fetcher, e.StatusCode, e.URL)
	default:
		return fmt.Sprintf("%s: %v", e.Fetcher, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// New builds the fetcher selected by cfg.Fetch.Provider: "local" (direct
// HTTP), "jina" (Jina Reader) or "chain" (direct, falling back to Jina only
// when the page is blocked).
func New(cfg *config.Config) (Fetcher, error) {
	local := NewLocalFetcher(cfg.Fetch)
	switch strings.ToLower(cfg.Fetch.Provider) {
	case "", "local":
		return local, nil
	case "jina":
		return NewJinaFetcher(newJinaClient(cfg.Jina)), nil
	case "chain":
		return NewChain(local, NewJinaFetcher(newJinaClient(cfg.Jina))), nil
	default:
		return nil, eris.Errorf("scrape: invalid provider %q (use local, jina or chain)", cfg.Fetch.Provider)
	}
}

func newJinaClient(cfg config.JinaConfig) jina.Client {
	var opts []jina.Option
	if cfg.BaseURL != "" {
		opts = append(opts, jina.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")))
	}
	return jina.NewClient(cfg.Key, opts...)
}
