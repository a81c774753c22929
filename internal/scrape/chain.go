package scrape

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries fetchers in order. It moves to the next fetcher only when the
// previous one was blocked by anti-bot protection; any other failure is
// returned as is, so a dead site costs one request.
type Chain struct {
	fetchers []Fetcher
}

// NewChain creates a Chain of fetchers tried in priority order.
func NewChain(fetchers ...Fetcher) *Chain {
	return &Chain{fetchers: fetchers}
}

func (c *Chain) Name() string { return "chain" }

// Fetch returns the first successful fetch.
func (c *Chain) Fetch(ctx context.Context, targetURL string) (string, error) {
	if len(c.fetchers) == 0 {
		return "", eris.Errorf("scrape: no fetchers configured for %s", targetURL)
	}

	var lastErr error
	for _, f := range c.fetchers {
		markup, err := f.Fetch(ctx, targetURL)
		if err == nil {
			return markup, nil
		}
		lastErr = err

		var fe *FetchError
		if !errors.As(err, &fe) || fe.Block == BlockNone {
			return "", err
		}
		zap.L().Debug("scrape: fetcher blocked, trying next",
			zap.String("fetcher", f.Name()),
			zap.String("url", targetURL),
			zap.String("block", string(fe.Block)),
		)
	}
	return "", lastErr
}
