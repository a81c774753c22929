package scrape

import (
	"context"
	"strings"

	"github.com/sells-group/lead-cli/pkg/jina"
)

// JinaFetcher fetches pages through Jina Reader, which renders JavaScript
// and gets past most anti-bot shells.
type JinaFetcher struct {
	client jina.Client
}

// NewJinaFetcher wraps a Jina Reader client as a Fetcher.
func NewJinaFetcher(client jina.Client) *JinaFetcher {
	return &JinaFetcher{client: client}
}

func (j *JinaFetcher) Name() string { return "jina" }

// Fetch reads the URL via Jina and returns the rendered markup.
func (j *JinaFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		return "", &FetchError{URL: targetURL, Fetcher: j.Name(), Err: err}
	}
	if resp.Code != 0 && resp.Code != 200 {
		return "", &FetchError{URL: targetURL, Fetcher: j.Name(), StatusCode: resp.Code}
	}

	markup := resp.Data.Markup()
	if isChallenge(markup) {
		return "", &FetchError{URL: targetURL, Fetcher: j.Name(), Block: BlockCloudflare}
	}
	return markup, nil
}

var challengeSignatures = []string{
	"checking your browser",
	"just a moment",
	"attention required",
	"please enable cookies",
}

// isChallenge reports whether a short rendered page is an interstitial
// rather than the company site.
func isChallenge(content string) bool {
	content = strings.TrimSpace(content)
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
