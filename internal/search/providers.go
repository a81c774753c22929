package search

import (
	"context"
	"errors"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
	"github.com/sells-group/lead-cli/pkg/serpapi"
	"github.com/sells-group/lead-cli/pkg/serper"
)

// SerpAPI searches through SerpApi; results live under "organic_results".
type SerpAPI struct {
	client serpapi.Client
}

// NewSerpAPI creates a SerpApi-backed provider.
func NewSerpAPI(cfg config.SearchConfig) *SerpAPI {
	var opts []serpapi.Option
	if cfg.SerpAPIBaseURL != "" {
		opts = append(opts, serpapi.WithBaseURL(cfg.SerpAPIBaseURL))
	}
	return &SerpAPI{client: serpapi.NewClient(opts...)}
}

// NewSerpAPIWithClient wraps an existing client.
func NewSerpAPIWithClient(c serpapi.Client) *SerpAPI {
	return &SerpAPI{client: c}
}

// Name implements Provider.
func (p *SerpAPI) Name() string { return "SerpApi" }

// Search implements Provider.
func (p *SerpAPI) Search(ctx context.Context, query, apiKey string, pageSize, offset int) (Raw, error) {
	if apiKey == "" {
		return nil, &Failure{Provider: p.Name(), Kind: resilience.KindConfig, Err: ErrMissingKey}
	}
	body, err := p.client.Search(ctx, serpapi.SearchRequest{
		Query:  query,
		APIKey: apiKey,
		Num:    clampPageSize(pageSize),
		Start:  offset,
	})
	if err != nil {
		return nil, classify(p.Name(), err, func(err error) (int, string, bool) {
			var apiErr *serpapi.APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode, apiErr.Message, true
			}
			return 0, "", false
		})
	}
	return Raw(body), nil
}

// OrganicResults implements Provider.
func (p *SerpAPI) OrganicResults(raw Raw) []model.SearchResultItem {
	return organic(raw, "organic_results")
}

// Serper searches through Serper.dev; results live under "organic".
type Serper struct {
	client   serper.Client
	country  string
	language string
}

// NewSerper creates a Serper-backed provider.
func NewSerper(cfg config.SearchConfig) *Serper {
	var opts []serper.Option
	if cfg.SerperBaseURL != "" {
		opts = append(opts, serper.WithBaseURL(cfg.SerperBaseURL))
	}
	return &Serper{client: serper.NewClient(opts...), country: cfg.Country, language: cfg.Language}
}

// NewSerperWithClient wraps an existing client.
func NewSerperWithClient(c serper.Client, country, language string) *Serper {
	return &Serper{client: c, country: country, language: language}
}

// Name implements Provider.
func (p *Serper) Name() string { return "SerperDev" }

// Search implements Provider.
func (p *Serper) Search(ctx context.Context, query, apiKey string, pageSize, offset int) (Raw, error) {
	if apiKey == "" {
		return nil, &Failure{Provider: p.Name(), Kind: resilience.KindConfig, Err: ErrMissingKey}
	}
	body, err := p.client.Search(ctx, serper.SearchRequest{
		Query:    query,
		APIKey:   apiKey,
		Num:      clampPageSize(pageSize),
		Start:    offset,
		Country:  p.country,
		Language: p.language,
	})
	if err != nil {
		return nil, classify(p.Name(), err, func(err error) (int, string, bool) {
			var apiErr *serper.APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode, apiErr.Message, true
			}
			return 0, "", false
		})
	}
	return Raw(body), nil
}

// OrganicResults implements Provider.
func (p *Serper) OrganicResults(raw Raw) []model.SearchResultItem {
	return organic(raw, "organic")
}
