// Package search pages Google results for a sector through a configured
// search-as-a-service backend and normalizes them into SearchResultItems.
package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
)

// MaxPageSize is the largest page both backends accept.
const MaxPageSize = 10

// Raw is the undecoded JSON document of one result page.
type Raw []byte

// Provider is a paginated search backend. Search returns either a page or
// a *Failure; it never panics on backend errors.
type Provider interface {
	Name() string
	Search(ctx context.Context, query, apiKey string, pageSize, offset int) (Raw, error)
	OrganicResults(raw Raw) []model.SearchResultItem
}

// Failure describes why a page could not be retrieved.
type Failure struct {
	Provider string
	Kind     resilience.Kind
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("search: %s %s: %v", f.Provider, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts the *Failure from err, wrapping foreign errors as a
// backend failure.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: resilience.KindBackend, Err: err}
}

// ErrMissingKey is the failure cause when no API key is configured.
var ErrMissingKey = eris.New("search: API key not configured")

// New builds the provider selected by cfg.Provider.
func New(cfg config.SearchConfig) (Provider, error) {
	switch cfg.Provider {
	case "serpapi":
		return NewSerpAPI(cfg), nil
	case "serper":
		return NewSerper(cfg), nil
	default:
		return nil, eris.Errorf("search: invalid provider %q (use serpapi or serper)", cfg.Provider)
	}
}

// Unavailable is a provider that fails every request with a configuration
// failure. It stands in when the configured backend cannot be built so
// each sector is recorded as skipped.
type Unavailable struct {
	Reason error
}

// Name implements Provider.
func (u Unavailable) Name() string { return "unavailable" }

// Search implements Provider.
func (u Unavailable) Search(context.Context, string, string, int, int) (Raw, error) {
	return nil, &Failure{Provider: u.Name(), Kind: resilience.KindConfig, Err: u.Reason}
}

// OrganicResults implements Provider.
func (u Unavailable) OrganicResults(Raw) []model.SearchResultItem { return nil }

// organic normalizes the result list at path. Missing titles and snippets
// become "N/D"; a missing link stays empty and is rejected downstream.
func organic(raw Raw, path string) []model.SearchResultItem {
	results := gjson.GetBytes(raw, path)
	if !results.IsArray() {
		return nil
	}

	var items []model.SearchResultItem
	results.ForEach(func(_, r gjson.Result) bool {
		items = append(items, model.SearchResultItem{
			Title:   valueOr(r.Get("title"), "N/D"),
			URL:     r.Get("link").String(),
			Snippet: valueOr(r.Get("snippet"), "N/D"),
		})
		return true
	})
	return items
}

func valueOr(r gjson.Result, fallback string) string {
	if !r.Exists() || r.String() == "" {
		return fallback
	}
	return r.String()
}

// clampPageSize keeps pageSize within the backend cap.
func clampPageSize(pageSize int) int {
	if pageSize <= 0 || pageSize > MaxPageSize {
		return MaxPageSize
	}
	return pageSize
}

// classify turns a client error into a Failure.
func classify(provider string, err error, status func(error) (int, string, bool)) *Failure {
	if code, msg, ok := status(err); ok {
		return &Failure{Provider: provider, Kind: resilience.ClassifyStatus(code, msg), Err: err}
	}
	return &Failure{Provider: provider, Kind: resilience.ClassifyError(err), Err: err}
}
