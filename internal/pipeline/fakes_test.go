package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
	"github.com/sells-group/lead-cli/internal/search"
)

// fakeSearch serves canned pages keyed by sector. Pages past the end are
// empty. failAt, when > 0, fails that page number with failKind.
type fakeSearch struct {
	pages    map[string][][]model.SearchResultItem
	failAt   int
	failKind resilience.Kind
	calls    []searchCall
}

type searchCall struct {
	Query    string
	APIKey   string
	PageSize int
	Offset   int
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(_ context.Context, query, apiKey string, pageSize, offset int) (search.Raw, error) {
	f.calls = append(f.calls, searchCall{Query: query, APIKey: apiKey, PageSize: pageSize, Offset: offset})
	page := offset/pageSize + 1
	if f.failAt > 0 && page == f.failAt {
		return nil, &search.Failure{Provider: "fake", Kind: f.failKind, Err: errors.New("boom")}
	}

	var items []model.SearchResultItem
	if pages := f.pages[query]; page <= len(pages) {
		items = pages[page-1]
	}
	raw, err := json.Marshal(items)
	return raw, err
}

func (f *fakeSearch) OrganicResults(raw search.Raw) []model.SearchResultItem {
	var items []model.SearchResultItem
	_ = json.Unmarshal(raw, &items)
	return items
}

// fakeVerifier accepts every URL in accept; nil accept means accept all.
type fakeVerifier struct {
	accept map[string]bool
	calls  []string
}

func (f *fakeVerifier) IsRealCompany(_ context.Context, _, url, _ string) bool {
	f.calls = append(f.calls, url)
	if f.accept == nil {
		return true
	}
	return f.accept[url]
}

type fakeFetcher struct {
	pages map[string]string
	fail  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err := f.fail[url]; err != nil {
		return "", err
	}
	return f.pages[url], nil
}

// fakeExtractor returns a fixed result for markup it knows.
type fakeExtractor struct {
	results map[string]model.ExtractionResult
	calls   []string
}

func (f *fakeExtractor) ExtractContacts(_ context.Context, html string) model.ExtractionResult {
	f.calls = append(f.calls, html)
	return f.results[html]
}

type appendCall struct {
	Path   string
	Record model.CompanyRecord
	Sector string
}

// fakeLedger keeps rows in memory. failNext makes the next n appends fail.
type fakeLedger struct {
	path     string
	rows     []model.CompanyRecord
	appends  []appendCall
	failNext int
	initErr  error
	loadErr  error
}

func (f *fakeLedger) EnsureInitialized() (string, error) {
	if f.initErr != nil {
		return "", f.initErr
	}
	if f.path == "" {
		f.path = "lista_aziende.xlsx"
	}
	return f.path, nil
}

func (f *fakeLedger) LoadAll(string) ([]model.CompanyRecord, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]model.CompanyRecord(nil), f.rows...), nil
}

func (f *fakeLedger) Append(path string, rec model.CompanyRecord, sector string) error {
	f.appends = append(f.appends, appendCall{Path: path, Record: rec, Sector: sector})
	if f.failNext > 0 {
		f.failNext--
		return errors.New("disk full")
	}
	rec.Sector = sector
	f.rows = append(f.rows, rec)
	return nil
}

func (f *fakeLedger) urls() []string {
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = r.URL
	}
	return out
}

func hit(title, url string) model.SearchResultItem {
	return model.SearchResultItem{Title: title, URL: url, Snippet: "snippet " + title}
}

type harness struct {
	search    *fakeSearch
	verifier  *fakeVerifier
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	ledger    *fakeLedger
}

func newHarness(pages map[string][][]model.SearchResultItem) *harness {
	return &harness{
		search:    &fakeSearch{pages: pages},
		verifier:  &fakeVerifier{},
		fetcher:   &fakeFetcher{pages: map[string]string{}, fail: map[string]error{}},
		extractor: &fakeExtractor{results: map[string]model.ExtractionResult{}},
		ledger:    &fakeLedger{},
	}
}

func (h *harness) pipeline(opts Options) *Pipeline {
	if opts.APIKey == "" {
		opts.APIKey = "test-key"
	}
	return New(h.search, h.verifier, h.fetcher, h.extractor, h.ledger, opts)
}
