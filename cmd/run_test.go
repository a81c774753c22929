package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/ledger"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/notify"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/search"
	"github.com/sells-group/lead-cli/internal/store"
)

// stubProvider serves one page per sector and then an empty page.
type stubProvider struct {
	pages map[string][]model.SearchResultItem
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(_ context.Context, query, _ string, _ int, offset int) (search.Raw, error) {
	var items []model.SearchResultItem
	if offset == 0 {
		items = s.pages[query]
	}
	return json.Marshal(items)
}

func (s *stubProvider) OrganicResults(raw search.Raw) []model.SearchResultItem {
	var items []model.SearchResultItem
	_ = json.Unmarshal(raw, &items)
	return items
}

type acceptAll struct{}

func (acceptAll) IsRealCompany(context.Context, string, string, string) bool { return true }

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	return "<html>" + url + "</html>", nil
}

type stubExtractor struct{}

func (stubExtractor) ExtractContacts(context.Context, string) model.ExtractionResult {
	return model.ExtractionResult{Email: model.StringPtr("info@x.it")}
}

func newTestEnv(t *testing.T, pages map[string][]model.SearchResultItem, withStore bool) *runEnv {
	t.Helper()
	dir := t.TempDir()

	env := &runEnv{
		Search:    &stubProvider{pages: pages},
		APIKey:    "key",
		KeyEnv:    "SERPAPI_API_KEY",
		Verifier:  acceptAll{},
		Fetcher:   stubFetcher{},
		Extractor: stubExtractor{},
		Ledger:    ledger.New(filepath.Join(dir, "lista_aziende.xlsx")),
		// Mail is not configured, so the email step fails and is ignored.
		Notifier: notify.New(notify.NewComposer(nil), notify.NewMailer(config.EmailConfig{})),
	}

	if withStore {
		st, err := store.Open(context.Background(), config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(dir, "runs.db"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		env.Store = st
	}
	return env
}

func TestExecuteRun_WritesLedgerAndRecordsRun(t *testing.T) {
	pages := map[string][]model.SearchResultItem{
		"Ferramenta": {
			{Title: "No link"},
			{Title: "B srl", URL: "https://x.it", Snippet: "ferramenta"},
		},
		"Utensilerie": {
			{Title: "B srl", URL: "https://x.it"},
			{Title: "C spa", URL: "https://c.it"},
		},
	}
	env := newTestEnv(t, pages, true)

	summary, err := executeRun(context.Background(), env, []string{"Ferramenta", "Utensilerie"}, pipeline.Options{PageSize: 10})
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.Accepted)
	require.Len(t, summary.Sectors, 2)
	assert.Equal(t, model.SectorExhausted, summary.Sectors[0].Status)

	lf := env.Ledger.(*ledger.File)
	records, err := lf.LoadAll(lf.Path())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://x.it", records[0].URL)
	assert.Equal(t, "Ferramenta", records[0].Sector)
	assert.Equal(t, "info@x.it", model.Deref(records[0].Email))
	assert.Nil(t, records[0].Phone)
	assert.Equal(t, "Utensilerie", records[1].Sector)

	runs, err := env.Store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, "stub", runs[0].Provider)
	assert.Equal(t, lf.Path(), runs[0].LedgerPath)
	require.NotNil(t, runs[0].Summary)
	assert.Equal(t, 2, runs[0].Summary.Accepted)
}

func TestExecuteRun_NoStoreNoNotifier(t *testing.T) {
	env := newTestEnv(t, map[string][]model.SearchResultItem{
		"Ferramenta": {{Title: "A", URL: "https://a.it"}},
	}, false)
	env.Notifier = nil

	summary, err := executeRun(context.Background(), env, []string{"Ferramenta"}, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
}

func TestExecuteRun_MissingKeySkipsSectors(t *testing.T) {
	env := newTestEnv(t, nil, true)
	env.APIKey = ""

	summary, err := executeRun(context.Background(), env, []string{"Ferramenta", "Utensilerie"}, pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, summary.Sectors, 2)
	for _, s := range summary.Sectors {
		assert.Equal(t, model.SectorSkipped, s.Status)
	}
	assert.Zero(t, summary.Accepted)
}

func TestExecuteRun_CancelledIsRecordedAsAborted(t *testing.T) {
	env := newTestEnv(t, map[string][]model.SearchResultItem{
		"Ferramenta": {{Title: "A", URL: "https://a.it"}},
	}, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := executeRun(ctx, env, []string{"Ferramenta"}, pipeline.Options{})
	require.Error(t, err)
	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)

	runs, err := env.Store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusAborted, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRunStatus(t *testing.T) {
	summary := &model.RunSummary{}
	tests := []struct {
		name    string
		summary *model.RunSummary
		err     error
		want    model.RunStatus
	}{
		{"success", summary, nil, model.RunStatusComplete},
		{"ledger never opened", nil, errors.New("init"), model.RunStatusFailed},
		{"ledger unusable", summary, eris.Wrap(pipeline.ErrLedgerUnusable, "after 3"), model.RunStatusAborted},
		{"interrupted", summary, eris.Wrap(context.Canceled, "sector"), model.RunStatusAborted},
		{"other", summary, errors.New("boom"), model.RunStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runStatus(tt.summary, tt.err))
		})
	}
}

func TestFormatSummary(t *testing.T) {
	s := &model.RunSummary{}
	s.Add(model.SectorResult{Sector: "Ferramenta", Status: model.SectorExhausted, Pages: 2, Processed: 15, Accepted: 4})
	s.Add(model.SectorResult{Sector: "Utensilerie", Status: model.SectorProviderFailure, Pages: 1, Processed: 10, Accepted: 1, Reason: "rate limited"})
	s.Aborted = true

	var buf bytes.Buffer
	formatSummary(&buf, s)

	out := buf.String()
	assert.Contains(t, out, "SECTOR")
	assert.Contains(t, out, "Ferramenta")
	assert.Contains(t, out, "exhausted")
	assert.Contains(t, out, "provider_failure")
	assert.Contains(t, out, "rate limited")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "25")
	assert.Contains(t, out, "(run aborted)")
}
