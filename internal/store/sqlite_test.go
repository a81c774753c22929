package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSummary() *model.RunSummary {
	s := &model.RunSummary{}
	s.Add(model.SectorResult{Sector: "Ferramenta", Status: model.SectorExhausted, Pages: 2, Processed: 20, Accepted: 3})
	s.Add(model.SectorResult{Sector: "Tessile", Status: model.SectorProviderFailure, Pages: 1, Processed: 10, Reason: "API call limit reached"})
	return s
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, model.Run{Provider: "SerpApi", Oracle: "openai/gpt-4o-mini", LedgerPath: "lista_aziende.xlsx"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.False(t, run.CreatedAt.IsZero())

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "SerpApi", got.Provider)
	assert.Equal(t, "openai/gpt-4o-mini", got.Oracle)
	assert.Equal(t, "lista_aziende.xlsx", got.LedgerPath)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Summary)
	assert.Empty(t, got.Error)

	partial := &model.RunSummary{}
	partial.Add(model.SectorResult{Sector: "Ferramenta", Status: model.SectorExhausted, Processed: 20, Accepted: 3})
	require.NoError(t, s.UpdateRunSummary(ctx, run.ID, partial))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 3, got.Summary.Accepted)
	assert.Equal(t, model.RunStatusRunning, got.Status)

	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusComplete, sampleSummary(), ""))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 30, got.Summary.Processed)
	require.Len(t, got.Summary.Sectors, 2)
	assert.Equal(t, model.SectorProviderFailure, got.Summary.Sectors[1].Status)
	assert.Equal(t, "API call limit reached", got.Summary.Sectors[1].Reason)
}

func TestSQLiteStore_CompleteRunWithError(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, model.Run{Provider: "SerperDev", Oracle: "gemini", LedgerPath: "l.xlsx"})
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, run.ID, model.RunStatusAborted, nil, "pipeline: ledger unusable"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusAborted, got.Status)
	assert.Equal(t, "pipeline: ledger unusable", got.Error)
	assert.Nil(t, got.Summary)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.UpdateRunSummary(ctx, "missing", sampleSummary()), ErrNotFound)
	assert.ErrorIs(t, s.CompleteRun(ctx, "missing", model.RunStatusComplete, nil, ""), ErrNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := s.CreateRun(ctx, model.Run{Provider: "SerpApi", Oracle: "openai", LedgerPath: "l.xlsx"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, s.CompleteRun(ctx, ids[0], model.RunStatusComplete, sampleSummary(), ""))

	runs, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, ids[0], complete[0].ID)

	page, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.StoreConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	require.NotNil(t, st)
	_, err = st.ListRuns(ctx, RunFilter{})
	assert.NoError(t, err)
	assert.NoError(t, st.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
