package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/extract"
	"github.com/sells-group/lead-cli/internal/ledger"
	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/notify"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/scrape"
	"github.com/sells-group/lead-cli/internal/search"
	"github.com/sells-group/lead-cli/internal/store"
	"github.com/sells-group/lead-cli/internal/verify"
)

// runEnv holds every collaborator a sweep needs.
type runEnv struct {
	Search    search.Provider
	APIKey    string
	KeyEnv    string
	Oracle    llm.Oracle
	Verifier  pipeline.Verifier
	Fetcher   pipeline.Fetcher
	Extractor pipeline.Extractor
	Ledger    pipeline.Ledger
	Store     store.Store      // may be nil
	Notifier  *notify.Notifier // nil disables the email step
	Recipient string
}

// Close releases the oracle connection and the run store.
func (e *runEnv) Close() {
	closeOracle(e.Oracle)
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initRun builds the sweep collaborators from c. An unusable search backend
// is not fatal: every sector is then recorded as skipped. Callers should
// defer env.Close().
func initRun(ctx context.Context, c *config.Config) (*runEnv, error) {
	sp, err := search.New(c.Search)
	if err != nil {
		zap.L().Error("search backend unavailable, sectors will be skipped", zap.Error(err))
		sp = search.Unavailable{Reason: err}
	}

	oracle, err := llm.New(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "init oracle")
	}

	fetcher, err := scrape.New(c)
	if err != nil {
		closeOracle(oracle)
		return nil, eris.Wrap(err, "init fetcher")
	}

	st, err := store.Open(ctx, c.Store)
	if err != nil {
		closeOracle(oracle)
		return nil, eris.Wrap(err, "init run store")
	}

	env := &runEnv{
		Search:    sp,
		APIKey:    c.Search.APIKey(),
		KeyEnv:    c.Search.KeyEnv(),
		Oracle:    oracle,
		Verifier:  verify.New(oracle),
		Fetcher:   fetcher,
		Extractor: extract.New(oracle, c.Pipeline.MaxHTMLChars),
		Ledger:    ledger.New(c.Ledger.Path),
		Store:     st,
		Notifier:  newNotifier(c, oracle),
		Recipient: c.Email.Recipient,
	}

	zap.L().Info("sweep environment ready",
		zap.String("search", sp.Name()),
		zap.String("oracle", oracle.Name()),
		zap.String("model", oracle.Model()),
		zap.String("fetcher", fetcher.Name()),
		zap.String("ledger", c.Ledger.Path),
		zap.String("store", c.Store.Driver),
	)
	return env, nil
}

// newNotifier builds the end-of-run notifier. The oracle writes the body
// only when llm.compose_email is set.
func newNotifier(c *config.Config, oracle llm.Oracle) *notify.Notifier {
	var composer llm.Oracle
	if c.LLM.ComposeEmail {
		composer = oracle
	}
	return notify.New(notify.NewComposer(composer), notify.NewMailer(c.Email))
}

func closeOracle(o llm.Oracle) {
	if c, ok := o.(io.Closer); ok {
		_ = c.Close()
	}
}
