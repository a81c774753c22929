// Package pipeline sweeps sectors page by page: every search hit is
// deduplicated against the ledger, verified, scraped for contacts and
// appended to the ledger before the next hit is looked at.
package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/ledger"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
	"github.com/sells-group/lead-cli/internal/search"
	"github.com/sells-group/lead-cli/internal/textutil"
)

// ErrLedgerUnusable stops a run once ledger writes keep failing.
var ErrLedgerUnusable = eris.New("pipeline: ledger unusable")

// Verifier decides whether a search hit is a real company.
type Verifier interface {
	IsRealCompany(ctx context.Context, name, url, snippet string) bool
}

// Extractor pulls contacts out of page markup.
type Extractor interface {
	ExtractContacts(ctx context.Context, html string) model.ExtractionResult
}

// Fetcher downloads a company home page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Ledger is the durable store of accepted companies.
type Ledger interface {
	EnsureInitialized() (string, error)
	LoadAll(path string) ([]model.CompanyRecord, error)
	Append(path string, rec model.CompanyRecord, sector string) error
}

// Options tunes a sweep.
type Options struct {
	// APIKey is passed to the search backend on every page.
	APIKey string
	// KeyEnv names the variable to set when APIKey is empty.
	KeyEnv string
	// PageSize is clamped to search.MaxPageSize.
	PageSize int
	// Limit caps processed items per sector; 0 means unlimited.
	Limit int
	// MaxWriteFailures aborts the run after that many consecutive ledger
	// write failures; 0 never aborts.
	MaxWriteFailures int
	// OnSector, when set, is called after each sector completes.
	OnSector func(model.SectorResult)
}

// Pipeline runs the sector sweep. It is single-threaded: one sector, one
// page and one candidate at a time.
type Pipeline struct {
	search    search.Provider
	verifier  Verifier
	fetcher   Fetcher
	extractor Extractor
	ledger    Ledger
	opts      Options

	path    string
	seen    ledger.DedupSet
	breaker *resilience.CircuitBreaker
}

// New creates a Pipeline with all collaborators.
func New(sp search.Provider, v Verifier, f Fetcher, e Extractor, l Ledger, opts Options) *Pipeline {
	if opts.PageSize <= 0 || opts.PageSize > search.MaxPageSize {
		opts.PageSize = search.MaxPageSize
	}
	p := &Pipeline{
		search:    sp,
		verifier:  v,
		fetcher:   f,
		extractor: e,
		ledger:    l,
		opts:      opts,
	}
	p.breaker = resilience.LedgerBreaker(opts.MaxWriteFailures, func(from, to resilience.CircuitState) {
		zap.L().Warn("pipeline: ledger breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return p
}

// Prepare initializes the ledger and seeds the dedup set from it. Run calls
// it once; RunSector requires it.
func (p *Pipeline) Prepare() error {
	path, err := p.ledger.EnsureInitialized()
	if err != nil {
		return eris.Wrap(err, "pipeline: init ledger")
	}
	records, err := p.ledger.LoadAll(path)
	if err != nil {
		return eris.Wrap(err, "pipeline: load ledger")
	}
	p.path = path
	p.seen = ledger.NewDedupSet(records)
	zap.L().Info("pipeline: ledger loaded",
		zap.String("path", path),
		zap.Int("existing", len(records)),
	)
	return nil
}

// LedgerPath returns the path resolved by Prepare.
func (p *Pipeline) LedgerPath() string { return p.path }

// Known reports whether url is already in the ledger or was appended during
// this run.
func (p *Pipeline) Known(url string) bool { return p.seen.Has(url) }

// Run prepares the ledger and sweeps sectors in order. A failing sector
// contributes zero and the sweep moves on; only ErrLedgerUnusable and
// context cancellation stop it early, returning the summary so far.
func (p *Pipeline) Run(ctx context.Context, sectors []string) (*model.RunSummary, error) {
	if err := p.Prepare(); err != nil {
		return nil, err
	}

	summary := &model.RunSummary{}
	for _, sector := range sectors {
		res, err := p.RunSector(ctx, sector)
		summary.Add(res)
		if p.opts.OnSector != nil {
			p.opts.OnSector(res)
		}
		if err != nil {
			summary.Aborted = true
			zap.L().Error("pipeline: run aborted",
				zap.String("sector", sector),
				zap.Error(err),
			)
			return summary, err
		}
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("sectors", len(summary.Sectors)),
		zap.Int("processed", summary.Processed),
		zap.Int("accepted", summary.Accepted),
	)
	return summary, nil
}

// RunSector pages through the search results for one sector until an empty
// page, a provider failure or the item limit. Provider failures end the
// sector and are reported in the result, not as an error.
func (p *Pipeline) RunSector(ctx context.Context, sector string) (model.SectorResult, error) {
	log := zap.L().With(zap.String("sector", sector), zap.String("provider", p.search.Name()))
	res := model.SectorResult{Sector: sector}

	if p.seen == nil {
		p.seen = ledger.NewDedupSet(nil)
	}

	if p.opts.APIKey == "" {
		res.Status = model.SectorSkipped
		res.Reason = search.ErrMissingKey.Error()
		log.Error("pipeline: sector skipped, search key missing", zap.String("env", p.opts.KeyEnv))
		return res, nil
	}

	log.Info("pipeline: sector started")

	offset := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			res.Status = model.SectorAborted
			return res, eris.Wrap(err, "pipeline: sector interrupted")
		}

		raw, err := p.search.Search(ctx, sector, p.opts.APIKey, p.opts.PageSize, offset)
		if err != nil {
			f := search.AsFailure(err)
			res.Status = model.SectorProviderFailure
			if page == 1 && f.Kind == resilience.KindConfig {
				res.Status = model.SectorSkipped
			}
			res.Reason = f.Kind.Hint()
			log.Error("pipeline: search failed",
				zap.Int("page", page),
				zap.String("kind", string(f.Kind)),
				zap.String("hint", f.Kind.Hint()),
				zap.Error(err),
			)
			break
		}

		items := p.search.OrganicResults(raw)
		if len(items) == 0 {
			res.Status = model.SectorExhausted
			log.Info("pipeline: no more results", zap.Int("page", page))
			break
		}
		res.Pages++
		log.Debug("pipeline: page received", zap.Int("page", page), zap.Int("items", len(items)))

		for i, item := range items {
			if err := ctx.Err(); err != nil {
				res.Status = model.SectorAborted
				return res, eris.Wrap(err, "pipeline: sector interrupted")
			}

			res.Processed++
			accepted, err := p.processItem(ctx, log.With(zap.Int("index", offset+i+1)), item, sector)
			if accepted {
				res.Accepted++
			}
			if err != nil {
				res.Status = model.SectorAborted
				res.Reason = err.Error()
				return res, err
			}

			if p.opts.Limit > 0 && res.Processed >= p.opts.Limit {
				res.Status = model.SectorLimitReached
				log.Info("pipeline: item limit reached", zap.Int("limit", p.opts.Limit))
				return p.finish(log, res), nil
			}
		}

		offset += p.opts.PageSize
	}

	return p.finish(log, res), nil
}

func (p *Pipeline) finish(log *zap.Logger, res model.SectorResult) model.SectorResult {
	log.Info("pipeline: sector complete",
		zap.String("status", string(res.Status)),
		zap.Int("pages", res.Pages),
		zap.Int("processed", res.Processed),
		zap.Int("accepted", res.Accepted),
	)
	return res
}

// processItem runs one hit through dedup, verification, fetch, extraction
// and the ledger append. It returns ErrLedgerUnusable only when the ledger
// breaker has opened.
func (p *Pipeline) processItem(ctx context.Context, log *zap.Logger, item model.SearchResultItem, sector string) (bool, error) {
	log = log.With(zap.String("name", item.Title))

	if !item.HasURL() {
		log.Debug("pipeline: rejected, no url")
		return false, nil
	}
	log = log.With(zap.String("url", item.URL))

	if p.seen.Has(item.URL) {
		log.Debug("pipeline: rejected, already in ledger")
		return false, nil
	}

	if !p.verifier.IsRealCompany(ctx, item.Title, item.URL, item.Snippet) {
		log.Debug("pipeline: rejected, not a company")
		return false, nil
	}

	var contacts model.ExtractionResult
	html, err := p.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		log.Warn("pipeline: fetch failed", zap.String("error", textutil.Truncate(err.Error(), 100)))
	} else {
		contacts = p.extractor.ExtractContacts(ctx, html)
	}

	rec := model.NewCompanyRecord(item, contacts, sector)
	err = p.breaker.Execute(ctx, func(context.Context) error {
		return p.ledger.Append(p.path, rec, sector)
	})
	if err != nil {
		log.Error("pipeline: ledger append failed", zap.Error(err))
		if errors.Is(err, resilience.ErrCircuitOpen) || p.breaker.State() == resilience.CircuitOpen {
			return false, eris.Wrapf(ErrLedgerUnusable, "after %d consecutive write failures", p.breaker.ConsecutiveFailures())
		}
		return false, nil
	}

	p.seen.Add(item.URL)
	log.Info("pipeline: company added",
		zap.Bool("email", contacts.Email != nil),
		zap.Bool("phone", contacts.Phone != nil),
	)
	return true, nil
}

