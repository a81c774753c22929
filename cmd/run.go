package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/sector"
	"github.com/sells-group/lead-cli/internal/store"
)

var (
	runSectors []string
	runLimit   int
	runNoEmail bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep every sector into the ledger and mail it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		sectors, err := sector.Resolve(cfg.Sectors, runSectors)
		if err != nil {
			return err
		}

		env, err := initRun(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if runNoEmail {
			env.Notifier = nil
		}

		limit := cfg.Pipeline.Limit
		if cmd.Flags().Changed("limit") {
			limit = runLimit
		}

		summary, err := executeRun(ctx, env, sectors, pipeline.Options{
			PageSize:         cfg.Search.PageSize,
			Limit:            limit,
			MaxWriteFailures: cfg.Pipeline.MaxWriteFailures,
		})
		if summary != nil {
			formatSummary(os.Stdout, summary)
		}
		return err
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runSectors, "sector", nil, "sector to sweep (repeatable, overrides the configured list)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max items processed per sector, 0 for unlimited (default from config)")
	runCmd.Flags().BoolVar(&runNoEmail, "no-email", false, "skip mailing the ledger after the sweep")
	rootCmd.AddCommand(runCmd)
}

// executeRun sweeps sectors, records the run in the store and mails the
// ledger. The email step never changes the returned error. opts.APIKey,
// opts.KeyEnv and opts.OnSector are filled from env.
func executeRun(ctx context.Context, env *runEnv, sectors []string, opts pipeline.Options) (*model.RunSummary, error) {
	rec := startRecorder(ctx, env)

	opts.APIKey = env.APIKey
	opts.KeyEnv = env.KeyEnv
	opts.OnSector = func(res model.SectorResult) { rec.sector(ctx, res) }

	p := pipeline.New(env.Search, env.Verifier, env.Fetcher, env.Extractor, env.Ledger, opts)
	summary, runErr := p.Run(ctx, sectors)
	rec.finish(ctx, p.LedgerPath(), summary, runErr)

	switch {
	case summary == nil:
		// Ledger never became usable; there is nothing to send.
	case ctx.Err() != nil:
		zap.L().Warn("run interrupted, email skipped")
	default:
		notifyLedger(ctx, env, p.LedgerPath(), sectors)
	}

	return summary, runErr
}

// notifyLedger mails the whole ledger with its current row count. Failures
// are logged by the notifier and otherwise ignored.
func notifyLedger(ctx context.Context, env *runEnv, path string, sectors []string) {
	if env.Notifier == nil {
		return
	}
	records, err := env.Ledger.LoadAll(path)
	if err != nil {
		zap.L().Error("reload ledger for email", zap.String("path", path), zap.Error(err))
		return
	}
	_ = env.Notifier.Send(ctx, path, env.Recipient, len(records), sectors)
}

// runRecorder mirrors a sweep into the run store. Store failures are logged
// and never stop the sweep. A nil store makes every method a no-op.
type runRecorder struct {
	st      store.Store
	id      string
	summary model.RunSummary
}

func startRecorder(ctx context.Context, env *runEnv) *runRecorder {
	rec := &runRecorder{st: env.Store}
	if rec.st == nil {
		return rec
	}

	run := model.Run{Provider: env.Search.Name(), Status: model.RunStatusRunning}
	if env.Oracle != nil {
		run.Oracle = env.Oracle.Name()
	}
	if lp, ok := env.Ledger.(interface{ Path() string }); ok {
		run.LedgerPath = lp.Path()
	}
	created, err := rec.st.CreateRun(context.WithoutCancel(ctx), run)
	if err != nil {
		zap.L().Warn("record run start", zap.Error(err))
		rec.st = nil
		return rec
	}
	rec.id = created.ID
	zap.L().Info("run started", zap.String("run_id", rec.id))
	return rec
}

func (r *runRecorder) sector(ctx context.Context, res model.SectorResult) {
	r.summary.Add(res)
	if r.st == nil {
		return
	}
	if err := r.st.UpdateRunSummary(context.WithoutCancel(ctx), r.id, &r.summary); err != nil {
		zap.L().Warn("record sector result", zap.String("run_id", r.id), zap.Error(err))
	}
}

func (r *runRecorder) finish(ctx context.Context, ledgerPath string, summary *model.RunSummary, runErr error) {
	if r.st == nil {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	status := runStatus(summary, runErr)
	if err := r.st.CompleteRun(context.WithoutCancel(ctx), r.id, status, summary, errMsg); err != nil {
		zap.L().Warn("record run end", zap.String("run_id", r.id), zap.Error(err))
		return
	}
	zap.L().Info("run recorded",
		zap.String("run_id", r.id),
		zap.String("status", string(status)),
		zap.String("ledger", ledgerPath),
	)
}

// runStatus maps the outcome of pipeline.Run to a stored status: no
// summary means the ledger never opened, an error with a summary means the
// sweep stopped part way.
func runStatus(summary *model.RunSummary, err error) model.RunStatus {
	switch {
	case err == nil:
		return model.RunStatusComplete
	case summary == nil:
		return model.RunStatusFailed
	case errors.Is(err, pipeline.ErrLedgerUnusable), errors.Is(err, context.Canceled):
		return model.RunStatusAborted
	default:
		return model.RunStatusFailed
	}
}

// formatSummary writes the per-sector results and totals to out.
func formatSummary(out io.Writer, s *model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SECTOR\tSTATUS\tPAGES\tPROCESSED\tACCEPTED\tREASON")
	_, _ = fmt.Fprintln(w, "------\t------\t-----\t---------\t--------\t------")
	for _, r := range s.Sectors {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Sector, r.Status, r.Pages, r.Processed, r.Accepted, r.Reason)
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t\t\t%d\t%d\t\n", s.Processed, s.Accepted)
	if s.Aborted {
		_, _ = fmt.Fprintln(w, "(run aborted)")
	}
	_ = w.Flush()
}
