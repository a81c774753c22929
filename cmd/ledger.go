package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-cli/internal/ledger"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/textutil"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the lead ledger",
}

// -- ledger list --

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies in the ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("notify"); err != nil {
			return err
		}

		records, err := ledger.New(cfg.Ledger.Path).LoadAll(cfg.Ledger.Path)
		if err != nil {
			return eris.Wrap(err, "ledger list")
		}

		sectorFilter, _ := cmd.Flags().GetString("sector")
		if sectorFilter != "" {
			records = filterSector(records, sectorFilter)
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No companies found.")
			return nil
		}

		formatLedger(os.Stdout, records)
		return nil
	},
}

// -- ledger stats --

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show companies and contact coverage per sector",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("notify"); err != nil {
			return err
		}

		records, err := ledger.New(cfg.Ledger.Path).LoadAll(cfg.Ledger.Path)
		if err != nil {
			return eris.Wrap(err, "ledger stats")
		}

		formatLedgerStats(os.Stdout, ledger.Stats(records))
		return nil
	},
}

func init() {
	ledgerListCmd.Flags().String("sector", "", "only show companies of this sector")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func filterSector(records []model.CompanyRecord, sector string) []model.CompanyRecord {
	var out []model.CompanyRecord
	for _, r := range records {
		if r.Sector == sector {
			out = append(out, r)
		}
	}
	return out
}

// formatLedger writes ledger rows to w; missing contacts print as "-".
func formatLedger(out io.Writer, records []model.CompanyRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tURL\tEMAIL\tPHONE\tSECTOR")
	_, _ = fmt.Fprintln(w, "----\t---\t-----\t-----\t------")

	for _, r := range records {
		name := r.Name
		if len(name) > 40 {
			name = textutil.Truncate(name, 37) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			name,
			r.URL,
			orDash(r.Email),
			orDash(r.Phone),
			r.Sector,
		)
	}
	_ = w.Flush()
}

// formatLedgerStats writes per-sector counts and a total line to w.
func formatLedgerStats(out io.Writer, stats []ledger.SectorStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SECTOR\tCOMPANIES\tWITH_EMAIL\tWITH_PHONE")
	_, _ = fmt.Fprintln(w, "------\t---------\t----------\t----------")

	var total ledger.SectorStats
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Sector, s.Companies, s.WithEmail, s.WithPhone)
		total.Companies += s.Companies
		total.WithEmail += s.WithEmail
		total.WithPhone += s.WithPhone
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\n", total.Companies, total.WithEmail, total.WithPhone)
	_ = w.Flush()
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
