package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/ledger"
	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/notify"
)

var notifyRecipient string

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Mail the current ledger without running a sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("notify"); err != nil {
			return err
		}

		lf := ledger.New(cfg.Ledger.Path)
		records, err := lf.LoadAll(lf.Path())
		if err != nil {
			return eris.Wrap(err, "notify: load ledger")
		}
		if len(records) == 0 {
			return eris.Errorf("notify: ledger %s is empty or missing", lf.Path())
		}

		var oracle llm.Oracle
		if cfg.LLM.ComposeEmail {
			oracle, err = llm.New(ctx, cfg)
			if err != nil {
				zap.L().Warn("oracle unavailable, using fallback email body", zap.Error(err))
				oracle = nil
			} else {
				defer closeOracle(oracle)
			}
		}

		recipient := cfg.Email.Recipient
		if notifyRecipient != "" {
			recipient = notifyRecipient
		}

		sectors := make([]string, 0)
		for _, s := range ledger.Stats(records) {
			sectors = append(sectors, s.Sector)
		}

		n := notify.New(notify.NewComposer(oracle), notify.NewMailer(cfg.Email))

		if err := n.Send(ctx, lf.Path(), recipient, len(records), sectors); err != nil {
			return err
		}
		zap.L().Info("ledger sent", zap.String("recipient", recipient), zap.Int("companies", len(records)))
		return nil
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyRecipient, "to", "", "recipient address (default from config)")
	rootCmd.AddCommand(notifyCmd)
}
