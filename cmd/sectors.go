package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-cli/internal/sector"
)

var sectorsOverride []string

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Print the sectors a run would sweep, in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sectors, err := sector.Resolve(cfg.Sectors, sectorsOverride)
		if err != nil {
			return err
		}
		printSectors(os.Stdout, sectors)
		return nil
	},
}

func init() {
	sectorsCmd.Flags().StringArrayVar(&sectorsOverride, "sector", nil, "sector override, as accepted by run")
	rootCmd.AddCommand(sectorsCmd)
}

func printSectors(out io.Writer, sectors []string) {
	for i, s := range sectors {
		_, _ = fmt.Fprintf(out, "%2d. %s\n", i+1, s)
	}
}
