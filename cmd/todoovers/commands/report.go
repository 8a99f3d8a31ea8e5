package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReportCommand creates the report command with daily and weekly
// subcommands.
func NewReportCommand(configPath *string) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Write snapshots and send the weekly report",
	}

	reportCmd.AddCommand(&cobra.Command{
		Use:   "daily",
		Short: "Write today's snapshot for every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			agg, err := a.aggregator(false)
			if err != nil {
				return err
			}
			n, err := agg.Daily(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d snapshots to %s\n", n, a.cfg.Report.Dir)
			return nil
		},
	})

	reportCmd.AddCommand(&cobra.Command{
		Use:   "weekly",
		Short: "Mail the summary of the last seven days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			agg, err := a.aggregator(true)
			if err != nil {
				return err
			}
			return agg.Weekly(cmd.Context())
		},
	})

	return reportCmd
}
