package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tasksync "github.com/nhle/todo-overs/internal/sync"
	"github.com/nhle/todo-overs/internal/theme"
)

// NewSyncCommand creates the one-shot sync command.
func NewSyncCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle over every tracked task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.runner().RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d tasks in %s\n",
				theme.HeaderStyle.Render("sync"), summary.Tasks, summary.Duration.Round(time.Millisecond))
			for _, o := range []tasksync.Outcome{
				tasksync.OutcomeRecreated, tasksync.OutcomeDeleted, tasksync.OutcomeWaiting,
				tasksync.OutcomeUnchanged, tasksync.OutcomeGaveUp, tasksync.OutcomeFailed,
			} {
				if n := summary.Outcomes[o]; n > 0 {
					fmt.Fprintf(out, "  %s %d\n", theme.OutcomeStyle(string(o)).Render(string(o)), n)
				}
			}
			if summary.TagFailures > 0 || summary.MissingOwners > 0 {
				fmt.Fprintln(out, theme.HelpStyle.Render(fmt.Sprintf(
					"%d tag refreshes failed, %d tasks had no owner", summary.TagFailures, summary.MissingOwners)))
			}
			return nil
		},
	}
}
