// Package commands implements the todoovers command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/nhle/todo-overs/internal/model"
)

// NewRootCommand builds the todoovers command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "todoovers",
		Short: "Recurring to-dos for Habitica",
		Long: "todoovers recreates completed Habitica to-dos on a day, week or month cadence " +
			"and mails a weekly summary of completed work.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "Path to the YAML config file")

	rootCmd.AddCommand(NewRunCommand(&configPath))
	rootCmd.AddCommand(NewSyncCommand(&configPath))
	rootCmd.AddCommand(NewReportCommand(&configPath))
	rootCmd.AddCommand(NewUserCommand(&configPath))
	rootCmd.AddCommand(NewTaskCommand(&configPath))
	rootCmd.AddCommand(NewKeygenCommand(&configPath))
	rootCmd.AddCommand(NewMailCommand())

	return rootCmd
}
