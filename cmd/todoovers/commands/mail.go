package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/todo-overs/internal/credential"
)

// NewMailCommand creates the mail credential command.
func NewMailCommand() *cobra.Command {
	mailCmd := &cobra.Command{
		Use:   "mail",
		Short: "Manage the SMTP credential used for weekly reports",
	}

	mailCmd.AddCommand(&cobra.Command{
		Use:   "set-password",
		Short: "Store the SMTP password in the system keyring",
		Long:  "Read the SMTP password from the first line of stdin and store it in the system keyring.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd.InOrStdin(), "", "SMTP password")
			if err != nil {
				return err
			}
			if err := credential.Set(credential.SMTPPasswordKey, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stored SMTP password in the keyring")
			return nil
		},
	})

	return mailCmd
}
