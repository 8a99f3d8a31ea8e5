package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/todo-overs/internal/credential"
	"github.com/nhle/todo-overs/internal/model"
)

// NewKeygenCommand creates the cipher key command.
func NewKeygenCommand(configPath *string) *cobra.Command {
	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the key file used to encrypt stored API tokens",
		Long: "Create the key file named by cipher.key_file if it does not exist. " +
			"An existing key is never replaced; tokens stored under it would become unreadable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printOnly, _ := cmd.Flags().GetBool("print")
			if printOnly {
				key, err := credential.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			}

			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			_, created, err := credential.LoadOrCreateKey(cfg.Cipher.KeyFile)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created key %s\n", cfg.Cipher.KeyFile)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Key %s already exists\n", cfg.Cipher.KeyFile)
			}
			return nil
		},
	}
	keygenCmd.Flags().Bool("print", false, "Print a fresh key instead of writing the key file")
	return keygenCmd
}
