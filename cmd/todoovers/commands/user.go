package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/source/habitica"
	"github.com/nhle/todo-overs/internal/theme"
)

// NewUserCommand creates the user management command.
func NewUserCommand(configPath *string) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage Habitica accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update an account from its user id and API token",
		Long: "Verify the credential against Habitica and store the account. " +
			"The API token is read from --token or, when omitted, from the first line of stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			token, _ := cmd.Flags().GetString("token")

			token, err := readSecret(cmd.InOrStdin(), token, "API token")
			if err != nil {
				return err
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			user, err := addUser(cmd.Context(), a, id, token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored account %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	addCmd.Flags().String("id", "", "Habitica user id (required)")
	addCmd.Flags().String("token", "", "Habitica API token (read from stdin if empty)")
	_ = addCmd.MarkFlagRequired("id")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			users, err := a.store.GetUsers(cmd.Context())
			if err != nil {
				return err
			}

			t := table.New().
				Headers("ID", "USERNAME", "ADDED").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return theme.HeaderStyle
					}
					return theme.CellStyle
				})
			for _, u := range users {
				t.Row(u.ID, u.Username, u.CreatedAt.In(a.loc).Format("2006-01-02"))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	userCmd.AddCommand(addCmd, listCmd)
	return userCmd
}

func addUser(ctx context.Context, a *app, id, token string) (model.User, error) {
	encrypted, err := a.cipher.Encrypt(token)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{ID: id, APIToken: encrypted}

	var profile *habitica.UserProfile
	err = a.retrier().Do(ctx, func(ctx context.Context) error {
		var err error
		profile, err = a.client.ValidateUser(ctx, user.Credential())
		return err
	})
	if err != nil {
		return model.User{}, fmt.Errorf("verifying credential: %w", err)
	}
	user.Username = profile.Username()

	if err := a.store.UpsertUser(ctx, user); err != nil {
		return model.User{}, err
	}
	a.log.WithUserID(user.ID).Infow("Stored account", "username", user.Username)
	return user, nil
}
