package auth

import (
	"errors"
	"fmt"

	"fdu/internal/services/auth"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout <login>",
		Short: "Remove the stored password of a portal account",
		Long: `Remove the password of a portal account from the local keychain.

Example:
  fdu auth logout user@example.com`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			login := auth.NormalizeLogin(args[0])
			err := auth.DefaultStore().DeletePassword(login)
			switch {
			case errors.Is(err, auth.ErrPasswordNotFound):
				fmt.Fprintf(cmd.OutOrStdout(), "No password stored for %s\n", login)
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed password for %s\n", login)
			return nil
		},
	}

	return cmd
}
