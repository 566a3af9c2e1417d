package auth

import (
	"errors"
	"fmt"

	"fdu/internal/services/auth"
	"fdu/internal/styles"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <login>...",
		Short: "Show whether portal accounts have a stored password",
		Long: `Show which of the given portal accounts have a password in the keychain.

Example:
  fdu auth status user@example.com other@example.com`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.DefaultStore()
			out := cmd.OutOrStdout()
			for _, arg := range args {
				login := auth.NormalizeLogin(arg)
				_, err := store.GetPassword(login)
				switch {
				case err == nil:
					fmt.Fprintf(out, "%s: %s\n", login, styles.Success("logged in"))
				case errors.Is(err, auth.ErrPasswordNotFound):
					fmt.Fprintf(out, "%s: %s\n", login, styles.Warning("not logged in"))
				default:
					fmt.Fprintf(out, "%s: %s\n", login, styles.Error(fmt.Sprintf("error (%v)", err)))
				}
			}
			return nil
		},
	}

	return cmd
}
