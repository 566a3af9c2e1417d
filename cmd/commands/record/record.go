package record

import (
	"fdu/internal/secret"
	"fdu/internal/services/auth"
	"fdu/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCommand returns the "record" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage DNS records of a domain",
		Long: `List, add, update and remove the DNS records of a domain you own.

The password is taken from --password, then from the keychain entry saved
with 'fdu auth login', then asked for when running in a terminal.`,
	}

	cmd.PersistentFlags().StringP("password", "p", "", "Portal password (defaults to the keychain entry)")

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(AddCommand())
	cmd.AddCommand(UpdateCommand())
	cmd.AddCommand(RemoveCommand())
	cmd.AddCommand(RollbackCommand())

	return cmd
}

func openEnv(cmd *cobra.Command) (*session.Env, error) {
	return session.Open(session.Options{
		Logger: logrus.WithField("command", cmd.CommandPath()),
	})
}

func password(cmd *cobra.Command, login string) (*secret.Secret, error) {
	explicit, _ := cmd.Flags().GetString("password")
	return session.Password(login, explicit, auth.DefaultStore(), cmd.ErrOrStderr())
}
