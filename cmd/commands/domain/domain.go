package domain

import (
	"fdu/internal/services/auth"
	"fdu/internal/session"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCommand returns the "domain" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Manage domains",
		Long: `List your domains, renew them, and change their URL forward or
nameservers.

The password is taken from --password, then from the keychain entry saved
with 'fdu auth login', then asked for when running in a terminal.`,
	}

	cmd.PersistentFlags().StringP("password", "p", "", "Portal password (defaults to the keychain entry)")

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(RenewCommand())
	cmd.AddCommand(ForwardCommand())
	cmd.AddCommand(NameserversCommand())

	return cmd
}

// loggedIn opens an Env and logs login in. The caller closes the Env.
func loggedIn(cmd *cobra.Command, login string) (*session.Env, *updater.Runner, error) {
	env, err := session.Open(session.Options{
		Logger: logrus.WithField("command", cmd.CommandPath()),
	})
	if err != nil {
		return nil, nil, err
	}

	explicit, _ := cmd.Flags().GetString("password")
	pw, err := session.Password(login, explicit, auth.DefaultStore(), cmd.ErrOrStderr())
	if err != nil {
		env.Close()
		return nil, nil, err
	}
	r := env.Runner(cmd.Parent().CommandPath(), false)
	if err := r.Login(cmd.Context(), login, pw); err != nil {
		env.Close()
		return nil, nil, err
	}
	return env, r, nil
}
