package auth

import (
	"fmt"
	"strings"

	"fdu/internal/secret"
	"fdu/internal/services/auth"
	"fdu/internal/session"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <login>",
		Short: "Store the password of a portal account",
		Long: `Store the password of a portal account in the local keychain.

With --verify the credentials are checked against the portal first and
nothing is stored when the login is rejected.

Example:
  fdu auth login user@example.com
  fdu auth login user@example.com --password hunter2 --verify`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			login := auth.NormalizeLogin(args[0])
			if login == "" {
				return fmt.Errorf("login is required")
			}

			password, _ := cmd.Flags().GetString("password")
			if strings.TrimSpace(password) == "" {
				var err error
				password, err = session.PromptPassword(cmd.ErrOrStderr(), fmt.Sprintf("Password for %s: ", login))
				if err != nil {
					return err
				}
			}

			if verify, _ := cmd.Flags().GetBool("verify"); verify {
				if err := checkLogin(cmd, login, password); err != nil {
					return err
				}
			}

			if err := auth.DefaultStore().SetPassword(login, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved password for %s\n", login)
			return nil
		},
	}

	cmd.Flags().StringP("password", "p", "", "Password (optional, overrides prompt)")
	cmd.Flags().Bool("verify", false, "Log into the portal before storing the password")

	return cmd
}

func checkLogin(cmd *cobra.Command, login, password string) error {
	log := logrus.WithField("command", cmd.CommandPath())
	client, err := session.New(session.Options{Logger: log})
	if err != nil {
		return err
	}
	r := &updater.Runner{Client: client, Logger: log}
	return r.Login(cmd.Context(), login, secret.FromEnv(password))
}
