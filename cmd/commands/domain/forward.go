package domain

import (
	"fmt"
	"strings"

	"fdu/internal/portal"
	"fdu/internal/styles"
	"fdu/internal/updater"

	"github.com/spf13/cobra"
)

// ForwardCommand returns the "domain forward" command.
func ForwardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forward <login> <domain>",
		Short: "Show or change the URL forward of a domain",
		Long: `Print the current URL forward of a domain, and point it at --url when
given.

Modes:
  cloak          show the target inside a frame under your domain
  301_redirect   redirect the browser to the target

Examples:
  fdu domain forward user@example.com example.tk
  fdu domain forward user@example.com example.tk -u https://example.com -m 301_redirect`,
		Args:         cobra.ExactArgs(2),
		RunE:         runForward,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("url", "u", "", "Forward target")
	cmd.Flags().StringP("mode", "m", portal.ForwardCloak, "Forward mode: cloak or 301_redirect")

	return cmd
}

func runForward(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("url")
	target = strings.TrimSpace(target)
	mode, _ := cmd.Flags().GetString("mode")
	if mode != portal.ForwardCloak && mode != portal.ForwardRedirect {
		return fmt.Errorf("%w: %q (valid: %s, %s)", portal.ErrInvalidForwardMode, mode, portal.ForwardCloak, portal.ForwardRedirect)
	}

	env, r, err := loggedIn(cmd, args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	d, err := env.OwnedDomain(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	current, err := r.CurrentForward(cmd.Context(), *d)
	if err != nil {
		env.Log.WithError(err).Warn("unable to read the current forward")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current: %s --%s--> %s\n", d.Name, current.Mode, current.Target)

	if target == "" {
		return nil
	}
	want := updater.Forwarding{Target: target, Mode: mode}
	changed, err := r.Forward(cmd.Context(), *d, current, want)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Warning("Forward already set"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success(fmt.Sprintf("New set: %s --%s--> %s", d.Name, mode, target)))
	return nil
}
