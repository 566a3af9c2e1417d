package domain

import (
	"fmt"

	pdomain "fdu/internal/portal/domain"
	"fdu/internal/styles"
	"fdu/internal/updater"

	"github.com/spf13/cobra"
)

// RenewCommand returns the "domain renew" command.
func RenewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renew <login> <domain>",
		Short: "Renew a domain",
		Long: `Renew a free domain for a number of months. Freenom only accepts
renewals during the last days before expiry.

Examples:
  fdu domain renew user@example.com example.tk
  fdu domain renew user@example.com example.tk --period 3`,
		Args:         cobra.ExactArgs(2),
		RunE:         runRenew,
		SilenceUsage: true,
	}

	cmd.Flags().Int("period", updater.DefaultRenewPeriod, "Number of months (1-12)")

	return cmd
}

func runRenew(cmd *cobra.Command, args []string) error {
	period, _ := cmd.Flags().GetInt("period")
	if period < 1 || period > 12 {
		return fmt.Errorf("%w: %d months (valid: 1-12)", pdomain.ErrInvalidPeriod, period)
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
	if err := r.RenewDomain(cmd.Context(), *d, period); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success(fmt.Sprintf("Renewed %q for %d months", d.Name, period)))
	return nil
}
