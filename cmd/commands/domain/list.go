package domain

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fdu/internal/output"
	"fdu/internal/portal"
	"fdu/internal/styles"

	"github.com/spf13/cobra"
)

// ListCommand returns the "domain ls" command.
func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls <login>",
		Aliases: []string{"list"},
		Short:   "List domains",
		Long: `List the domains of an account with their state and expiry.

Examples:
  fdu domain ls user@example.com
  fdu domain ls user@example.com -f yaml`,
		Args:         cobra.ExactArgs(1),
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("format", "f", "TEXT", "Output format: TEXT, JSON or YAML")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return err
	}

	env, _, err := loggedIn(cmd, args[0])
	if err != nil {
		return err
	}
	defer env.Close()

	domains, err := env.Portal.ListDomains(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list domains: %w", err)
	}

	now := time.Now()
	return output.Write(cmd.OutOrStdout(), format, output.Domains(domains), func(w io.Writer) error {
		if len(domains) == 0 {
			_, err := fmt.Fprintln(w, "No domains found.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		fmt.Fprintln(tw, "ID\tDOMAIN\tSTATE\tTYPE\tREGISTERED\tEXPIRES\tDAYS LEFT")
		fmt.Fprintln(tw, "--\t------\t-----\t----\t----------\t-------\t---------")
		for _, d := range domains {
			days := d.DaysUntilExpiry(now)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				d.ID,
				d.Name,
				styles.DomainStateStyle(d.State).Render(d.State),
				d.Type,
				d.RegisterDate.Format(time.DateOnly),
				d.ExpireDate.Format(time.DateOnly),
				styles.ExpiryStyle(days, portal.RenewWindowDays).Render(fmt.Sprint(days)),
			)
		}
		return tw.Flush()
	})
}
