package domain

import (
	"fmt"
	"strings"

	"fdu/internal/portal"
	"fdu/internal/styles"
	"fdu/internal/util"

	"github.com/spf13/cobra"
)

// NameserversCommand returns the "domain ns" command.
func NameserversCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ns <login> <domain> <nameserver>...",
		Short: "Use custom nameservers for a domain",
		Long: fmt.Sprintf(`Switch a domain to custom nameservers. Up to %d nameservers are
accepted; the remaining slots are cleared.

Examples:
  fdu domain ns user@example.com example.tk ns1.example.com ns2.example.com`, portal.MaxNameservers),
		Args:         cobra.RangeArgs(3, 2+portal.MaxNameservers),
		RunE:         runNameservers,
		SilenceUsage: true,
	}

	return cmd
}

func runNameservers(cmd *cobra.Command, args []string) error {
	nameservers := make([]string, 0, len(args)-2)
	for _, ns := range args[2:] {
		ns = strings.TrimSuffix(strings.TrimSpace(ns), ".")
		if err := util.ValidateDomainName(ns); err != nil {
			return fmt.Errorf("invalid nameserver %q: %w", ns, err)
		}
		nameservers = append(nameservers, strings.ToLower(ns))
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
	if err := r.Nameservers(cmd.Context(), *d, nameservers); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success(fmt.Sprintf("Nameservers of %q set to %s", d.Name, strings.Join(nameservers, ", "))))
	return nil
}
