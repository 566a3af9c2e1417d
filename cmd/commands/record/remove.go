package record

import (
	"fmt"
	"strings"

	"fdu/internal/portal/domain"
	"fdu/internal/styles"
	"fdu/internal/updater"

	"github.com/spf13/cobra"
)

// RemoveCommand returns the "record rm" command.
func RemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <login> <domain>",
		Aliases: []string{"remove"},
		Short:   "Remove a record from a domain",
		Long: `Remove the record of the given name and type. Without --type both the
A and the AAAA record of that name are removed.

Examples:
  fdu record rm user@example.com example.tk -n www -t AAAA
  fdu record rm user@example.com example.tk -n old`,
		Args:         cobra.ExactArgs(2),
		RunE:         runRemove,
		SilenceUsage: true,
	}

	cmd.Flags().StringP("name", "n", "", "Record name (empty for the apex)")
	cmd.Flags().StringP("type", "t", "", "Record type (default: A and AAAA)")

	return cmd
}

// removalRecords returns the records to remove. Only name and type matter.
func removalRecords(domainName, name, typ string) ([]domain.Record, error) {
	types := []domain.RecordType{domain.RecordTypeA, domain.RecordTypeAAAA}
	if strings.TrimSpace(typ) != "" {
		t, err := domain.ParseRecordType(typ)
		if err != nil {
			return nil, err
		}
		types = []domain.RecordType{t}
	}

	owner := &domain.Domain{Name: domain.NormalizeName(domainName)}
	records := make([]domain.Record, 0, len(types))
	for _, t := range types {
		records = append(records, domain.NewRecord(name, t, domain.DefaultTTL, "").WithDomain(owner))
	}
	return records, nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := validateNames(cmd, args[1]); err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	typ, _ := cmd.Flags().GetString("type")
	records, err := removalRecords(args[1], name, typ)
	if err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	pw, err := password(cmd, args[0])
	if err != nil {
		return err
	}
	res, err := env.Runner(cmd.Parent().CommandPath(), false).Records(cmd.Context(), args[0], pw, records, updater.Remove)
	if err != nil {
		return err
	}
	if res.OK == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Warning("No record removed"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success("Record successfully removed."))
	return nil
}
