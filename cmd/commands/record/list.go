package record

import (
	"fmt"
	"io"

	"fdu/internal/output"

	"github.com/spf13/cobra"
)

// ListCommand returns the "record ls" command.
func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls <login> <domain>",
		Aliases: []string{"list"},
		Short:   "List records of a domain",
		Long: `List the DNS records of a domain you own.

Examples:
  fdu record ls user@example.com example.tk
  fdu record ls user@example.com example.tk -f json`,
		Args:         cobra.ExactArgs(2),
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

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	pw, err := password(cmd, args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := env.Runner(cmd.Parent().CommandPath(), false).Login(ctx, args[0], pw); err != nil {
		return err
	}

	d, err := env.OwnedDomain(ctx, args[1])
	if err != nil {
		return err
	}
	records, err := env.Portal.ListRecords(ctx, *d)
	if err != nil {
		return fmt.Errorf("failed to list records of %s: %w", d.Name, err)
	}

	return output.Write(cmd.OutOrStdout(), format, records, func(w io.Writer) error {
		return output.RecordTable(w, records)
	})
}
