package batch

import (
	"context"
	"os"

	"fdu/internal/updater"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// UpdateCommand returns the "update" command, which pushes every record of
// an updater config once.
func UpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [config]",
		Short: "Update the records listed in an updater config",
		Long: `Log in with the account of the updater config and add or update each
configured record. Records without a target point to the public IPv4
and/or IPv6 address of this host.

The config is a local path, a file:// URL or an http(s):// URL. Without
one, the config-file preference is used, then ./freenom.yml.`,
		Example: `  fdu update
  fdu update /etc/freenom.yml
  fdu update https://example.com/freenom.yml -i`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runUpdate,
	}

	cmd.Flags().BoolP("ignore-errors", "i", false, "Keep going after a failed record or an unowned domain")

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	source, err := defaultSource(args, "freenom.yml")
	if err != nil {
		return err
	}
	j := newJob(cmd, source)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var res updater.Result
	if term.IsTerminal(int(os.Stdout.Fd())) {
		var runErr error
		spinErr := spinner.New().
			Title("Updating records...").
			Accessible(os.Getenv("ACCESSIBLE") != "").
			Output(cmd.ErrOrStderr()).
			Action(func() {
				res, runErr = j.update(ctx, nil)
			}).
			Run()
		if spinErr != nil {
			return spinErr
		}
		err = runErr
	} else {
		res, err = j.update(ctx, nil)
	}

	if err != nil && res.OK == 0 && res.Failed == 0 && len(res.Missing) == 0 {
		return err
	}
	report(cmd.OutOrStdout(), res, "record", "Updated")
	return err
}
