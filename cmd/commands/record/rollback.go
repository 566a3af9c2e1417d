package record

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"fdu/internal/output"
	"fdu/internal/portal/domain"
	"fdu/internal/snapshot"
	"fdu/internal/styles"
	"fdu/internal/updater"

	"github.com/spf13/cobra"
)

// RollbackCommand returns the "record rollback" command.
func RollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <login> <domain>",
		Short: "Restore the records of a domain from a snapshot",
		Long: `Restore the records of a domain as they were before an earlier change.

fdu snapshots the record table of a domain before changing it. Rollback
restores the newest snapshot, or the one given with --id, after taking a
snapshot of the current table.

Examples:
  fdu record rollback user@example.com example.tk --list
  fdu record rollback user@example.com example.tk
  fdu record rollback user@example.com example.tk --id 12`,
		Args:         cobra.ExactArgs(2),
		RunE:         runRollback,
		SilenceUsage: true,
	}

	cmd.Flags().Int64("id", 0, "Snapshot to restore (default: the newest)")
	cmd.Flags().Bool("list", false, "List the snapshots of the domain instead")
	cmd.Flags().Int("limit", 10, "Number of snapshots to list")
	cmd.Flags().StringP("format", "f", "TEXT", "Output format for --list: TEXT, JSON or YAML")

	return cmd
}

func runRollback(cmd *cobra.Command, args []string) error {
	domainName := domain.NormalizeName(args[1])

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	if env.Snapshots == nil {
		return errors.New("record snapshots are disabled or unavailable")
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		return listSnapshots(cmd, env.Snapshots, domainName)
	}

	snap, err := pickSnapshot(cmd, env.Snapshots, domainName)
	if err != nil {
		return err
	}

	pw, err := password(cmd, args[0])
	if err != nil {
		return err
	}
	r := env.Runner(cmd.Parent().CommandPath(), false)
	if err := r.Login(cmd.Context(), args[0], pw); err != nil {
		return err
	}
	if err := r.Rollback(cmd.Context(), snap); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), styles.Success(fmt.Sprintf(
		"Restored %d record(s) of %q from snapshot %d.", len(snap.Records), snap.DomainName, snap.ID)))
	return nil
}

func pickSnapshot(cmd *cobra.Command, repo snapshot.Repository, domainName string) (*snapshot.Snapshot, error) {
	id, _ := cmd.Flags().GetInt64("id")
	if id == 0 {
		snap, err := repo.Latest(domainName)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, fmt.Errorf("%w for %s", updater.ErrNoSnapshot, domainName)
		}
		return snap, nil
	}

	snap, err := repo.Get(id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: id %d", updater.ErrNoSnapshot, id)
	}
	if snap.DomainName != domainName {
		return nil, fmt.Errorf("snapshot %d belongs to %s, not %s", id, snap.DomainName, domainName)
	}
	return snap, nil
}

func listSnapshots(cmd *cobra.Command, repo snapshot.Repository, domainName string) error {
	raw, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	snaps, err := repo.List(domainName, limit)
	if err != nil {
		return err
	}

	return output.Write(cmd.OutOrStdout(), format, snaps, func(w io.Writer) error {
		if len(snaps) == 0 {
			_, err := fmt.Fprintln(w, "No snapshots found.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTAKEN\tREASON\tRECORDS")
		fmt.Fprintln(tw, "--\t-----\t------\t-------")
		for _, s := range snaps {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n",
				s.ID,
				s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				s.Reason,
				len(s.Records),
			)
		}
		return tw.Flush()
	})
}
