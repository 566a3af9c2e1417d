package audit

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fdu/internal/auditlog"
	"fdu/internal/output"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit entries",
		Long: `List recent audit entries stored locally.

Examples:
  fdu audit list
  fdu audit list --limit 50
  fdu audit list --command "fdu update upsert"
  fdu audit list --account user@example.com -f json
  fdu audit list --domain example.tk --outcome error`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of entries to display")
	cmd.Flags().String("command", "", "Filter by exact command path")
	cmd.Flags().String("account", "", "Filter by portal login")
	cmd.Flags().String("domain", "", "Filter by domain name")
	cmd.Flags().String("outcome", "", "Filter by outcome: success, unchanged or error")
	cmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	filter := auditlog.Filter{Limit: limit}
	filter.Command, _ = cmd.Flags().GetString("command")
	filter.Account, _ = cmd.Flags().GetString("account")
	filter.Domain, _ = cmd.Flags().GetString("domain")
	filter.Outcome, _ = cmd.Flags().GetString("outcome")
	switch filter.Outcome {
	case "", auditlog.OutcomeSuccess, auditlog.OutcomeUnchanged, auditlog.OutcomeError:
	default:
		return fmt.Errorf("unknown outcome %q", filter.Outcome)
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	repo, err := auditlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	entries, err := repo.Query(filter)
	if err != nil {
		return err
	}

	return output.Write(cmd.OutOrStdout(), format, entries, func(out io.Writer) error {
		return entryTable(out, entries)
	})
}

func entryTable(out io.Writer, entries []auditlog.AuditEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit entries found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCOMMAND\tACCOUNT\tOUTCOME\tDURATION\tSUBJECT\tDETAIL")
	fmt.Fprintln(w, "----\t-------\t-------\t-------\t--------\t-------\t------")
	for _, entry := range entries {
		timeStr := entry.Timestamp.Local().Format("2006-01-02 15:04:05")
		detail := entry.Detail
		if detail == "" {
			detail = "-"
		}

		account := entry.Account
		if account == "" {
			account = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			timeStr,
			entry.Command,
			account,
			entry.Outcome,
			formatDuration(entry.DurationMs),
			entry.Subject(),
			detail,
		)
	}
	return w.Flush()
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}
