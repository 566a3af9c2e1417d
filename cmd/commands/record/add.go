package record

import (
	"fmt"
	"strings"

	"fdu/internal/reconcile"
	"fdu/internal/session"
	"fdu/internal/styles"
	"fdu/internal/updater"
	"fdu/internal/util"

	"github.com/spf13/cobra"
)

// AddCommand returns the "record add" command.
func AddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <login> <domain>",
		Short: "Add a record to a domain",
		Long: `Add a record to a domain, updating a record of the same name and type
unless --update=false is given.

Without --type and --target, an A record (and an AAAA record when an IPv6
address is available) pointing at the current public address is added.

Examples:
  fdu record add user@example.com example.tk -n www
  fdu record add user@example.com example.tk -n mail -t MX -a mx.example.com
  fdu record add user@example.com example.tk -n www -u=false`,
		Args:         cobra.ExactArgs(2),
		RunE:         runAdd,
		SilenceUsage: true,
	}

	addRecordFlags(cmd)
	cmd.Flags().BoolP("update", "u", true, "Update an existing record of the same name and type")

	return cmd
}

// UpdateCommand returns the "record update" command.
func UpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <login> <domain>",
		Short: "Update a record of a domain",
		Long: `Update the record of the given name and type, adding it when missing.

Examples:
  fdu record update user@example.com example.tk -n www -t A
  fdu record update user@example.com example.tk -n www -a 10.0.0.1 -l 3600`,
		Args:         cobra.ExactArgs(2),
		RunE:         runUpdate,
		SilenceUsage: true,
	}

	addRecordFlags(cmd)

	return cmd
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "Record name, the subdomain label (empty for the apex)")
	cmd.Flags().StringP("type", "t", "", "Record type: A, AAAA, CNAME, LOC, MX, NAPTR, RP or TXT")
	cmd.Flags().StringP("target", "a", "", "Record target (default: the current public address)")
	cmd.Flags().IntP("ttl", "l", 0, "Record time to live in seconds")
}

// specFromFlags builds the record spec for domainName. Empty flags are left
// unset so the usual defaults apply.
func specFromFlags(cmd *cobra.Command, domainName string) reconcile.Spec {
	spec := reconcile.Spec{Domain: domainName}
	if name, _ := cmd.Flags().GetString("name"); strings.TrimSpace(name) != "" {
		spec.Name = &name
	}
	if typ, _ := cmd.Flags().GetString("type"); strings.TrimSpace(typ) != "" {
		spec.Type = typ
	}
	if target, _ := cmd.Flags().GetString("target"); strings.TrimSpace(target) != "" {
		spec.Target = &target
	}
	if cmd.Flags().Changed("ttl") {
		ttl, _ := cmd.Flags().GetInt("ttl")
		spec.TTL = &ttl
	}
	return spec
}

func applySpec(cmd *cobra.Command, args []string, action updater.Action) (updater.Result, error) {
	if err := validateNames(cmd, args[1]); err != nil {
		return updater.Result{}, err
	}
	env, err := openEnv(cmd)
	if err != nil {
		return updater.Result{}, err
	}
	defer env.Close()

	records, err := session.Records(cmd.Context(), []reconcile.Spec{specFromFlags(cmd, args[1])}, env.Log)
	if err != nil {
		return updater.Result{}, err
	}
	pw, err := password(cmd, args[0])
	if err != nil {
		return updater.Result{}, err
	}
	return env.Runner(cmd.Parent().CommandPath(), false).Records(cmd.Context(), args[0], pw, records, action)
}

func runAdd(cmd *cobra.Command, args []string) error {
	upsert, _ := cmd.Flags().GetBool("update")
	action := updater.Add
	if upsert {
		action = updater.Upsert
	}

	res, err := applySpec(cmd, args, action)
	if err != nil {
		return err
	}
	if res.OK == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Warning("No record updated"))
		return nil
	}
	msg := "Record successfully added."
	if upsert {
		msg = "Record successfully added/updated."
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success(msg))
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	res, err := applySpec(cmd, args, updater.Upsert)
	if err != nil {
		return err
	}
	if res.OK == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), styles.Warning("No record updated"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Success("Record successfully added/updated"))
	return nil
}

func validateNames(cmd *cobra.Command, domainName string) error {
	if err := util.ValidateDomainName(domainName); err != nil {
		return fmt.Errorf("invalid domain %q: %w", domainName, err)
	}
	name, _ := cmd.Flags().GetString("name")
	if err := util.ValidateRecordName(strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("invalid record name %q: %w", name, err)
	}
	return nil
}
