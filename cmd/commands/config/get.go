package config

import (
	"fmt"
	"io"
	"strings"

	"fdu/internal/config"
	"fdu/internal/output"

	"github.com/spf13/cobra"
)

// GetCommand returns the "config get" command.
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a preference value",
		Long: "Get a persistent preference value.\n\n" +
			"Without a key, every preference is listed.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  fdu config get                 # list all values\n" +
			"  fdu config get cooldown        # print a single value\n" +
			"  fdu config get -f json         # list all values as JSON",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runGet,
		SilenceUsage: true,
	}

	cmd.Flags().String("key", "", "Preference key to fetch (same as the positional key)")
	cmd.Flags().StringP("format", "f", "text", "Output format when listing: text, json or yaml")

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	key, _ := cmd.Flags().GetString("key")
	if len(args) > 0 {
		key = args[0]
	}
	key = strings.TrimSpace(key)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if key == "" {
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := output.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		values := make(map[string]string, len(config.Keys))
		for _, spec := range config.Keys {
			values[spec.Name] = spec.Get(cfg)
		}
		return output.Write(cmd.OutOrStdout(), format, values, func(w io.Writer) error {
			for _, spec := range config.Keys {
				value := values[spec.Name]
				if value == "" {
					value = "(not set)"
				}
				fmt.Fprintf(w, "%s: %s\n", spec.Name, value)
			}
			return nil
		})
	}

	spec := config.Lookup(key)
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", key, strings.Join(config.KeyNames(), ", "))
	}

	value := spec.Get(cfg)
	if value == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "not set")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), value)
	}
	return nil
}
