package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"fdu/cmd/commands/audit"
	"fdu/cmd/commands/auth"
	"fdu/cmd/commands/batch"
	cfgcmd "fdu/cmd/commands/config"
	"fdu/cmd/commands/domain"
	"fdu/cmd/commands/record"
	"fdu/internal/auditlog"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes for failures scripts may want to tell apart.
const (
	ExitFailure        = 1
	ExitConfigNotFound = 5
	ExitLoginFailed    = 6
	ExitNotOwned       = 7
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "fdu",
		Short: "Keep Freenom DNS records in sync with your public IP",
		Long: `fdu manages the DNS records of domains registered at Freenom by
driving the Freenom client area. It lists, adds, updates and removes
records, renews free domains and keeps records pointed at the current
public IP address.

Quick start:
  fdu auth login user@example.com        # Store your portal password
  fdu domain ls user@example.com         # List your domains
  fdu update freenom.yml                 # Apply a config file once
  fdu process /etc/freenom.yml --cache   # Keep records up to date`,
		Version:           "1.0",
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	cmd.AddCommand(record.NewCommand())
	cmd.AddCommand(domain.NewCommand())
	cmd.AddCommand(batch.UpdateCommand())
	cmd.AddCommand(batch.ProcessCommand())
	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(audit.NewCommand())

	return cmd
}

// setupLogging configures the standard logrus logger from the root flags.
// Logs go to stderr so that stdout only carries command output.
func setupLogging(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("log-format")

	logrus.SetOutput(cmd.ErrOrStderr())
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q (valid: text, json)", format)
	}
	return nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case errors.Is(err, updater.ErrLoginFailed):
		return ExitLoginFailed
	case errors.Is(err, updater.ErrDomainNotOwned):
		return ExitNotOwned
	case errors.Is(err, fs.ErrNotExist):
		return ExitConfigNotFound
	default:
		return ExitFailure
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	var root = rootCmd()
	ctx := auditlog.WithMetadata(context.Background(), auditlog.Metadata{Args: os.Args[1:]})
	err := root.ExecuteContext(ctx)
	if err != nil {
		os.Exit(exitCode(err))
	}
}
