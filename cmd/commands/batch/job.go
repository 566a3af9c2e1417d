package batch

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"fdu/internal/config"
	"fdu/internal/portal/domain"
	"fdu/internal/reconcile"
	"fdu/internal/services/auth"
	"fdu/internal/session"
	"fdu/internal/styles"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// defaultSource returns the updater config used when none is given: the
// config-file preference, else fallback.
func defaultSource(args []string, fallback string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	prefs, err := config.Load()
	if err != nil {
		return "", err
	}
	if prefs.ConfigFile != "" {
		return prefs.ConfigFile, nil
	}
	return fallback, nil
}

// processFallback is where the periodic updater looks without arguments.
func processFallback() string {
	if runtime.GOOS == "windows" {
		return "freenom.yml"
	}
	return "/etc/freenom.yml"
}

// job is one pass over an updater config. The config is read again on
// every pass so edits apply without a restart.
type job struct {
	source       string
	command      string
	ignoreErrors bool
	log          *logrus.Entry
}

func newJob(cmd *cobra.Command, source string) job {
	ignore, _ := cmd.Flags().GetBool("ignore-errors")
	return job{
		source:       source,
		command:      cmd.CommandPath(),
		ignoreErrors: ignore,
		log:          logrus.WithFields(logrus.Fields{"command": cmd.CommandPath(), "config": source}),
	}
}

func (j job) load(ctx context.Context) (*config.Updater, string, []reconcile.Spec, error) {
	cfg, err := config.LoadUpdater(ctx, j.source)
	if err != nil {
		return nil, "", nil, err
	}
	login, err := cfg.Login()
	if err != nil {
		return nil, "", nil, err
	}
	specs, err := cfg.RecordSpecs()
	if err != nil {
		return nil, "", nil, err
	}
	return cfg, login, specs, nil
}

func (j job) open() (*session.Env, error) {
	return session.Open(session.Options{Logger: j.log})
}

// update upserts every configured record. When ips is nil the public
// addresses are looked up as needed.
func (j job) update(ctx context.Context, ips *reconcile.IPs) (updater.Result, error) {
	cfg, login, specs, err := j.load(ctx)
	if err != nil {
		return updater.Result{}, err
	}

	var records []domain.Record
	if ips != nil {
		records, err = reconcile.Expand(specs, *ips)
	} else {
		records, err = session.Records(ctx, specs, j.log)
	}
	if err != nil {
		return updater.Result{}, err
	}
	if len(records) == 0 {
		return updater.Result{}, nil
	}

	pw, err := session.UpdaterPassword(cfg, auth.DefaultStore())
	if err != nil {
		return updater.Result{}, err
	}
	env, err := j.open()
	if err != nil {
		return updater.Result{}, err
	}
	defer env.Close()
	return env.Runner(j.command, j.ignoreErrors).Records(ctx, login, pw, records, updater.Upsert)
}

// renew renews the configured domains that are due. Only the domain names
// of the records matter, so no address lookup happens.
func (j job) renew(ctx context.Context) (updater.Result, error) {
	cfg, login, specs, err := j.load(ctx)
	if err != nil {
		return updater.Result{}, err
	}
	records := make([]domain.Record, 0, len(specs))
	for _, s := range specs {
		records = append(records, domain.Record{Domain: &domain.Domain{Name: domain.NormalizeName(s.Domain)}})
	}
	if len(records) == 0 {
		return updater.Result{}, nil
	}

	pw, err := session.UpdaterPassword(cfg, auth.DefaultStore())
	if err != nil {
		return updater.Result{}, err
	}
	env, err := j.open()
	if err != nil {
		return updater.Result{}, err
	}
	defer env.Close()
	return env.Runner(j.command, j.ignoreErrors).Renew(ctx, login, pw, records)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// report prints the outcome of an update or renew pass, e.g.
// "Successfully Updated 2 records".
func report(w io.Writer, res updater.Result, noun, verb string) {
	for _, name := range res.Missing {
		fmt.Fprintln(w, styles.Warning(fmt.Sprintf("You don't own the domain %q", name)))
	}
	switch {
	case res.OK == 0 && res.Failed == 0:
		fmt.Fprintln(w, styles.Warning(fmt.Sprintf("No %s %s", noun, strings.ToLower(verb))))
	case res.Failed == 0:
		fmt.Fprintln(w, styles.Success(fmt.Sprintf("Successfully %s %s", verb, plural(res.OK, noun))))
	default:
		fmt.Fprintln(w, styles.Warning(fmt.Sprintf("%s %s, %d failed", verb, plural(res.OK, noun), res.Failed)))
		for _, err := range res.Errors {
			fmt.Fprintln(w, styles.Error("  "+err.Error()))
		}
	}
}
