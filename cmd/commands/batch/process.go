package batch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fdu/internal/cache"
	"fdu/internal/config"
	"fdu/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	minPeriod     = 10
	maxPeriod     = 30 * 24 * 60 * 60
	defaultPeriod = 60 * 60

	// stateMaxAge forces a full update at least once a day even when the
	// public addresses did not move.
	stateMaxAge = 24 * time.Hour
)

// ProcessCommand returns the "process" command, the long-running updater.
func ProcessCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [config]",
		Short: "Periodically update the records listed in an updater config",
		Long: `Run the update of an updater config now and then every --period seconds
until interrupted. The config is read again on every tick.

With --cache the public addresses are remembered between ticks and the
portal is only contacted when they change. With --renew the configured
domains that are due are renewed once a day.

Without a config, the config-file preference is used, then
/etc/freenom.yml.`,
		Example: `  fdu process -c -r
  fdu process /etc/freenom.yml -t 600
  fdu process --once -c`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runProcess,
	}

	cmd.Flags().IntP("period", "t", defaultPeriod, fmt.Sprintf("Seconds between updates (%d to %d)", minPeriod, maxPeriod))
	cmd.Flags().BoolP("ignore-errors", "i", false, "Keep going after a failed record or an unowned domain")
	cmd.Flags().BoolP("cache", "c", false, "Skip the update while the public addresses are unchanged")
	cmd.Flags().BoolP("renew", "r", false, "Renew the configured domains once a day")
	cmd.Flags().Bool("once", false, "Run a single pass and exit")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	period, _ := cmd.Flags().GetInt("period")
	if period < minPeriod || period > maxPeriod {
		return fmt.Errorf("period must be between %d and %d seconds, got %d", minPeriod, maxPeriod, period)
	}
	useCache, _ := cmd.Flags().GetBool("cache")
	renew, _ := cmd.Flags().GetBool("renew")
	once, _ := cmd.Flags().GetBool("once")

	source, err := defaultSource(args, processFallback())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// A broken config at startup is fatal; later ticks only log.
	if _, err := config.LoadUpdater(ctx, source); err != nil {
		return err
	}

	p := &processor{
		job:   newJob(cmd, source),
		cache: useCache,
		renew: renew,
		store: cache.NewDefault(),
		now:   time.Now,
	}

	if once {
		p.tick(ctx)
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(period) * time.Second)
	defer ticker.Stop()

	p.job.log.WithField("period", period).Info("updater started")
	p.run(ctx, ticker.C)
	p.job.log.Info("updater stopped")
	return nil
}

// processor runs the job on every tick and keeps the cached state.
type processor struct {
	job   job
	cache bool
	renew bool
	store *cache.Cache
	now   func() time.Time
}

// run ticks right away and then on every value of ticks until ctx is done.
func (p *processor) run(ctx context.Context, ticks <-chan time.Time) {
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			p.tick(ctx)
		}
	}
}

// tick runs one pass. Errors are logged and the next tick tries again.
func (p *processor) tick(ctx context.Context) {
	log := p.job.log
	state, _, err := p.store.LoadState(p.job.source, stateMaxAge)
	if err != nil {
		log.WithError(err).Debug("failed to read updater state")
	}

	if err := p.update(ctx, &state); err != nil {
		log.WithError(err).Error("update failed")
	}
	if p.renew {
		if err := p.renewDue(ctx, &state); err != nil {
			log.WithError(err).Error("renew failed")
		}
	}
}

func (p *processor) update(ctx context.Context, state *cache.State) error {
	log := p.job.log
	if !p.cache {
		res, err := p.job.update(ctx, nil)
		p.log(res.OK, res.Failed, "records updated")
		return err
	}

	ips, err := session.LookupIPs(ctx, log)
	if err != nil {
		log.WithError(err).Debug("public address lookup incomplete")
	}
	if ips.Equal(state.IPs) && (ips.V4.IsValid() || ips.V6.IsValid()) {
		log.Debug("public addresses unchanged, skipping update")
		return nil
	}

	res, err := p.job.update(ctx, &ips)
	p.log(res.OK, res.Failed, "records updated")
	if err != nil {
		return err
	}
	state.IPs = ips
	return p.save(*state)
}

func (p *processor) renewDue(ctx context.Context, state *cache.State) error {
	today := p.now().Format(time.DateOnly)
	if state.RenewedOn == today {
		return nil
	}
	res, err := p.job.renew(ctx)
	p.log(res.OK, res.Failed, "domains renewed")
	if err != nil {
		return err
	}
	state.RenewedOn = today
	return p.save(*state)
}

func (p *processor) log(ok, failed int, what string) {
	p.job.log.WithFields(logrus.Fields{"ok": ok, "failed": failed}).Info(what)
}

func (p *processor) save(s cache.State) error {
	if err := p.store.SaveState(p.job.source, s); err != nil {
		return fmt.Errorf("save updater state: %w", err)
	}
	return nil
}
