package session

import (
	"fdu/internal/auditlog"
	"fdu/internal/snapshot"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
)

// Env is a portal client plus the local audit log and snapshot store.
type Env struct {
	Portal    Portal
	Audit     auditlog.Repository
	Snapshots snapshot.Repository
	Log       *logrus.Entry
}

// Open builds an Env. The stores are best-effort: a store that fails to
// open is logged and left out.
func Open(opts Options) (*Env, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	p, err := New(opts)
	if err != nil {
		return nil, err
	}

	env := &Env{Portal: p, Log: opts.Logger}
	if repo, err := auditlog.OpenDefault(); err != nil {
		env.Log.WithError(err).Warn("audit log unavailable")
	} else {
		env.Audit = repo
	}
	if repo, err := snapshot.OpenDefault(); err != nil {
		env.Log.WithError(err).Warn("record snapshots unavailable")
	} else if repo != nil {
		env.Snapshots = repo
	}
	return env, nil
}

// Runner returns an updater bound to the Env.
func (e *Env) Runner(command string, ignoreErrors bool) *updater.Runner {
	return &updater.Runner{
		Client:       e.Portal,
		Audit:        e.Audit,
		Snapshots:    e.Snapshots,
		Logger:       e.Log,
		IgnoreErrors: ignoreErrors,
		Command:      command,
		RenewPeriod:  updater.DefaultRenewPeriod,
	}
}

// Close closes the stores.
func (e *Env) Close() {
	if e.Audit != nil {
		e.Audit.Close()
	}
	if e.Snapshots != nil {
		e.Snapshots.Close()
	}
}
