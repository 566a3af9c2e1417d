// Package updater applies a batch of desired records to the portal: it logs
// in, binds each record to the owned domain, and adds, updates or removes
// it, keeping a snapshot of every zone before touching it.
package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fdu/internal/auditlog"
	"fdu/internal/portal/domain"
	"fdu/internal/reconcile"
	"fdu/internal/secret"
	"fdu/internal/snapshot"

	"github.com/sirupsen/logrus"
)

var (
	// ErrLoginFailed is returned when the portal rejects the credentials.
	ErrLoginFailed = errors.New("unable to login with the given credentials")

	// ErrDomainNotOwned is returned when a record names a domain the
	// account does not own.
	ErrDomainNotOwned = errors.New("domain not owned by the account")
)

// DefaultRenewPeriod is the number of months ordered by a renew pass.
const DefaultRenewPeriod = 12

// Portal is the part of the portal client the runner drives.
type Portal interface {
	Login(ctx context.Context, username, password string) (bool, error)
	ListDomains(ctx context.Context) ([]domain.Domain, error)
	ListRecords(ctx context.Context, d domain.Domain) ([]domain.Record, error)
	AddRecord(ctx context.Context, rec domain.Record, upsert bool, known []domain.Record) (int, error)
	RemoveRecord(ctx context.Context, rec domain.Record, known []domain.Record) (bool, error)
	RollbackUpdate(ctx context.Context, records []domain.Record) (bool, error)
	NeedRenew(d domain.Domain) bool
	Renew(ctx context.Context, d domain.Domain, periodMonths int) (bool, error)
	SetNameservers(ctx context.Context, d domain.Domain, nameservers []string) (bool, error)
	CurrentURLForward(ctx context.Context, domainID string) (target, mode string, err error)
	ChangeURLForward(ctx context.Context, domainID, target, mode string) error
}

// Action is what the runner does with each record.
type Action int

const (
	// Upsert adds missing records and updates existing ones.
	Upsert Action = iota
	// Add only adds records that do not exist yet.
	Add
	// Remove deletes the records matching name and type.
	Remove
)

func (a Action) String() string {
	switch a {
	case Upsert:
		return "upsert"
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Result counts the outcome of a batch.
type Result struct {
	// OK counts records (or domains) the portal changed.
	OK int
	// Unchanged counts items that already were in the desired state.
	Unchanged int
	// Failed counts items skipped after an error while ignoring errors.
	Failed int
	// Missing lists configured domains the account does not own.
	Missing []string
	// Errors holds the errors behind Failed.
	Errors []error
}

// Runner executes batches against one portal session.
type Runner struct {
	Client Portal

	// Audit and Snapshots are optional.
	Audit     auditlog.Repository
	Snapshots snapshot.Repository

	Logger *logrus.Entry

	// IgnoreErrors keeps going after a failed record or an unowned domain.
	IgnoreErrors bool

	// Command names the batch in the audit log, e.g. "fdu update".
	Command string

	// RenewPeriod is the number of months ordered by Renew.
	RenewPeriod int

	login string
}

func (r *Runner) log() *logrus.Entry {
	if r.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return r.Logger
}

// Login opens the session. The password is released once submitted.
func (r *Runner) Login(ctx context.Context, login string, password *secret.Secret) error {
	var ok bool
	err := password.WithDecrypted(func(plain string) error {
		var err error
		ok, err = r.Client.Login(ctx, login, plain)
		return err
	})
	if err != nil {
		return fmt.Errorf("login %s: %w", login, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLoginFailed, login)
	}
	r.login = login
	r.log().WithField("login", login).Debug("logged in")
	return nil
}

// Owned lists the account's domains and binds records to them. Unowned
// domains fail the call unless errors are ignored.
func (r *Runner) Owned(ctx context.Context, records []domain.Record) ([]domain.Domain, []domain.Record, []string, error) {
	domains, err := r.Client.ListDomains(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	attached, missing := reconcile.Attach(records, domains)
	for _, name := range missing {
		r.log().WithField("domain", name).Warn("you don't own this domain")
	}
	if len(missing) > 0 && !r.IgnoreErrors {
		return domains, attached, missing, fmt.Errorf("%w: %s", ErrDomainNotOwned, missing[0])
	}
	return domains, attached, missing, nil
}

// Records logs in and applies action to every record. Records of the same
// domain share one record listing until a mutation changes it, and that
// listing is snapshotted right before the domain's first mutation.
func (r *Runner) Records(ctx context.Context, login string, password *secret.Secret, records []domain.Record, action Action) (Result, error) {
	var res Result
	if len(records) == 0 {
		r.log().Warn("there is no record configured")
		return res, nil
	}
	if err := r.Login(ctx, login, password); err != nil {
		return res, err
	}

	_, attached, missing, err := r.Owned(ctx, records)
	res.Missing = missing
	if err != nil {
		return res, err
	}

	known := map[string][]domain.Record{}
	snapped := map[string]bool{}
	for _, rec := range attached {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id := rec.Domain.ID
		if _, ok := known[id]; !ok {
			current, err := r.Client.ListRecords(ctx, *rec.Domain)
			if err != nil {
				if !r.fail(&res, rec, action, err) {
					return res, err
				}
				continue
			}
			known[id] = current
		}
		start := time.Now()
		var (
			changed bool
			err     error
		)
		if r.needsChange(rec, action, known[id]) {
			if !snapped[id] {
				r.snapshot(*rec.Domain, known[id], action.String())
				snapped[id] = true
			}
			changed, err = r.apply(ctx, rec, action, known[id])
		}
		switch {
		case err != nil:
			r.audit(ctx, rec, action, start, "", err)
			if !r.fail(&res, rec, action, err) {
				return res, err
			}
		case changed:
			res.OK++
			delete(known, id)
			r.audit(ctx, rec, action, start, auditlog.OutcomeSuccess, nil)
		default:
			res.Unchanged++
			r.audit(ctx, rec, action, start, auditlog.OutcomeUnchanged, nil)
		}
	}
	return res, nil
}

// needsChange reports whether the known listing already satisfies the
// action, in which case the portal is not asked at all.
func (r *Runner) needsChange(rec domain.Record, action Action, known []domain.Record) bool {
	log := r.log().WithFields(logrus.Fields{"domain": rec.Domain.Name, "record": rec.String(), "action": action})
	existing, ok := domain.FindRecord(known, rec.Key())
	switch {
	case action == Remove && !ok:
		log.Info("record already absent")
		return false
	case action == Add && ok:
		log.Info("record already exists")
		return false
	case action == Upsert && ok && existing.TTL == rec.TTL && existing.Target == rec.Target:
		log.Debug("record up to date")
		return false
	}
	return true
}

// apply runs one action and reports whether the portal changed anything.
func (r *Runner) apply(ctx context.Context, rec domain.Record, action Action, known []domain.Record) (bool, error) {
	log := r.log().WithFields(logrus.Fields{"domain": rec.Domain.Name, "record": rec.String(), "action": action})

	switch action {
	case Upsert, Add:
		n, err := r.Client.AddRecord(ctx, rec, action == Upsert, known)
		if domain.IsNoChanges(err) {
			log.Debug("portal reported no changes")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		log.WithField("confirmed", n).Info("record applied")
		return n > 0, nil
	case Remove:
		ok, err := r.Client.RemoveRecord(ctx, rec, known)
		if err != nil {
			return false, err
		}
		log.Info("record removed")
		return ok, nil
	default:
		return false, fmt.Errorf("unknown action %s", action)
	}
}

// fail records err and reports whether the batch may go on.
func (r *Runner) fail(res *Result, rec domain.Record, action Action, err error) bool {
	if !r.IgnoreErrors {
		return false
	}
	res.Failed++
	res.Errors = append(res.Errors, err)
	r.log().WithError(err).WithFields(logrus.Fields{"record": rec.String(), "action": action}).Warn("record failed")
	return true
}

func (r *Runner) snapshot(d domain.Domain, records []domain.Record, reason string) {
	if r.Snapshots == nil || len(records) == 0 {
		return
	}
	s := &snapshot.Snapshot{
		Account:    r.login,
		DomainID:   d.ID,
		DomainName: d.Name,
		Reason:     reason,
		Records:    records,
	}
	if err := r.Snapshots.Save(s); err != nil {
		r.log().WithError(err).Warn("failed to save record snapshot")
		return
	}
	r.log().WithFields(logrus.Fields{"domain": d.Name, "snapshot": s.ID}).Debug("records snapshotted")
}

func (r *Runner) audit(ctx context.Context, rec domain.Record, action Action, start time.Time, outcome string, err error) {
	if r.Audit == nil {
		return
	}
	ctx = auditlog.WithMetadata(ctx, auditlog.ForRecord(r.login, rec))
	command := r.Command + " " + action.String()
	if saveErr := auditlog.Write(ctx, r.Audit, command, start, outcome, err); saveErr != nil {
		r.log().WithError(saveErr).Debug("failed to write audit entry")
	}
}
