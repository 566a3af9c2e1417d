package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fdu/internal/auditlog"
	"fdu/internal/portal/domain"
	"fdu/internal/secret"

	"github.com/sirupsen/logrus"
)

// ErrRenewRefused is returned when the portal did not confirm a renewal.
var ErrRenewRefused = errors.New("renewal not confirmed")

// Renew logs in and renews every distinct owned domain named by records
// that is inside its renewal window. Domains not yet due count as
// unchanged.
func (r *Runner) Renew(ctx context.Context, login string, password *secret.Secret, records []domain.Record) (Result, error) {
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

	period := r.RenewPeriod
	if period == 0 {
		period = DefaultRenewPeriod
	}

	seen := map[string]bool{}
	for _, rec := range attached {
		d := *rec.Domain
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		if err := ctx.Err(); err != nil {
			return res, err
		}

		log := r.log().WithFields(logrus.Fields{"domain": d.Name, "expires": d.ExpireDate.Format(time.DateOnly)})
		if !r.Client.NeedRenew(d) {
			log.Debug("no need to renew")
			res.Unchanged++
			continue
		}

		start := time.Now()
		ok, err := r.Client.Renew(ctx, d, period)
		if err == nil && !ok {
			err = fmt.Errorf("%w: %s", ErrRenewRefused, d.Name)
		}
		r.auditDomain(ctx, d, "renew", start, err)
		if err != nil {
			if !r.IgnoreErrors {
				return res, err
			}
			res.Failed++
			res.Errors = append(res.Errors, err)
			log.WithError(err).Warn("renew failed")
			continue
		}
		log.WithField("months", period).Info("domain renewed")
		res.OK++
	}
	return res, nil
}

func (r *Runner) auditDomain(ctx context.Context, d domain.Domain, op string, start time.Time, err error) {
	if r.Audit == nil {
		return
	}
	ctx = auditlog.WithMetadata(ctx, auditlog.ForDomain(r.login, d))
	if saveErr := auditlog.Write(ctx, r.Audit, r.Command+" "+op, start, "", err); saveErr != nil {
		r.log().WithError(saveErr).Debug("failed to write audit entry")
	}
}
