package session

import (
	"context"
	"fmt"

	"fdu/internal/myip"
	"fdu/internal/portal/domain"
	"fdu/internal/reconcile"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
)

// IPLookup returns the current public addresses. A partial snapshot comes
// with the errors of the failed lookups.
type IPLookup func(ctx context.Context, log *logrus.Entry) (reconcile.IPs, error)

var ipLookup IPLookup = PublicIPs

// PublicIPs asks the public address endpoints.
func PublicIPs(ctx context.Context, log *logrus.Entry) (reconcile.IPs, error) {
	return myip.NewResolver(log).Snapshot(ctx)
}

// SetIPLookup replaces the address lookup. Intended for testing; Reset
// restores it.
func SetIPLookup(f IPLookup) {
	mu.Lock()
	defer mu.Unlock()
	ipLookup = f
}

// LookupIPs runs the current address lookup.
func LookupIPs(ctx context.Context, log *logrus.Entry) (reconcile.IPs, error) {
	mu.RLock()
	f := ipLookup
	mu.RUnlock()
	return f(ctx, log)
}

// Records expands specs into records, looking up the public addresses only
// when a spec needs them. Lookup failures surface as reconcile.ErrMissingIP
// from the spec that needed the address.
func Records(ctx context.Context, specs []reconcile.Spec, log *logrus.Entry) ([]domain.Record, error) {
	var ips reconcile.IPs
	if reconcile.NeedsIP(specs) {
		var err error
		ips, err = LookupIPs(ctx, log)
		if err != nil && log != nil {
			log.WithError(err).Debug("public address lookup incomplete")
		}
	}
	return reconcile.Expand(specs, ips)
}

// OwnedDomain returns the account's domain called name. The session must be
// logged in.
func (e *Env) OwnedDomain(ctx context.Context, name string) (*domain.Domain, error) {
	domains, err := e.Portal.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := domain.FindDomainByName(domains, name)
	if !ok {
		return nil, fmt.Errorf("%w: you don't own the domain %q", updater.ErrDomainNotOwned, domain.NormalizeName(name))
	}
	return d, nil
}
