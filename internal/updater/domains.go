package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fdu/internal/portal/domain"

	"github.com/sirupsen/logrus"
)

var (
	// ErrRenewNotDue is returned when a domain is outside its renewal window.
	ErrRenewNotDue = errors.New("no need to renew domain")

	// ErrNameserversRefused is returned when the portal did not confirm a
	// nameserver change.
	ErrNameserversRefused = errors.New("nameserver change not confirmed")
)

// Forwarding is the URL forward of a domain.
type Forwarding struct {
	Target string `json:"url" yaml:"url"`
	Mode   string `json:"mode" yaml:"mode"`
}

// RenewDomain renews d for months when it is inside its renewal window.
func (r *Runner) RenewDomain(ctx context.Context, d domain.Domain, months int) error {
	if !r.Client.NeedRenew(d) {
		return fmt.Errorf("%w %q", ErrRenewNotDue, d.Name)
	}
	start := time.Now()
	ok, err := r.Client.Renew(ctx, d, months)
	if err == nil && !ok {
		err = fmt.Errorf("%w: %s", ErrRenewRefused, d.Name)
	}
	r.auditDomain(ctx, d, "renew", start, err)
	if err != nil {
		return err
	}
	r.log().WithFields(logrus.Fields{"domain": d.Name, "months": months}).Info("domain renewed")
	return nil
}

// CurrentForward returns the URL forward of d.
func (r *Runner) CurrentForward(ctx context.Context, d domain.Domain) (Forwarding, error) {
	target, mode, err := r.Client.CurrentURLForward(ctx, d.ID)
	if err != nil {
		return Forwarding{}, err
	}
	return Forwarding{Target: target, Mode: mode}, nil
}

// Forward points d at want unless current already matches, and reports
// whether it submitted a change.
func (r *Runner) Forward(ctx context.Context, d domain.Domain, current, want Forwarding) (bool, error) {
	if current == want {
		r.log().WithField("domain", d.Name).Info("forward already set")
		return false, nil
	}
	start := time.Now()
	err := r.Client.ChangeURLForward(ctx, d.ID, want.Target, want.Mode)
	r.auditDomain(ctx, d, "forward", start, err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Nameservers switches d to the given custom nameservers.
func (r *Runner) Nameservers(ctx context.Context, d domain.Domain, nameservers []string) error {
	start := time.Now()
	ok, err := r.Client.SetNameservers(ctx, d, nameservers)
	if err == nil && !ok {
		err = fmt.Errorf("%w: %s", ErrNameserversRefused, d.Name)
	}
	r.auditDomain(ctx, d, "ns", start, err)
	return err
}
