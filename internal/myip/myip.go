// Package myip looks up the public IPv4 and IPv6 addresses of this host.
package myip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"fdu/internal/reconcile"
	"fdu/internal/retry"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultV4URL = "http://v4.ipv6-test.com/api/myip.php?json"
	DefaultV6URL = "http://v6.ipv6-test.com/api/myip.php?json"

	defaultTimeout = 30 * time.Second
)

var (
	// ErrWrongFamily is returned when an endpoint answers with an address
	// of the other family.
	ErrWrongFamily = errors.New("address of unexpected family")

	errServer = errors.New("lookup server error")
)

// Resolver queries JSON endpoints answering {"address": "..."}.
type Resolver struct {
	Client *http.Client
	V4URL  string
	V6URL  string
	Retry  retry.Config
	Log    *logrus.Entry
}

// NewResolver returns a Resolver using the public ipv6-test.com endpoints.
func NewResolver(log *logrus.Entry) *Resolver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Resolver{
		Client: &http.Client{Timeout: defaultTimeout},
		V4URL:  DefaultV4URL,
		V6URL:  DefaultV6URL,
		Retry:  retry.DefaultConfig(),
		Log:    log,
	}
}

// IPv4 returns the public IPv4 address.
func (r *Resolver) IPv4(ctx context.Context) (netip.Addr, error) {
	return r.lookup(ctx, r.V4URL, netip.Addr.Is4)
}

// IPv6 returns the public IPv6 address.
func (r *Resolver) IPv6(ctx context.Context) (netip.Addr, error) {
	return r.lookup(ctx, r.V6URL, func(a netip.Addr) bool { return a.Is6() && !a.Is4In6() })
}

// Snapshot looks up both addresses concurrently. A failed lookup leaves
// its address invalid; the failures are returned joined so callers can
// decide whether the partial snapshot is usable.
func (r *Resolver) Snapshot(ctx context.Context) (reconcile.IPs, error) {
	var (
		ips        reconcile.IPs
		err4, err6 error
		g          errgroup.Group
	)
	g.Go(func() error {
		ips.V4, err4 = r.IPv4(ctx)
		return nil
	})
	g.Go(func() error {
		ips.V6, err6 = r.IPv6(ctx)
		return nil
	})
	_ = g.Wait()

	if err4 != nil {
		r.Log.WithError(err4).Warn("ipv4 lookup failed")
	}
	if err6 != nil {
		r.Log.WithError(err6).Debug("ipv6 lookup failed")
	}
	r.Log.WithFields(logrus.Fields{"ipv4": ips.V4, "ipv6": ips.V6}).Debug("public addresses")
	return ips, errors.Join(err4, err6)
}

func (r *Resolver) lookup(ctx context.Context, url string, family func(netip.Addr) bool) (netip.Addr, error) {
	var addr netip.Addr
	shouldRetry := retry.Any(retry.IsRetryable, func(err error) bool { return errors.Is(err, errServer) })
	err := retry.Do(ctx, r.Retry, shouldRetry, func() error {
		var err error
		addr, err = r.fetch(ctx, url)
		return err
	})
	if err != nil {
		return netip.Addr{}, fmt.Errorf("myip: %s: %w", url, err)
	}
	if !family(addr) {
		return netip.Addr{}, fmt.Errorf("myip: %s returned %s: %w", url, addr, ErrWrongFamily)
	}
	return addr, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return netip.Addr{}, fmt.Errorf("%w: %s", errServer, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return netip.Addr{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return netip.Addr{}, fmt.Errorf("failed to decode response: %w", err)
	}
	addr, err := netip.ParseAddr(out.Address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid address %q: %w", out.Address, err)
	}
	return addr, nil
}
