// Package sessiontest provides an in-memory portal for command tests.
package sessiontest

import (
	"context"
	"net/netip"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fdu/internal/config"
	"fdu/internal/database"
	"fdu/internal/portal/domain"
	"fdu/internal/reconcile"
	"fdu/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

// Login and Password are the credentials the fake portal accepts.
const (
	Login    = "user@example.com"
	Password = "hunter2"
)

// Portal is an in-memory stand-in for the portal client.
type Portal struct {
	mu sync.Mutex

	Domains  []domain.Domain
	Zones    map[string][]domain.Record
	Due      map[string]bool
	Forwards map[string][2]string
	NS       map[string][]string
	RenewOK  bool

	// Calls records every call, e.g. "login", "add WWW A".
	Calls []string

	loggedIn bool
}

// NewPortal returns a portal owning test.tk (two A records) and the empty
// test2.tk.
func NewPortal() *Portal {
	return &Portal{
		Domains: []domain.Domain{
			{ID: "100", Name: "test.tk", State: "Active", Type: "Free"},
			{ID: "200", Name: "test2.tk", State: "Active", Type: "Free"},
		},
		Zones: map[string][]domain.Record{
			"100": {
				domain.NewRecord("", domain.RecordTypeA, 14440, "10.0.0.1"),
				domain.NewRecord("www", domain.RecordTypeA, 14440, "10.0.0.1"),
			},
		},
		Due:      map[string]bool{},
		Forwards: map[string][2]string{"100": {"https://example.com", "cloak"}},
		NS:       map[string][]string{},
		RenewOK:  true,
	}
}

// Count returns how many calls start with prefix.
func (p *Portal) Count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Zone returns a copy of the records of domain id.
func (p *Portal) Zone(id string) []domain.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Record(nil), p.Zones[id]...)
}

func (p *Portal) call(c string) {
	p.mu.Lock()
	p.Calls = append(p.Calls, c)
	p.mu.Unlock()
}

func (p *Portal) Login(_ context.Context, username, password string) (bool, error) {
	p.call("login")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loggedIn = username == Login && password == Password
	return p.loggedIn, nil
}

func (p *Portal) IsLoggedIn(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn, nil
}

func (p *Portal) ListDomains(context.Context) ([]domain.Domain, error) {
	p.call("domains")
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Domain(nil), p.Domains...), nil
}

func (p *Portal) ListRecords(_ context.Context, d domain.Domain) ([]domain.Record, error) {
	p.call("records " + d.Name)
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Record, len(p.Zones[d.ID]))
	for i, r := range p.Zones[d.ID] {
		out[i] = r.WithDomain(&d)
	}
	return out, nil
}

func (p *Portal) AddRecord(_ context.Context, rec domain.Record, upsert bool, _ []domain.Record) (int, error) {
	p.call("add " + rec.Name + " " + rec.Type.String())
	p.mu.Lock()
	defer p.mu.Unlock()
	zone := p.Zones[rec.Domain.ID]
	for i := range zone {
		if zone[i].Key() == rec.Key() {
			if !upsert {
				return 0, nil
			}
			zone[i].TTL, zone[i].Target = rec.TTL, rec.Target
			return 1, nil
		}
	}
	p.Zones[rec.Domain.ID] = append(zone, domain.NewRecord(rec.Name, rec.Type, rec.TTL, rec.Target))
	return 1, nil
}

func (p *Portal) UpdateRecord(ctx context.Context, rec domain.Record, known []domain.Record) (int, error) {
	return p.AddRecord(ctx, rec, true, known)
}

func (p *Portal) RemoveRecord(_ context.Context, rec domain.Record, _ []domain.Record) (bool, error) {
	p.call("remove " + rec.Name + " " + rec.Type.String())
	p.mu.Lock()
	defer p.mu.Unlock()
	zone := p.Zones[rec.Domain.ID]
	for i := range zone {
		if zone[i].Key() == rec.Key() {
			p.Zones[rec.Domain.ID] = append(zone[:i:i], zone[i+1:]...)
			return true, nil
		}
	}
	return false, &domain.RemoveError{RecordError: domain.RecordError{Messages: []string{"record not found"}, Record: rec}}
}

func (p *Portal) RollbackUpdate(_ context.Context, records []domain.Record) (bool, error) {
	p.call("rollback " + records[0].Domain.Name)
	p.mu.Lock()
	defer p.mu.Unlock()
	zone := make([]domain.Record, len(records))
	for i, r := range records {
		zone[i] = domain.NewRecord(r.Name, r.Type, r.TTL, r.Target)
	}
	p.Zones[records[0].Domain.ID] = zone
	return true, nil
}

func (p *Portal) NeedRenew(d domain.Domain) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Due[d.ID]
}

func (p *Portal) Renew(_ context.Context, d domain.Domain, _ int) (bool, error) {
	p.call("renew " + d.Name)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RenewOK {
		p.Due[d.ID] = false
	}
	return p.RenewOK, nil
}

func (p *Portal) SetNameservers(_ context.Context, d domain.Domain, ns []string) (bool, error) {
	p.call("ns " + d.Name)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NS[d.ID] = append([]string(nil), ns...)
	return true, nil
}

func (p *Portal) CurrentURLForward(_ context.Context, id string) (string, string, error) {
	p.call("forward? " + id)
	p.mu.Lock()
	defer p.mu.Unlock()
	fw := p.Forwards[id]
	return fw[0], fw[1], nil
}

func (p *Portal) ChangeURLForward(_ context.Context, id, target, mode string) error {
	p.call("forward " + id)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Forwards[id] = [2]string{target, mode}
	return nil
}

// IPs are the public addresses Install reports.
var IPs = reconcile.IPs{
	V4: netip.MustParseAddr("49.20.57.31"),
	V6: netip.MustParseAddr("fd2b:1c1b:3641:1cd8::"),
}

// Install makes session.New return p and the address lookup return IPs,
// points the preferences, database, cache and keychain at throwaway
// locations, and undoes it all when the test ends.
func Install(t *testing.T, p *Portal) {
	t.Helper()
	dir := t.TempDir()

	config.SetPath(filepath.Join(dir, "config.json"))
	database.SetPath(filepath.Join(dir, "fdu.db"))
	keyring.MockInit()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv(database.DisableEnv, "")
	t.Setenv("FDU_KEY", "")
	t.Setenv("FDU_IV", "")

	session.SetFactory(func(session.Options) (session.Portal, error) { return p, nil })
	session.SetIPLookup(func(context.Context, *logrus.Entry) (reconcile.IPs, error) { return IPs, nil })

	t.Cleanup(func() {
		session.Reset()
		config.ResetPath()
		database.ResetPath()
	})
}
