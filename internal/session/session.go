// Package session builds the portal client used by the commands and the
// local stores that go with it.
package session

import (
	"context"
	"fmt"
	"os"
	"sync"

	"fdu/internal/config"
	"fdu/internal/portal"
	"fdu/internal/portal/domain"
	"fdu/internal/portal/transport"
	"fdu/internal/updater"

	"github.com/sirupsen/logrus"
)

// BaseURLEnv points every command at another portal root.
const BaseURLEnv = "FDU_PORTAL_URL"

// Portal is everything the commands call on the portal client.
type Portal interface {
	updater.Portal
	IsLoggedIn(ctx context.Context) (bool, error)
	UpdateRecord(ctx context.Context, rec domain.Record, known []domain.Record) (int, error)
}

// Options configures a new portal client.
type Options struct {
	Logger *logrus.Entry

	// BaseURL overrides BaseURLEnv and the default portal root.
	BaseURL string
}

// Factory builds a portal client.
type Factory func(opts Options) (Portal, error)

var (
	mu      sync.RWMutex
	factory Factory = Default
)

// SetFactory replaces the factory used by New. Intended for testing.
func SetFactory(f Factory) {
	if f == nil {
		panic("session: nil factory")
	}
	mu.Lock()
	defer mu.Unlock()
	factory = f
}

// Reset restores the default factory and address lookup. Intended for
// testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	factory = Default
	ipLookup = PublicIPs
}

// New builds a portal client with the current factory.
func New(opts Options) (Portal, error) {
	mu.RLock()
	f := factory
	mu.RUnlock()
	return f(opts)
}

// Default builds a real portal client. The transport honours the cooldown
// and user-agent preferences.
func Default(opts Options) (Portal, error) {
	prefs, err := config.Load()
	if err != nil {
		return nil, err
	}
	cooldown, err := prefs.CooldownDuration()
	if err != nil {
		return nil, err
	}

	topts := []transport.Option{transport.WithLogger(opts.Logger)}
	if cooldown > 0 {
		topts = append(topts, transport.WithCooldown(cooldown))
	}
	if prefs.UserAgent != "" {
		topts = append(topts, transport.WithUserAgent(prefs.UserAgent))
	}
	t, err := transport.New(topts...)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	popts := []portal.Option{portal.WithLogger(opts.Logger)}
	base := opts.BaseURL
	if base == "" {
		base = os.Getenv(BaseURLEnv)
	}
	if base != "" {
		popts = append(popts, portal.WithBaseURL(base))
	}
	return portal.New(t, popts...), nil
}
