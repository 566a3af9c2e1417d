package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fdu/internal/reconcile"
	"fdu/internal/retry"
	"fdu/internal/secret"

	"go.yaml.in/yaml/v3"
)

var (
	// ErrInvalid indicates an updater configuration of the wrong shape.
	ErrInvalid = errors.New("invalid updater config")

	// ErrNoLogin is returned when the configuration names no account.
	ErrNoLogin = errors.New("updater config has no login")

	// ErrNoPassword is returned when the configuration stores no password.
	ErrNoPassword = errors.New("updater config has no password")

	// ErrRemoteSource is returned when saving without a path a
	// configuration that was fetched over HTTP.
	ErrRemoteSource = errors.New("updater config was loaded from a remote source")
)

const passwordKey = "password"

// Updater is a parsed updater configuration. It keeps every key of the
// document so that saving it back preserves keys fdu does not interpret.
// The password is held encrypted in memory.
type Updater struct {
	source   string
	raw      map[string]any
	password string
}

// ParseUpdater decodes a YAML document. A plaintext password is encrypted
// right away with the key material from the environment.
func ParseUpdater(data []byte) (*Updater, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	u := &Updater{raw: raw}
	if pw, ok := raw[passwordKey]; ok {
		delete(raw, passwordKey)
		if pw != nil {
			if err := u.SetPassword(fmt.Sprint(pw)); err != nil {
				return nil, err
			}
		}
	}
	return u, nil
}

// LoadUpdater reads a configuration from a local path, a file:// URL or an
// http(s):// URL.
func LoadUpdater(ctx context.Context, src string) (*Updater, error) {
	data, err := readSource(ctx, src)
	if err != nil {
		return nil, err
	}
	u, err := ParseUpdater(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", src, err)
	}
	u.source = src
	return u, nil
}

func readSource(ctx context.Context, src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return readFile(src)
	}
	switch u.Scheme {
	case "file":
		return readFile(u.Path)
	case "http", "https":
		return fetch(ctx, src)
	default:
		return nil, fmt.Errorf("config: unsupported source scheme %q", u.Scheme)
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return data, nil
}

func fetch(ctx context.Context, src string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	var data []byte
	err := retry.Do(ctx, retry.DefaultConfig(), retry.IsRetryable, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("config: failed to fetch %s: %w", src, err)
	}
	return data, nil
}

// Source returns where the configuration was loaded from, if anywhere.
func (u *Updater) Source() string { return u.source }

// Login returns the account name.
func (u *Updater) Login() (string, error) {
	v, ok := u.raw["login"]
	if !ok || v == nil {
		return "", ErrNoLogin
	}
	login := strings.TrimSpace(fmt.Sprint(v))
	if login == "" {
		return "", ErrNoLogin
	}
	return login, nil
}

// HasPassword reports whether a password is stored.
func (u *Updater) HasPassword() bool { return u.password != "" }

// Password returns a fresh Secret over the stored password. Callers release
// it once used.
func (u *Updater) Password() (*secret.Secret, error) {
	if u.password == "" {
		return nil, ErrNoPassword
	}
	return secret.FromEnv(u.password), nil
}

// SetPassword stores plain (or an already encrypted value) in encrypted form.
func (u *Updater) SetPassword(plain string) error {
	enc, err := secret.FromEnv(plain).Encrypted()
	if err != nil {
		return fmt.Errorf("config: failed to encrypt password: %w", err)
	}
	u.password = enc
	return nil
}

// Get returns the raw value of a top-level key.
func (u *Updater) Get(key string) (any, bool) {
	if key == passwordKey {
		return nil, false
	}
	v, ok := u.raw[key]
	return v, ok
}

// RecordSpecs decodes the "record" key, which holds either one mapping or a
// list of them. A missing key yields no specs.
func (u *Updater) RecordSpecs() ([]reconcile.Spec, error) {
	raw, ok := u.raw["record"]
	if !ok || raw == nil {
		return nil, nil
	}

	var entries []any
	switch v := raw.(type) {
	case map[string]any:
		entries = []any{v}
	case []any:
		entries = v
	default:
		return nil, fmt.Errorf("%w: record must be a mapping or a list, got %T", ErrInvalid, raw)
	}

	specs := make([]reconcile.Spec, 0, len(entries))
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, &reconcile.SpecError{Index: i, Err: fmt.Errorf("%w: entry must be a mapping, got %T", reconcile.ErrInvalidSpec, e)}
		}
		spec, err := toSpec(m)
		if err != nil {
			d, _ := m["domain"].(string)
			return nil, &reconcile.SpecError{Index: i, Domain: d, Err: err}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func toSpec(m map[string]any) (reconcile.Spec, error) {
	var s reconcile.Spec

	d, ok := m["domain"].(string)
	if !ok {
		return s, fmt.Errorf("%w: domain's name must be a string", reconcile.ErrInvalidSpec)
	}
	s.Domain = d

	if v := m["name"]; v != nil {
		name := fmt.Sprint(v)
		s.Name = &name
	}
	if v := m["type"]; v != nil {
		s.Type = v
	}
	if v := m["target"]; v != nil {
		target := strings.TrimSpace(fmt.Sprint(v))
		s.Target = &target
	}
	if v := m["ttl"]; v != nil {
		ttl, err := toInt(v)
		if err != nil {
			return s, fmt.Errorf("%w: ttl: %v", reconcile.ErrInvalidSpec, err)
		}
		s.TTL = &ttl
	}
	return s, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// Marshal encodes the configuration as YAML with the password encrypted.
func (u *Updater) Marshal() ([]byte, error) {
	out := make(map[string]any, len(u.raw)+1)
	for k, v := range u.raw {
		out[k] = v
	}
	if u.password != "" {
		out[passwordKey] = u.password
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("config: failed to marshal updater config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path, or back to the local file it was
// loaded from when path is empty.
func (u *Updater) Save(path string) error {
	if path == "" {
		if u.source == "" {
			return fmt.Errorf("config: no destination for updater config")
		}
		src, err := url.Parse(u.source)
		switch {
		case err != nil || src.Scheme == "" || len(src.Scheme) == 1:
			path = u.source
		case src.Scheme == "file":
			path = src.Path
		default:
			return ErrRemoteSource
		}
	}

	data, err := u.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}
