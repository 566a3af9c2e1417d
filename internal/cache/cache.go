// Package cache keeps what the periodic updater remembers between ticks in
// small JSON files under the user cache directory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"fdu/internal/reconcile"
)

// State is what the periodic updater remembers about one configuration.
type State struct {
	// IPs are the addresses pushed by the last successful run.
	IPs reconcile.IPs `json:"ips"`

	// RenewedOn is the calendar day (YYYY-MM-DD) of the last renew pass.
	RenewedOn string `json:"renewed_on,omitempty"`
}

type entry struct {
	Source  string    `json:"source"`
	SavedAt time.Time `json:"saved_at"`
	State   State     `json:"state"`
}

// Cache is a directory of state files, one per configuration source.
type Cache struct {
	dir string
	now func() time.Time
}

// New returns a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{dir: dir, now: time.Now}
}

// NewDefault returns a cache rooted at the OS user cache dir.
func NewDefault() *Cache {
	return New(defaultDir())
}

// LoadState returns the state stored for source. An entry older than maxAge
// is treated as absent so that a full run happens at least that often.
// Unreadable entries are misses too; the next save replaces them.
func (c *Cache) LoadState(source string, maxAge time.Duration) (State, bool, error) {
	if c == nil || c.dir == "" || maxAge <= 0 {
		return State{}, false, nil
	}

	data, err := os.ReadFile(c.path(source))
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("cache: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Source != source {
		return State{}, false, nil
	}
	if c.now().Sub(e.SavedAt) > maxAge {
		return State{}, false, nil
	}
	return e.State, true, nil
}

// SaveState stores the state for source, replacing the file atomically.
func (c *Cache) SaveState(source string, s State) error {
	if c == nil || c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	payload, err := json.Marshal(entry{Source: source, SavedAt: c.now().UTC(), State: s})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "state-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	return os.Rename(tmp.Name(), c.path(source))
}

// path names the file of source. Sources are paths or URLs, so they are
// hashed rather than sanitized.
func (c *Cache) path(source string) string {
	sum := sha256.Sum256([]byte(source))
	return filepath.Join(c.dir, "state-"+hex.EncodeToString(sum[:8])+".json")
}

func defaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "fdu")
}
