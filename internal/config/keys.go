package config

import (
	"fmt"
	"strings"
	"time"
)

// KeySpec describes a single preference key.
type KeySpec struct {
	// Name is the CLI-facing key name (e.g. "cooldown").
	Name string

	// Description is a short human-readable explanation shown in help text.
	Description string

	// Get returns the current value for this key from a loaded Config.
	Get func(cfg *Config) string

	// Set validates value and applies it to the given Config (in memory
	// only; the caller is responsible for calling Save). An empty value
	// clears the key.
	Set func(cfg *Config, value string) error
}

// Keys is the authoritative list of all supported preference keys.
// To add a new option: add a field to Config and append a KeySpec here.
var Keys = []KeySpec{
	{
		Name:        "config-file",
		Description: "Updater configuration used when no source is given",
		Get:         func(cfg *Config) string { return cfg.ConfigFile },
		Set: func(cfg *Config, v string) error {
			cfg.ConfigFile = v
			return nil
		},
	},
	{
		Name:        "cooldown",
		Description: "Minimum gap between portal requests (e.g. 1.5s)",
		Get:         func(cfg *Config) string { return cfg.Cooldown },
		Set: func(cfg *Config, v string) error {
			if v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", v, err)
				}
				if d < 0 {
					return fmt.Errorf("cooldown must not be negative")
				}
			}
			cfg.Cooldown = v
			return nil
		},
	},
	{
		Name:        "user-agent",
		Description: "User-Agent header sent to the portal",
		Get:         func(cfg *Config) string { return cfg.UserAgent },
		Set: func(cfg *Config, v string) error {
			cfg.UserAgent = v
			return nil
		},
	},
}

// Lookup returns the KeySpec for the given name, or nil if not found.
// The name is matched case-insensitively after trimming whitespace.
func Lookup(name string) *KeySpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i := range Keys {
		if Keys[i].Name == normalized {
			return &Keys[i]
		}
	}
	return nil
}

// KeyNames returns the names of all registered keys.
func KeyNames() []string {
	names := make([]string, len(Keys))
	for i, k := range Keys {
		names[i] = k.Name
	}
	return names
}

// KeysHelp builds a formatted block listing all available keys and their
// descriptions, suitable for inclusion in Cobra Long help text.
func KeysHelp() string {
	if len(Keys) == 0 {
		return ""
	}

	maxLen := 0
	for _, k := range Keys {
		if len(k.Name) > maxLen {
			maxLen = len(k.Name)
		}
	}

	var b strings.Builder
	b.WriteString("Available keys:\n")
	for _, k := range Keys {
		fmt.Fprintf(&b, "  %-*s   %s\n", maxLen, k.Name, k.Description)
	}
	return b.String()
}
