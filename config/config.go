// Package config loads the profile catalog: one entry per media type and
// controller pairing (5.25" 1541-style, 5.25" TRS-80, 3.5" high-density,
// and so on), each naming the container variants it can drive and the PLL
// preset its drive geometry implies. config/config.go's original shape
// (BurntSushi/toml decode of an embedded default into package-level
// globals) is kept for the TOML handling but not for the globals: Load
// returns a *Catalog instead, since a CLI process may need to inspect more
// than one profile in a run (e.g. `info` against a foreign image read
// under a different profile than the active drive).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

//go:embed floppy.toml
var defaultConfigData []byte

// Catalog is the parsed profile catalog plus its selected default.
type Catalog struct {
	DefaultName string
	Profiles    map[string]Profile
}

// Profile describes one drive/media configuration: physical geometry, the
// transport speed budget, and the container variants the profile is known
// to produce or accept.
type Profile struct {
	Name     string
	Cyls     int
	Heads    int
	RPM      int
	MaxKBps  int
	Variants []string
}

// fileConfig mirrors the on-disk TOML shape.
type fileConfig struct {
	Default string      `toml:"default"`
	Drive   []fileDrive `toml:"drive"`
}

type fileDrive struct {
	Name     string   `toml:"name"`
	Cyls     int      `toml:"cyls"`
	Heads    int      `toml:"heads"`
	RPM      int      `toml:"rpm"`
	MaxKBps  int      `toml:"maxkbps"`
	Variants []string `toml:"variants"`
}

// Path determines the config file's on-disk path: %AppData%/floppy/.floppy
// on Windows, ~/.floppy elsewhere.
func Path() (string, error) {
	var dir string
	var err error
	switch runtime.GOOS {
	case "windows":
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		dir = filepath.Join(dir, "floppy")
	default:
		dir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}
	return filepath.Join(dir, ".floppy"), nil
}

// Load reads the profile catalog from path, creating it from the embedded
// default if it doesn't exist yet, and validates every profile's fields.
func Load(path string) (*Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return nil, fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}
	return newCatalog(fc)
}

// LoadDefault loads the catalog from the platform-default path.
func LoadDefault() (*Catalog, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return Load(p)
}

func newCatalog(fc fileConfig) (*Catalog, error) {
	if fc.Default == "" {
		return nil, errors.New("`default` key is missing or empty in config")
	}
	cat := &Catalog{DefaultName: fc.Default, Profiles: make(map[string]Profile)}
	for _, d := range fc.Drive {
		if d.Cyls <= 0 {
			return nil, fmt.Errorf("profile %q has invalid cyls: %d", d.Name, d.Cyls)
		}
		if d.Heads <= 0 {
			return nil, fmt.Errorf("profile %q has invalid heads: %d", d.Name, d.Heads)
		}
		if d.RPM <= 0 {
			return nil, fmt.Errorf("profile %q has invalid rpm: %d", d.Name, d.RPM)
		}
		if d.MaxKBps <= 0 {
			return nil, fmt.Errorf("profile %q has invalid maxkbps: %d", d.Name, d.MaxKBps)
		}
		if len(d.Variants) == 0 {
			return nil, fmt.Errorf("profile %q lists no container variants", d.Name)
		}
		cat.Profiles[d.Name] = Profile{
			Name: d.Name, Cyls: d.Cyls, Heads: d.Heads, RPM: d.RPM,
			MaxKBps: d.MaxKBps, Variants: append([]string{}, d.Variants...),
		}
	}
	if _, ok := cat.Profiles[cat.DefaultName]; !ok {
		return nil, fmt.Errorf("default profile %q not found", cat.DefaultName)
	}
	return cat, nil
}

// Default returns the catalog's default profile.
func (c *Catalog) Default() Profile {
	return c.Profiles[c.DefaultName]
}

// Get looks up a profile by name, falling back to the default when name
// is empty (the --profile flag's unset case).
func (c *Catalog) Get(name string) (Profile, error) {
	if name == "" {
		return c.Default(), nil
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// SupportsVariant reports whether the profile names variant (case-
// insensitive match against the profile's configured Variants list).
func (p Profile) SupportsVariant(variant string) bool {
	for _, v := range p.Variants {
		if equalFold(v, variant) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
