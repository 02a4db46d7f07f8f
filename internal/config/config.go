// Package config loads the declarative binary list from a TOML file and
// resolves filesystem defaults. The rest of the program only sees
// fully-resolved Binary descriptors with unique names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DatabaseFile is the history database filename inside the data directory.
const DatabaseFile = "binup.db"

// Config is the top-level configuration file.
type Config struct {
	// ExecutableDir is the shared directory symlinks are created in.
	ExecutableDir string `toml:"executable-dir"`
	// DataDir holds one extracted tree per binary.
	DataDir string `toml:"data-dir"`
	// CacheDir holds one download cache per binary.
	CacheDir string `toml:"cache-dir"`

	Bins []Binary `toml:"bins"`
}

// Binary is one installation target.
type Binary struct {
	// Name identifies the binary. Defaults to the source repository name.
	Name string `toml:"name"`
	// Source locates the upstream releases, e.g. "github:BurntSushi/ripgrep".
	Source Source `toml:"source"`
	// Version pins a release tag. Empty tracks the latest release.
	Version string `toml:"version"`
	// PickRegex overrides heuristic asset selection. Rendered as a
	// template with platform facts, then matched against asset names;
	// it must match exactly one.
	PickRegex string `toml:"pick-regex"`
	// ExeGlob overrides the default executable search glob.
	ExeGlob string `toml:"exe-glob"`

	Hook *Hook `toml:"hook"`
}

// Pinned reports whether the binary is held at a fixed version.
func (b *Binary) Pinned() bool {
	return b.Version != ""
}

// Hook holds user-supplied lifecycle commands.
type Hook struct {
	// WorkDir overrides the working directory commands run in.
	WorkDir string     `toml:"work-dir"`
	Action  HookAction `toml:"action"`
}

// HookAction has one optional command template per lifecycle point.
type HookAction struct {
	Install   string `toml:"install"`
	Update    string `toml:"update"`
	Extract   string `toml:"extract"`
	Uninstall string `toml:"uninstall"`
}

// Source identifies an upstream release host. Only GitHub is supported.
type Source struct {
	Owner string
	Repo  string
}

// UnmarshalText parses the "github:owner/repo" form used in config files.
func (s *Source) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	rest, ok := strings.CutPrefix(raw, "github:")
	if !ok {
		return fmt.Errorf("source %q: must start with \"github:\"", raw)
	}
	owner, repo, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("source %q: want \"github:owner/repo\"", raw)
	}
	s.Owner = owner
	s.Repo = repo
	return nil
}

// String renders the config-file form.
func (s Source) String() string {
	return fmt.Sprintf("github:%s/%s", s.Owner, s.Repo)
}

// MarshalJSON renders the form persisted in history rows.
func (s Source) MarshalJSON() ([]byte, error) {
	type github struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
	}
	return json.Marshal(struct {
		Github github `json:"github"`
	}{Github: github{Owner: s.Owner, Repo: s.Repo}})
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "binup", "config.toml"), nil
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabasePath returns the history database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

func (c *Config) applyDefaults() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("locate home dir: %w", err)
	}
	if c.ExecutableDir == "" {
		c.ExecutableDir = filepath.Join(home, ".local", "bin")
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join(home, ".local", "share", "binup")
	}
	if c.CacheDir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("locate cache dir: %w", err)
		}
		c.CacheDir = filepath.Join(cache, "binup")
	}

	for i := range c.Bins {
		if c.Bins[i].Name == "" {
			c.Bins[i].Name = c.Bins[i].Source.Repo
		}
	}
	return nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool, len(c.Bins))
	for _, bin := range c.Bins {
		if bin.Source.Owner == "" || bin.Source.Repo == "" {
			return fmt.Errorf("binary %q: source is required", bin.Name)
		}
		if seen[bin.Name] {
			return fmt.Errorf("binary %q: duplicate name", bin.Name)
		}
		seen[bin.Name] = true
	}
	return nil
}
