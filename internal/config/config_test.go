package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
executable-dir = "/opt/bin"
data-dir = "/opt/data"
cache-dir = "/opt/cache"

[[bins]]
source = "github:XAMPPRocky/tokei"
version = "v12.1.2"

[[bins]]
name = "rg"
source = "github:BurntSushi/ripgrep"
pick-regex = "ripgrep-.*-{{.arch}}-.*linux.*"
exe-glob = "**/rg"

[bins.hook]
work-dir = "/tmp"

[bins.hook.action]
install = "echo installed {{.name}}"
extract = "tar xf {{.from}} -C {{.to}}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ExecutableDir != "/opt/bin" || cfg.DataDir != "/opt/data" || cfg.CacheDir != "/opt/cache" {
		t.Errorf("dirs = %q %q %q", cfg.ExecutableDir, cfg.DataDir, cfg.CacheDir)
	}
	if len(cfg.Bins) != 2 {
		t.Fatalf("len(Bins) = %d, want 2", len(cfg.Bins))
	}

	tokei := cfg.Bins[0]
	if tokei.Name != "tokei" {
		t.Errorf("name did not default to repo: %q", tokei.Name)
	}
	if tokei.Source.Owner != "XAMPPRocky" || tokei.Source.Repo != "tokei" {
		t.Errorf("source = %+v", tokei.Source)
	}
	if !tokei.Pinned() || tokei.Version != "v12.1.2" {
		t.Errorf("version = %q pinned=%v", tokei.Version, tokei.Pinned())
	}

	rg := cfg.Bins[1]
	if rg.Name != "rg" {
		t.Errorf("explicit name not honored: %q", rg.Name)
	}
	if rg.Pinned() {
		t.Error("binary without version reported as pinned")
	}
	if rg.Hook == nil {
		t.Fatal("hook not parsed")
	}
	if rg.Hook.WorkDir != "/tmp" {
		t.Errorf("hook work-dir = %q", rg.Hook.WorkDir)
	}
	if rg.Hook.Action.Install == "" || rg.Hook.Action.Extract == "" {
		t.Errorf("hook actions = %+v", rg.Hook.Action)
	}
	if rg.Hook.Action.Uninstall != "" {
		t.Errorf("absent action parsed as %q", rg.Hook.Action.Uninstall)
	}

	if got, want := cfg.DatabasePath(), filepath.Join("/opt/data", DatabaseFile); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
}

func TestLoadDefaultsDirs(t *testing.T) {
	path := writeConfig(t, `
[[bins]]
source = "github:acme/tool"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ExecutableDir == "" || cfg.DataDir == "" || cfg.CacheDir == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "malformed source",
			content: `
[[bins]]
source = "gitlab:acme/tool"
`,
		},
		{
			name: "source missing repo",
			content: `
[[bins]]
source = "github:acme"
`,
		},
		{
			name: "missing source",
			content: `
[[bins]]
name = "tool"
`,
		},
		{
			name: "duplicate names",
			content: `
[[bins]]
source = "github:acme/tool"

[[bins]]
source = "github:other/tool"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatal("Load() succeeded, want error")
			}
		})
	}
}

func TestSourceRoundTrip(t *testing.T) {
	var s Source
	if err := s.UnmarshalText([]byte("github:BurntSushi/ripgrep")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if s.String() != "github:BurntSushi/ripgrep" {
		t.Errorf("String() = %q", s.String())
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	want := `{"github":{"owner":"BurntSushi","repo":"ripgrep"}}`
	if string(data) != want {
		t.Errorf("MarshalJSON() = %s, want %s", data, want)
	}
}
