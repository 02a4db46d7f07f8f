package binary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binup-dev/binup/internal/config"
)

// linkFixture builds a package whose data dir contains the given files,
// with content mapping name to permission bits.
func linkFixture(t *testing.T, bin config.Binary, files map[string]os.FileMode) (*Package, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	p := testPackage(t, cfg, bin, &fakeResolver{}, testStore(t))

	for name, mode := range files {
		path := filepath.Join(cfg.DataDir, bin.Name, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), mode); err != nil {
			t.Fatal(err)
		}
	}
	return p, cfg
}

func TestLinkExecutableSingleMatch(t *testing.T) {
	bin := config.Binary{Name: "tool", Source: config.Source{Owner: "acme", Repo: "tool"}}
	p, cfg := linkFixture(t, bin, map[string]os.FileMode{
		"nested/tool": 0o755,
	})

	exe, err := p.linkExecutable()
	if err != nil {
		t.Fatalf("linkExecutable() error: %v", err)
	}
	if want := filepath.Join(cfg.DataDir, "tool", "nested", "tool"); exe != want {
		t.Errorf("linkExecutable() = %q, want %q", exe, want)
	}
	target, err := os.Readlink(filepath.Join(cfg.ExecutableDir, "tool"))
	if err != nil {
		t.Fatalf("symlink not created: %v", err)
	}
	if target != exe {
		t.Errorf("symlink target = %q, want %q", target, exe)
	}
}

func TestLinkExecutableSelfHealsPermissions(t *testing.T) {
	bin := config.Binary{Name: "tool", Source: config.Source{Owner: "acme", Repo: "tool"}}
	p, _ := linkFixture(t, bin, map[string]os.FileMode{
		"tool": 0o644,
	})

	exe, err := p.linkExecutable()
	if err != nil {
		t.Fatalf("linkExecutable() error: %v", err)
	}
	info, err := os.Stat(exe)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("executable bit not set: %v", info.Mode())
	}
}

func TestLinkExecutableNarrowsByExecutableBit(t *testing.T) {
	bin := config.Binary{Name: "tool", Source: config.Source{Owner: "acme", Repo: "tool"}}
	p, _ := linkFixture(t, bin, map[string]os.FileMode{
		"tool":    0o755,
		"tool.md": 0o644,
	})

	exe, err := p.linkExecutable()
	if err != nil {
		t.Fatalf("linkExecutable() error: %v", err)
	}
	if filepath.Base(exe) != "tool" {
		t.Errorf("linkExecutable() = %q, want the executable candidate", exe)
	}
}

func TestLinkExecutableErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]os.FileMode
	}{
		{
			name:  "no match",
			files: map[string]os.FileMode{"other": 0o755},
		},
		{
			name: "ambiguous executables",
			files: map[string]os.FileMode{
				"bin/tool":    0o755,
				"tool-backup": 0o755,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := config.Binary{Name: "tool", Source: config.Source{Owner: "acme", Repo: "tool"}}
			p, _ := linkFixture(t, bin, tt.files)
			if _, err := p.linkExecutable(); err == nil {
				t.Fatal("linkExecutable() succeeded, want error")
			}
		})
	}
}

func TestLinkExecutableExplicitGlob(t *testing.T) {
	bin := config.Binary{
		Name:    "ripgrep",
		Source:  config.Source{Owner: "BurntSushi", Repo: "ripgrep"},
		ExeGlob: "**/rg",
	}
	p, _ := linkFixture(t, bin, map[string]os.FileMode{
		"ripgrep-14.1.0/rg": 0o755,
	})

	exe, err := p.linkExecutable()
	if err != nil {
		t.Fatalf("linkExecutable() error: %v", err)
	}
	if filepath.Base(exe) != "rg" {
		t.Errorf("linkExecutable() = %q", exe)
	}
}
