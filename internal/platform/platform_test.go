package platform

import (
	"context"
	"runtime"
	"testing"
)

func TestArchAliases(t *testing.T) {
	tests := []struct {
		name string
		arch string
		want []string
	}{
		{
			name: "amd64_aliases",
			arch: "amd64",
			want: []string{"x86_64", "amd64", "intel", "linux64"},
		},
		{
			name: "arm64_aliases",
			arch: "arm64",
			want: []string{"arm64", "aarch64"},
		},
		{
			name: "386_aliases",
			arch: "386",
			want: []string{"386", "686", "linux32", "x86"},
		},
		{
			name: "unknown_arch_falls_back_to_itself",
			arch: "riscv64",
			want: []string{"riscv64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &Info{Arch: tt.arch}
			got := info.ArchAliases()
			if len(got) != len(tt.want) {
				t.Fatalf("ArchAliases() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ArchAliases()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValues(t *testing.T) {
	info := &Info{OS: "linux", Arch: "amd64", TargetEnv: EnvGNU}

	vals := info.Values(map[string]string{"name": "tokei", "os": "overridden"})

	if vals["arch"] != "amd64" {
		t.Errorf("arch = %q, want amd64", vals["arch"])
	}
	if vals["target_env"] != "gnu" {
		t.Errorf("target_env = %q, want gnu", vals["target_env"])
	}
	if vals["name"] != "tokei" {
		t.Errorf("name = %q, want tokei", vals["name"])
	}
	// Call-site values win on collision.
	if vals["os"] != "overridden" {
		t.Errorf("os = %q, want overridden", vals["os"])
	}
}

func TestValuesDoesNotMutateExtra(t *testing.T) {
	info := &Info{OS: "linux", Arch: "amd64"}
	extra := map[string]string{"name": "x"}
	_ = info.Values(extra)
	if len(extra) != 1 {
		t.Errorf("extra map was mutated: %v", extra)
	}
}

func TestDetect(t *testing.T) {
	info, err := Detect(context.Background())
	if err != nil {
		t.Skipf("unsupported architecture in test environment: %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if info.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", info.Arch, runtime.GOARCH)
	}

	switch runtime.GOOS {
	case "windows":
		if info.TargetEnv != EnvMSVC {
			t.Errorf("TargetEnv = %q, want msvc on windows", info.TargetEnv)
		}
	case "linux":
		if info.TargetEnv != EnvGNU && info.TargetEnv != EnvMusl {
			t.Errorf("TargetEnv = %q, want gnu or musl on linux", info.TargetEnv)
		}
	case "darwin":
		if info.TargetEnv != "" {
			t.Errorf("TargetEnv = %q, want empty on darwin", info.TargetEnv)
		}
	}
}
