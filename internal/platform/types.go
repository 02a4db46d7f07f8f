// Package platform detects the facts about the running host that asset
// selection and hook templates need: operating system, CPU architecture
// (with the alias tokens release authors actually use in asset names),
// and the libc/runtime flavor (gnu, musl, msvc).
//
// Detection is cheap and happens once at startup; the resulting Info is
// immutable and shared by every package.
package platform

// Target environment (libc/runtime flavor) constants.
const (
	EnvGNU  = "gnu"
	EnvMusl = "musl"
	EnvMSVC = "msvc"
)

// Info contains platform detection information.
type Info struct {
	OS        string // "linux", "darwin", "windows"
	Arch      string // GOARCH: "amd64", "arm64", "386"
	TargetEnv string // "gnu", "musl", "msvc"; empty on darwin
}

// ArchAliases returns the tokens that upstream release assets commonly use
// for this architecture, most canonical first. The table mirrors the alias
// conventions of shell installers (x86_64 implies amd64/intel/linux64, and
// so on).
func (i *Info) ArchAliases() []string {
	switch i.Arch {
	case "amd64":
		return []string{"x86_64", "amd64", "intel", "linux64"}
	case "arm64":
		return []string{"arm64", "aarch64"}
	case "386":
		return []string{"386", "686", "linux32", "x86"}
	default:
		return []string{i.Arch}
	}
}

// Values returns the template context shared by every hook and pattern
// rendering: the platform facts plus any call-site values. Call-site keys
// override platform keys on collision.
func (i *Info) Values(extra map[string]string) map[string]string {
	vals := map[string]string{
		"os":         i.OS,
		"arch":       i.Arch,
		"target_env": i.TargetEnv,
	}
	for k, v := range extra {
		vals[k] = v
	}
	return vals
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}
