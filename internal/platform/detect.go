package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// supportedArchs lists the CPU architectures asset selection knows alias
// tokens for. Anything else fails detection rather than silently matching
// nothing later.
var supportedArchs = map[string]bool{
	"amd64": true,
	"arm64": true,
	"386":   true,
}

// Detect performs platform detection and returns platform information.
// It uses runtime.GOOS and runtime.GOARCH for OS and architecture, and
// gopsutil for Linux distribution details to decide the libc flavor.
//
// On Linux, if gopsutil fails to detect the distribution, the flavor
// falls back to gnu (graceful fallback: glibc is the overwhelmingly
// common case, and the selector's window relaxation tolerates a wrong
// libc token).
func Detect(ctx context.Context) (*Info, error) {
	if !supportedArchs[runtime.GOARCH] {
		return nil, fmt.Errorf("platform detection failed: unsupported architecture %q", runtime.GOARCH)
	}

	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	switch runtime.GOOS {
	case "windows":
		info.TargetEnv = EnvMSVC
	case "linux":
		info.TargetEnv = detectLinuxEnv(ctx)
	case "darwin":
		// macOS binaries carry no libc token.
	default:
		info.TargetEnv = EnvGNU
	}

	return info, nil
}

// detectLinuxEnv decides between gnu and musl by looking at the running
// distribution. Alpine is the only mainstream musl-based distro that
// upstream projects publish dedicated assets for.
func detectLinuxEnv(ctx context.Context) string {
	platform, family, _, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		return EnvGNU
	}
	if platform == "alpine" || family == "alpine" {
		return EnvMusl
	}
	return EnvGNU
}
