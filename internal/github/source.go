package github

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/binup-dev/binup/internal/platform"
)

// ReleaseSource resolves versions and download URLs for one binary hosted
// on GitHub Releases. It implements the capability contract the lifecycle
// orchestrator expects from any release source: LatestVersion and
// DownloadURL.
type ReleaseSource struct {
	client    *Client
	owner     string
	repo      string
	selection Selection
}

// NewReleaseSource builds the per-binary source. The owner/repo pair was
// validated at configuration load; selection carries everything asset
// picking needs.
func NewReleaseSource(client *Client, owner, repo string, selection Selection) *ReleaseSource {
	return &ReleaseSource{
		client:    client,
		owner:     owner,
		repo:      repo,
		selection: selection,
	}
}

// LatestVersion returns the version string of the repository's latest
// published release.
func (s *ReleaseSource) LatestVersion(ctx context.Context) (string, error) {
	rel, err := s.client.LatestRelease(ctx, s.owner, s.repo)
	if err != nil {
		return "", fmt.Errorf("latest release of %s/%s: %w", s.owner, s.repo, err)
	}
	return rel.Version(), nil
}

// DownloadURL resolves a version tag to the download URL of the single
// asset selected for this platform.
func (s *ReleaseSource) DownloadURL(ctx context.Context, version string) (string, error) {
	rel, err := s.client.ReleaseByTag(ctx, s.owner, s.repo, version)
	if err != nil {
		return "", fmt.Errorf("release %s of %s/%s: %w", version, s.owner, s.repo, err)
	}

	asset, err := PickAsset(rel, s.selection)
	if err != nil {
		return "", fmt.Errorf("pick asset for %s/%s %s: %w", s.owner, s.repo, version, err)
	}
	return asset.BrowserDownloadURL, nil
}

// Selection bundles the inputs of asset picking for one binary.
type Selection struct {
	// BinName is the configured binary name, the strongest token to look
	// for in asset names.
	BinName string
	// PickRegex, when non-empty, is the fully rendered explicit override
	// pattern; it replaces the heuristic entirely.
	PickRegex string
	// HasExtractHook disables the supported-content-type filter, since a
	// hook can interpret arbitrary artifact formats.
	HasExtractHook bool
	// Platform supplies the OS token, architecture aliases, and libc
	// flavor used by the heuristic.
	Platform *platform.Info
	// Logger receives the tie-break warning when several candidates
	// survive and download counts decide.
	Logger *log.Logger
}
