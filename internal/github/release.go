// Package github is the release source for binaries published through
// GitHub Releases. It exposes a small REST client (latest release, release
// by tag), the wire types for releases and assets, and the selection logic
// that narrows a release's asset list down to the one artifact to install
// on this platform.
package github

import (
	"strings"
	"time"
)

// Release is a tagged, named upstream publication with its downloadable
// assets. Fields mirror the subset of the GitHub Releases API this tool
// consumes.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Version returns the release's version string. Some projects decorate the
// display name ("v1.2.0 Codename"), so the tag wins whenever the name
// starts with it; otherwise the name is taken verbatim.
func (r *Release) Version() string {
	name, tag := strings.TrimSpace(r.Name), strings.TrimSpace(r.TagName)
	if strings.HasPrefix(name, tag) {
		return tag
	}
	return name
}

// Asset is one downloadable file attached to a release. Assets are
// immutable; within one release they are distinguished by ID.
type Asset struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	ContentType        string    `json:"content_type"`
	Size               int64     `json:"size"`
	DownloadCount      int64     `json:"download_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	BrowserDownloadURL string    `json:"browser_download_url"`
}
