package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const releaseBody = `{
	"id": 1,
	"tag_name": "v12.1.2",
	"name": "v12.1.2",
	"assets": [{
		"id": 10,
		"name": "tokei-x86_64-unknown-linux-gnu.tar.gz",
		"content_type": "application/gzip",
		"size": 2048,
		"download_count": 12345,
		"browser_download_url": "https://example.com/tokei.tar.gz"
	}]
}`

func TestLatestRelease(t *testing.T) {
	var gotPath, gotAccept, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, releaseBody)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithToken("secret"))
	rel, err := client.LatestRelease(context.Background(), "XAMPPRocky", "tokei")
	if err != nil {
		t.Fatalf("LatestRelease() error: %v", err)
	}

	if gotPath != "/repos/XAMPPRocky/tokei/releases/latest" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAccept != "application/vnd.github.v3+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	if rel.TagName != "v12.1.2" {
		t.Errorf("TagName = %q", rel.TagName)
	}
	if len(rel.Assets) != 1 || rel.Assets[0].DownloadCount != 12345 {
		t.Errorf("Assets = %+v", rel.Assets)
	}
}

func TestReleaseByTagPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, releaseBody)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	if _, err := client.ReleaseByTag(context.Background(), "XAMPPRocky", "tokei", "v12.1.2"); err != nil {
		t.Fatalf("ReleaseByTag() error: %v", err)
	}
	if gotPath != "/repos/XAMPPRocky/tokei/releases/tags/v12.1.2" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestReleaseByTagNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found", "documentation_url": "https://docs.github.com/rest"}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.ReleaseByTag(context.Background(), "acme", "tool", "v0.0.0")
	if !errors.Is(err, ErrReleaseNotFound) {
		t.Fatalf("error = %v, want ErrReleaseNotFound", err)
	}
}

func TestAPIErrorShapeWins(t *testing.T) {
	// Rate limiting answers 403 with the error shape; the message must
	// surface instead of a generic decode failure.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded", "documentation_url": "https://docs.github.com/rest/rate-limit"}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.LatestRelease(context.Background(), "acme", "tool")
	if err == nil {
		t.Fatal("LatestRelease() succeeded against rate limiting")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T %v, want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "API rate limit exceeded" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestReleaseVersion(t *testing.T) {
	tests := []struct {
		name    string
		tagName string
		relName string
		want    string
	}{
		{"name equals tag", "v12.1.2", "v12.1.2", "v12.1.2"},
		{"name decorates tag", "v12.1.2", "v12.1.2 Codename", "v12.1.2"},
		{"name replaces tag", "release-2024-03", "March 2024", "March 2024"},
		{"whitespace trimmed", " v1.0.0 ", " v1.0.0 ", "v1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := Release{TagName: tt.tagName, Name: tt.relName}
			if got := rel.Version(); got != tt.want {
				t.Errorf("Version() = %q, want %q", got, tt.want)
			}
		})
	}
}
