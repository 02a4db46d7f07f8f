package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"
	// DefaultUserAgent identifies the tool; GitHub rejects requests
	// without a User-Agent.
	DefaultUserAgent = "binup"
	// TokenEnvVar names the environment variable read for an optional
	// personal access token (5000 req/h authenticated vs 60/h anonymous).
	TokenEnvVar = "GITHUB_TOKEN"

	// maxResponseBytes bounds API response decoding (10 MB).
	maxResponseBytes = 10 << 20
)

// ErrReleaseNotFound is returned when a requested tag has no release.
var ErrReleaseNotFound = errors.New("release not found")

// APIError is the GitHub API's error body, returned for auth failures,
// rate limiting, and missing resources.
type APIError struct {
	StatusCode       int
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api: %s (status %d, see %s)", e.Message, e.StatusCode, e.DocumentationURL)
}

// Client queries the GitHub Releases API. A single Client (and its
// underlying HTTP client) is shared across every binary installed in one
// run; Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	token      string
}

// ClientOption configures a Client during construction.
type ClientOption func(*Client)

// WithHTTPClient sets the shared HTTP client (connection pool, timeout).
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) { g.httpClient = c }
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) { g.baseURL = base }
}

// WithToken sets a personal access token sent as a bearer credential.
func WithToken(token string) ClientOption {
	return func(g *Client) { g.token = token }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) { g.userAgent = ua }
}

// NewClient creates a GitHub API client with sensible defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the repository's latest published release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)
	return c.getRelease(ctx, url)
}

// ReleaseByTag fetches a release by its git tag. A missing tag yields an
// error wrapping ErrReleaseNotFound, distinguishable from other API
// failures.
func (c *Client) ReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.baseURL, owner, repo, tag)
	return c.getRelease(ctx, url)
}

func (c *Client) getRelease(ctx context.Context, url string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	return decodeRelease(body, resp.StatusCode)
}

// decodeRelease disambiguates the two response shapes the API produces:
// an error object ({message, documentation_url}) or a release object.
// The error shape is tried first; a release body never carries those
// fields, so a populated message is conclusive.
func decodeRelease(body []byte, statusCode int) (*Release, error) {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.StatusCode = statusCode
		if statusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, apiErr.Error())
		}
		return nil, &apiErr
	}

	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("github api: unexpected status %d", statusCode)
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	return &rel, nil
}
