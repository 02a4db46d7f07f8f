// Package download provides an integrity-checked local cache for release
// artifacts. Each cached file carries an MD5 sidecar; the pair is always
// written and deleted together so a crashed run can never leave a sidecar
// vouching for a truncated download.
package download

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of download retries.
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests.
	DefaultUserAgent = "binup"

	sidecarSuffix = ".md5"
)

// Cache downloads URLs into a directory and serves repeat requests from
// disk when the stored file still matches its digest sidecar.
type Cache struct {
	client    *http.Client
	dir       string
	userAgent string
	retries   int
	logger    *log.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithRetries sets the number of retries after a failed download attempt.
func WithRetries(n int) Option {
	return func(c *Cache) { c.retries = n }
}

// WithLogger sets the logger used for cache events.
func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, opts ...Option) *Cache {
	c := &Cache{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		dir:       dir,
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache's root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Fetch returns a local path holding the contents of rawURL. A cached copy
// whose MD5 matches its sidecar is returned without any network traffic;
// a corrupted or sidecar-less copy is deleted and re-downloaded.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	filename, err := urlFilename(rawURL)
	if err != nil {
		return "", err
	}

	cachePath := filepath.Join(c.dir, filename)
	sidecarPath := cachePath + sidecarSuffix

	if fileExists(cachePath) {
		switch digest, err := os.ReadFile(sidecarPath); {
		case err == nil:
			actual, err := hashFile(cachePath)
			if err != nil {
				return "", fmt.Errorf("hash cached file: %w", err)
			}
			if actual == strings.TrimSpace(string(digest)) {
				c.logger.Debug("cache hit", "file", cachePath)
				return cachePath, nil
			}
			c.logger.Warn("cached file failed digest check, re-downloading", "file", cachePath)
			os.Remove(cachePath)
			os.Remove(sidecarPath)
		case os.IsNotExist(err):
			c.logger.Warn("cached file has no digest sidecar, re-downloading", "file", cachePath)
			os.Remove(cachePath)
		default:
			return "", fmt.Errorf("read digest sidecar: %w", err)
		}
	}

	digest, err := c.downloadToFile(ctx, rawURL, cachePath)
	if err != nil {
		return "", err
	}

	// The sidecar is written only once the full body has landed on disk.
	if err := os.WriteFile(sidecarPath, []byte(digest), 0o644); err != nil {
		os.Remove(cachePath)
		return "", fmt.Errorf("write digest sidecar: %w", err)
	}
	return cachePath, nil
}

// downloadToFile downloads url to destPath with retries and returns the
// digest of the written contents.
func (c *Cache) downloadToFile(ctx context.Context, url, destPath string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		digest, err := c.downloadOnce(ctx, url, destPath)
		if err == nil {
			return digest, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("download failed after %d retries: %w", c.retries, lastErr)
}

// downloadOnce performs a single download attempt, hashing the body as it
// streams to disk.
func (c *Cache) downloadOnce(ctx context.Context, url, destPath string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	hasher := md5.New()
	if _, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body); err != nil {
		return "", fmt.Errorf("copy response body: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return digestString(hasher.Sum(nil)), nil
}

// urlFilename extracts the last path segment of rawURL.
func urlFilename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("download url %s has no filename", rawURL)
	}
	return name, nil
}

// hashFile computes the digest of an existing file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return digestString(hasher.Sum(nil)), nil
}

// digestString renders an MD5 sum as the concatenated decimal values of its
// bytes. The format is what existing sidecars on disk already use, so it
// stays put.
func digestString(sum []byte) string {
	var b strings.Builder
	for _, v := range sum {
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}

// fileExists checks if a file exists and is not empty.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
