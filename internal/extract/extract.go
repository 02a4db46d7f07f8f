// Package extract unpacks downloaded release artifacts into a binary's
// data directory. Generic extraction understands zip and gzip (including
// gzipped tar); anything else must come with a user-configured extract
// hook, which this package drives and whose output it locates by
// convention.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// SupportedContentTypes lists the archive MIME types generic extraction
// can handle. Asset selection filters on this set for binaries without an
// extract hook.
var SupportedContentTypes = []string{
	"application/zip",
	"application/gzip",
	"application/x-gzip",
}

// IsSupportedContentType reports whether generic extraction understands
// the given MIME type.
func IsSupportedContentType(contentType string) bool {
	for _, ct := range SupportedContentTypes {
		if contentType == ct {
			return true
		}
	}
	return false
}

// CommandRunner executes a rendered hook command in a working directory.
type CommandRunner interface {
	Run(ctx context.Context, command, dir string) error
}

// Hook describes a user-supplied extract command for one binary. Command
// is already rendered; WorkDir, when set, overrides the default working
// directory (the archive's parent).
type Hook struct {
	Command string
	WorkDir string
	BinName string
}

// Extractor unpacks archives into destination directories.
type Extractor struct {
	logger *log.Logger
	runner CommandRunner
}

// New creates an extractor. runner may be nil if no binary configures an
// extract hook. A nil logger discards output.
func New(logger *log.Logger, runner CommandRunner) *Extractor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Extractor{logger: logger, runner: runner}
}

// Extract unpacks archive into dest. A non-empty dest is treated as an
// already-materialized extraction and left alone. With a hook the command
// is delegated to the user; otherwise the archive format is guessed from
// the filename and each candidate format is tried in order.
func (e *Extractor) Extract(ctx context.Context, archive, dest string, hook *Hook) error {
	info, err := os.Stat(archive)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("archive %s is not a regular file", archive)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create dest dir %s: %w", dest, err)
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		return fmt.Errorf("read dest dir %s: %w", dest, err)
	}
	if len(entries) > 0 {
		e.logger.Info("destination already populated, skipping extraction", "dest", dest)
		return nil
	}

	if hook != nil {
		return e.extractWithHook(ctx, archive, dest, hook)
	}
	return e.extractGeneric(archive, dest)
}

// extractWithHook runs the user command and moves its output into dest.
//
// Hook authors are expected to produce either a sibling of the archive
// named after the archive's file stem or after the binary, or to write
// straight into the rendered {{.to}} directory. This is a documented
// convention, not an enforced contract: whichever candidate exists after
// the run is moved into dest, and a hook that produced nothing
// discoverable is a fatal error.
func (e *Extractor) extractWithHook(ctx context.Context, archive, dest string, hook *Hook) error {
	if e.runner == nil {
		return fmt.Errorf("extract hook configured but no command runner available")
	}

	parent := filepath.Dir(archive)
	candidates := []string{
		filepath.Join(parent, fileStem(archive)),
		filepath.Join(parent, hook.BinName),
	}

	// A candidate surviving from an earlier run is reused as a cache.
	for _, c := range candidates {
		if pathExists(c) {
			e.logger.Info("found existing hook output, skipping hook", "path", c)
			return moveInto(c, dest)
		}
	}

	workDir := parent
	if hook.WorkDir != "" {
		workDir = hook.WorkDir
	}
	if err := e.runner.Run(ctx, hook.Command, workDir); err != nil {
		return fmt.Errorf("extract hook: %w", err)
	}

	for _, c := range candidates {
		if pathExists(c) {
			return moveInto(c, dest)
		}
	}

	// The hook may have written directly into dest.
	entries, err := os.ReadDir(dest)
	if err == nil && len(entries) > 0 {
		return nil
	}
	return fmt.Errorf("extract hook produced no output at any of %v and left %s empty", candidates, dest)
}

// extractGeneric guesses the archive's format from its filename and tries
// each candidate until one succeeds.
func (e *Extractor) extractGeneric(archive, dest string) error {
	formats := guessFormats(archive)

	var attempted []string
	for _, f := range formats {
		err := f.extract(archive, dest)
		if err == nil {
			e.logger.Debug("extracted archive", "archive", archive, "format", f.name)
			return nil
		}
		attempted = append(attempted, fmt.Sprintf("%s (%v)", f.name, err))
	}
	return fmt.Errorf("no supported format could extract %s, attempted: %s",
		archive, strings.Join(attempted, "; "))
}

type format struct {
	name    string
	extract func(archive, dest string) error
}

var (
	formatZip  = format{name: "zip", extract: extractZip}
	formatGzip = format{name: "gzip", extract: extractGzip}
	formatTar  = format{name: "tar", extract: extractTarFile}
)

// guessFormats maps the filename to an ordered list of candidate formats.
// Unknown extensions fall back to trying everything.
func guessFormats(archive string) []format {
	name := strings.ToLower(filepath.Base(archive))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return []format{formatZip}
	case strings.HasSuffix(name, ".tgz"), strings.HasSuffix(name, ".tar.gz"),
		strings.HasSuffix(name, ".gz"):
		return []format{formatGzip}
	case strings.HasSuffix(name, ".tar"):
		return []format{formatTar}
	default:
		return []format{formatZip, formatGzip, formatTar}
	}
}

// fileStem strips the final extension from the archive's base name, the
// same stem hook conventions are documented against ("tool-1.2.tar.gz"
// stems to "tool-1.2.tar").
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// moveInto renames src to dest/<base(src)>.
func moveInto(src, dest string) error {
	target := filepath.Join(dest, filepath.Base(src))
	if err := os.Rename(src, target); err != nil {
		return fmt.Errorf("move hook output %s into %s: %w", src, dest, err)
	}
	return nil
}
