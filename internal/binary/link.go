package binary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// linkExecutable finds the one executable inside the extracted tree and
// symlinks it into the shared executable directory. Linking never
// overwrites: an occupied destination is an error.
func (p *Package) linkExecutable() (string, error) {
	exe, err := p.findExecutable()
	if err != nil {
		return "", err
	}

	// Self-heal archives that lost the executable bit.
	if err := ensureExecutable(exe); err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.execDir, 0o755); err != nil {
		return "", fmt.Errorf("create executable dir: %w", err)
	}
	if _, err := os.Lstat(p.link); err == nil {
		return "", fmt.Errorf("link %s already exists, refusing to overwrite", p.link)
	}
	if err := os.Symlink(exe, p.link); err != nil {
		return "", fmt.Errorf("symlink %s: %w", p.link, err)
	}
	return exe, nil
}

// findExecutable globs the data directory for the binary's executable. The
// default pattern matches anything containing the binary name; an explicit
// exe-glob replaces it. More than one match is narrowed to files carrying
// the executable bit, and exactly one must survive.
func (p *Package) findExecutable() (string, error) {
	pattern := p.bin.ExeGlob
	if pattern == "" {
		pattern = "**/*" + p.bin.Name + "*"
	} else {
		rendered, err := p.renderCommand(pattern, nil)
		if err != nil {
			return "", fmt.Errorf("render exe glob: %w", err)
		}
		pattern = rendered
	}

	matches, err := doublestar.Glob(os.DirFS(p.dataDir), pattern)
	if err != nil {
		return "", fmt.Errorf("glob %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		path := filepath.Join(p.dataDir, m)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}

	if len(files) > 1 {
		var executables []string
		for _, f := range files {
			info, err := os.Stat(f)
			if err == nil && info.Mode().Perm()&0o111 != 0 {
				executables = append(executables, f)
			}
		}
		if len(executables) > 0 {
			files = executables
		}
	}

	switch len(files) {
	case 0:
		return "", fmt.Errorf("glob %q matched no files under %s", pattern, p.dataDir)
	case 1:
		return files[0], nil
	default:
		return "", fmt.Errorf("glob %q is ambiguous, matched: %s",
			pattern, strings.Join(files, ", "))
	}
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat executable: %w", err)
	}
	if info.Mode().Perm()&0o111 != 0 {
		return nil
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o755); err != nil {
		return fmt.Errorf("set executable bit: %w", err)
	}
	return nil
}
