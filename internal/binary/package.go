// Package binary drives the per-binary install, uninstall, and update
// lifecycle: resolve a download URL, fetch it through the cache, extract it
// into the binary's data directory, link the contained executable into the
// shared executable directory, and record the install in history.
package binary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/binup-dev/binup/internal/config"
	"github.com/binup-dev/binup/internal/download"
	"github.com/binup-dev/binup/internal/extract"
	"github.com/binup-dev/binup/internal/history"
	"github.com/binup-dev/binup/internal/hook"
	"github.com/binup-dev/binup/internal/platform"
)

// Resolver turns a binary's upstream source into concrete versions and
// download URLs.
type Resolver interface {
	LatestVersion(ctx context.Context) (string, error)
	DownloadURL(ctx context.Context, version string) (string, error)
}

// Update describes an available version change.
type Update struct {
	Latest   string
	Recorded string
}

// Package owns everything one configured binary needs for its lifecycle.
// Construct once per run with NewPackage; methods are safe to call
// concurrently with other packages but not with each other.
type Package struct {
	bin      config.Binary
	resolver Resolver
	cache    *download.Cache
	store    *history.Store
	runner   *hook.Runner
	plat     *platform.Info
	logger   *log.Logger

	dataDir string // extracted tree
	execDir string // shared symlink directory
	link    string // execDir/<name>
}

// Deps carries the shared collaborators a Package borrows for its lifetime.
type Deps struct {
	Resolver Resolver
	Cache    *download.Cache
	Store    *history.Store
	Runner   *hook.Runner
	Platform *platform.Info
	Logger   *log.Logger
}

// NewPackage builds the runtime object for one configured binary.
func NewPackage(bin config.Binary, cfg *config.Config, deps Deps) (*Package, error) {
	if deps.Resolver == nil || deps.Cache == nil || deps.Store == nil || deps.Platform == nil {
		return nil, fmt.Errorf("package %s: missing dependencies", bin.Name)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Package{
		bin:      bin,
		resolver: deps.Resolver,
		cache:    deps.Cache,
		store:    deps.Store,
		runner:   deps.Runner,
		plat:     deps.Platform,
		logger:   logger.With("binary", bin.Name),
		dataDir:  filepath.Join(cfg.DataDir, bin.Name),
		execDir:  cfg.ExecutableDir,
		link:     filepath.Join(cfg.ExecutableDir, bin.Name),
	}, nil
}

// Name returns the binary's configured name.
func (p *Package) Name() string {
	return p.bin.Name
}

// Install resolves the version dictated by the binary's policy and installs
// it: pinned binaries install their pinned tag, others the latest release.
func (p *Package) Install(ctx context.Context) error {
	version := p.bin.Version
	if version == "" {
		latest, err := p.resolver.LatestVersion(ctx)
		if err != nil {
			return fmt.Errorf("install %s: %w", p.bin.Name, err)
		}
		version = latest
	}
	return p.install(ctx, version)
}

func (p *Package) install(ctx context.Context, version string) error {
	url, err := p.resolver.DownloadURL(ctx, version)
	if err != nil {
		return fmt.Errorf("install %s: %w", p.bin.Name, err)
	}

	archive, err := p.cache.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("install %s: %w", p.bin.Name, err)
	}

	if err := p.extract(ctx, archive); err != nil {
		return fmt.Errorf("install %s: %w", p.bin.Name, err)
	}

	exe, err := p.linkExecutable()
	if err != nil {
		return fmt.Errorf("install %s: %w", p.bin.Name, err)
	}
	p.logger.Info("linked executable", "target", exe, "link", p.link)

	if err := p.recordInstall(ctx, version, url); err != nil {
		return fmt.Errorf("install %s: %w", p.bin.Name, err)
	}

	if err := p.runAction(ctx, "install", actionCommand(p.bin.Hook, "install"), nil); err != nil {
		return fmt.Errorf("install %s: %w", p.bin.Name, err)
	}

	p.logger.Info("installed", "version", version)
	return nil
}

// Uninstall removes everything the binary owns. Each step is attempted
// independently and failures are only logged, so calling it on a partially
// installed or already removed binary succeeds.
func (p *Package) Uninstall(ctx context.Context) error {
	if err := removeLink(p.link); err != nil {
		p.logger.Warn("remove symlink", "err", err)
	}
	if err := os.RemoveAll(p.dataDir); err != nil {
		p.logger.Warn("remove data dir", "err", err)
	}
	if err := p.CleanCache(); err != nil {
		p.logger.Warn("remove cache dir", "err", err)
	}
	if n, err := p.store.DeleteByName(ctx, p.bin.Name); err != nil {
		p.logger.Warn("delete history rows", "err", err)
	} else if n == 0 {
		p.logger.Debug("no history rows to delete")
	}

	if err := p.runAction(ctx, "uninstall", actionCommand(p.bin.Hook, "uninstall"), nil); err != nil {
		p.logger.Warn("uninstall hook", "err", err)
	}

	p.logger.Info("uninstalled")
	return nil
}

// Installed reports whether the binary is present (its symlink exists, or
// an executable with its name is on PATH) and history knows an installed
// version.
func (p *Package) Installed(ctx context.Context) (bool, error) {
	if _, err := os.Lstat(p.link); err != nil {
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("stat %s: %w", p.link, err)
		}
		if _, err := exec.LookPath(p.bin.Name); err != nil {
			return false, nil
		}
	}
	rec, err := p.store.LatestByName(ctx, p.bin.Name)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// InstalledVersion returns the recorded version of the newest install, or
// "" when the binary has no history.
func (p *Package) InstalledVersion(ctx context.Context) (string, error) {
	rec, err := p.store.LatestByName(ctx, p.bin.Name)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.Version, nil
}

// UpdateableVersion returns the available update, or nil when the binary is
// version-pinned, not installed, or already current. Version strings are
// compared lexicographically, matching how history rows were recorded.
func (p *Package) UpdateableVersion(ctx context.Context) (*Update, error) {
	if p.bin.Pinned() {
		return nil, nil
	}
	installed, err := p.Installed(ctx)
	if err != nil {
		return nil, err
	}
	if !installed {
		return nil, nil
	}

	rec, err := p.store.LatestByName(ctx, p.bin.Name)
	if err != nil {
		return nil, err
	}
	latest, err := p.resolver.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("check update for %s: %w", p.bin.Name, err)
	}
	if latest > rec.Version {
		return &Update{Latest: latest, Recorded: rec.Version}, nil
	}
	return nil, nil
}

// Update reinstalls at the latest version when one is available. The two
// halves are not atomic: a failure after Uninstall leaves the binary
// uninstalled, to be repaired by a later install.
func (p *Package) Update(ctx context.Context) error {
	upd, err := p.UpdateableVersion(ctx)
	if err != nil {
		return err
	}
	if upd == nil {
		p.logger.Info("already up to date")
		return nil
	}
	p.logger.Info("updating", "from", upd.Recorded, "to", upd.Latest)

	if err := p.Uninstall(ctx); err != nil {
		return fmt.Errorf("update %s: %w", p.bin.Name, err)
	}
	if err := p.install(ctx, upd.Latest); err != nil {
		return fmt.Errorf("update %s: %w", p.bin.Name, err)
	}
	if err := p.runAction(ctx, "update", actionCommand(p.bin.Hook, "update"), nil); err != nil {
		return fmt.Errorf("update %s: %w", p.bin.Name, err)
	}
	return nil
}

// CleanCache deletes the binary's download cache.
func (p *Package) CleanCache() error {
	return os.RemoveAll(p.cacheDirPath())
}

func (p *Package) cacheDirPath() string {
	return p.cache.Dir()
}

func (p *Package) extract(ctx context.Context, archive string) error {
	var extractHook *extract.Hook
	if cmd := actionCommand(p.bin.Hook, "extract"); cmd != "" {
		rendered, err := p.renderCommand(cmd, map[string]string{
			"from": archive,
			"to":   p.dataDir,
		})
		if err != nil {
			return err
		}
		extractHook = &extract.Hook{
			Command: rendered,
			BinName: p.bin.Name,
		}
		if p.bin.Hook.WorkDir != "" {
			extractHook.WorkDir = p.bin.Hook.WorkDir
		}
	}

	extractor := extract.New(p.logger, p.runner)
	return extractor.Extract(ctx, archive, p.dataDir, extractHook)
}

func (p *Package) recordInstall(ctx context.Context, version, url string) error {
	source, err := json.Marshal(p.bin.Source)
	if err != nil {
		return fmt.Errorf("marshal source: %w", err)
	}
	now := time.Now()
	_, err = p.store.Insert(ctx, history.Record{
		Name:        p.bin.Name,
		Version:     version,
		URL:         url,
		Source:      string(source),
		UpdatedTime: now,
		CreateTime:  now,
	})
	return err
}

// runAction renders and runs one lifecycle hook command. A missing command
// or runner is a no-op.
func (p *Package) runAction(ctx context.Context, name, command string, extra map[string]string) error {
	if command == "" || p.runner == nil {
		return nil
	}
	rendered, err := p.renderCommand(command, extra)
	if err != nil {
		return fmt.Errorf("%s hook: %w", name, err)
	}

	workDir := p.dataDir
	if p.bin.Hook != nil && p.bin.Hook.WorkDir != "" {
		workDir = p.bin.Hook.WorkDir
	}
	p.logger.Debug("running hook", "action", name, "command", rendered)
	if err := p.runner.Run(ctx, rendered, workDir); err != nil {
		return fmt.Errorf("%s hook: %w", name, err)
	}
	return nil
}

func (p *Package) renderCommand(command string, extra map[string]string) (string, error) {
	data := p.plat.Values(extra)
	data["name"] = p.bin.Name
	data["data_dir"] = p.dataDir
	return hook.Render(command, data)
}

func actionCommand(h *config.Hook, action string) string {
	if h == nil {
		return ""
	}
	switch action {
	case "install":
		return h.Action.Install
	case "update":
		return h.Action.Update
	case "extract":
		return h.Action.Extract
	case "uninstall":
		return h.Action.Uninstall
	}
	return ""
}

func removeLink(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
