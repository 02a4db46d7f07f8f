package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"text/tabwriter"

	"github.com/charmbracelet/log"

	"github.com/binup-dev/binup/internal/config"
	"github.com/binup-dev/binup/internal/download"
	"github.com/binup-dev/binup/internal/github"
	"github.com/binup-dev/binup/internal/history"
	"github.com/binup-dev/binup/internal/hook"
	"github.com/binup-dev/binup/internal/platform"
)

// Manager fans lifecycle operations out across all configured binaries.
// Every binary is always attempted; failures are collected and reported as
// an aggregate so one broken upstream never blocks the others.
type Manager struct {
	cfg      *config.Config
	store    *history.Store
	client   *http.Client
	plat     *platform.Info
	logger   *log.Logger
	packages []*Package
}

// ManagerConfig holds the shared collaborators the manager hands to each
// package.
type ManagerConfig struct {
	Config   *config.Config
	Store    *history.Store
	Platform *platform.Info
	// HTTPClient is shared by the API client and every download cache.
	HTTPClient *http.Client
	// GithubToken, when set, lifts API rate limits.
	GithubToken string
	// APIBaseURL overrides the GitHub API endpoint, e.g. for GitHub
	// Enterprise installations.
	APIBaseURL string
	Logger     *log.Logger
}

// NewManager constructs one Package per configured binary. Construction is
// fanned out and joined; any failure aborts, since a package that cannot be
// built signals broken configuration.
func NewManager(mc ManagerConfig) (*Manager, error) {
	if mc.Config == nil || mc.Store == nil || mc.Platform == nil {
		return nil, fmt.Errorf("manager: Config, Store, and Platform are required")
	}
	logger := mc.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	client := mc.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: download.DefaultTimeout}
	}

	m := &Manager{
		cfg:    mc.Config,
		store:  mc.Store,
		client: client,
		plat:   mc.Platform,
		logger: logger,
	}

	apiOpts := []github.ClientOption{github.WithHTTPClient(client)}
	if mc.GithubToken != "" {
		apiOpts = append(apiOpts, github.WithToken(mc.GithubToken))
	}
	if mc.APIBaseURL != "" {
		apiOpts = append(apiOpts, github.WithBaseURL(mc.APIBaseURL))
	}
	apiClient := github.NewClient(apiOpts...)

	packages := make([]*Package, len(mc.Config.Bins))
	errs := make([]error, len(mc.Config.Bins))
	var wg sync.WaitGroup
	for i, bin := range mc.Config.Bins {
		wg.Add(1)
		go func(i int, bin config.Binary) {
			defer wg.Done()
			packages[i], errs[i] = m.buildPackage(apiClient, bin)
		}(i, bin)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("manager: package %s: %w", mc.Config.Bins[i].Name, err)
		}
	}
	m.packages = packages
	return m, nil
}

func (m *Manager) buildPackage(apiClient *github.Client, bin config.Binary) (*Package, error) {
	pickRegex := bin.PickRegex
	if pickRegex != "" {
		rendered, err := hook.Render(pickRegex, m.plat.Values(nil))
		if err != nil {
			return nil, fmt.Errorf("render pick regex: %w", err)
		}
		pickRegex = rendered
	}

	hasExtractHook := bin.Hook != nil && bin.Hook.Action.Extract != ""
	resolver := github.NewReleaseSource(apiClient, bin.Source.Owner, bin.Source.Repo, github.Selection{
		BinName:        bin.Name,
		PickRegex:      pickRegex,
		HasExtractHook: hasExtractHook,
		Platform:       m.plat,
		Logger:         m.logger,
	})

	cache := download.NewCache(
		filepath.Join(m.cfg.CacheDir, bin.Name),
		download.WithHTTPClient(m.client),
		download.WithLogger(m.logger),
	)

	return NewPackage(bin, m.cfg, Deps{
		Resolver: resolver,
		Cache:    cache,
		Store:    m.store,
		Runner:   hook.NewRunner(m.logger),
		Platform: m.plat,
		Logger:   m.logger,
	})
}

// Packages returns the managed packages, optionally filtered to names.
// Unknown names are an error so typos never silently no-op.
func (m *Manager) Packages(names []string) ([]*Package, error) {
	if len(names) == 0 {
		return m.packages, nil
	}
	byName := make(map[string]*Package, len(m.packages))
	for _, p := range m.packages {
		byName[p.Name()] = p
	}
	selected := make([]*Package, 0, len(names))
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown binary %q", name)
		}
		selected = append(selected, p)
	}
	return selected, nil
}

// InstallAll installs the named binaries, or all of them when names is
// empty. Already installed binaries are skipped.
func (m *Manager) InstallAll(ctx context.Context, names []string) error {
	return m.forEach(ctx, names, "install", func(ctx context.Context, p *Package) error {
		installed, err := p.Installed(ctx)
		if err != nil {
			return err
		}
		if installed {
			m.logger.Info("already installed, skipping", "binary", p.Name())
			return nil
		}
		return p.Install(ctx)
	})
}

// UninstallAll uninstalls the named binaries, or all of them.
func (m *Manager) UninstallAll(ctx context.Context, names []string) error {
	return m.forEach(ctx, names, "uninstall", func(ctx context.Context, p *Package) error {
		return p.Uninstall(ctx)
	})
}

// UpdateAll updates the named binaries, or all of them.
func (m *Manager) UpdateAll(ctx context.Context, names []string) error {
	return m.forEach(ctx, names, "update", func(ctx context.Context, p *Package) error {
		return p.Update(ctx)
	})
}

// CleanAll deletes every binary's download cache.
func (m *Manager) CleanAll(names []string) error {
	packages, err := m.Packages(names)
	if err != nil {
		return err
	}
	failed := 0
	for _, p := range packages {
		if err := p.CleanCache(); err != nil {
			m.logger.Error("clean cache", "binary", p.Name(), "err", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("clean: %d of %d binaries failed", failed, len(packages))
	}
	return nil
}

// forEach runs op concurrently over the selected packages, waits for every
// task, and reports an aggregate failure count. It never short-circuits.
func (m *Manager) forEach(ctx context.Context, names []string, opName string, op func(context.Context, *Package) error) error {
	packages, err := m.Packages(names)
	if err != nil {
		return err
	}

	errs := make([]error, len(packages))
	var wg sync.WaitGroup
	for i, p := range packages {
		wg.Add(1)
		go func(i int, p *Package) {
			defer wg.Done()
			errs[i] = op(ctx, p)
		}(i, p)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			m.logger.Error(opName+" failed", "binary", packages[i].Name(), "err", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s: %d of %d binaries failed", opName, failed, len(packages))
	}
	return nil
}

// List writes a table of every configured binary and its state.
func (m *Manager) List(ctx context.Context, w io.Writer) error {
	type row struct {
		name, source, policy, installed string
	}
	rows := make([]row, 0, len(m.packages))
	for _, p := range m.packages {
		policy := "latest"
		if p.bin.Pinned() {
			policy = "pinned " + p.bin.Version
		}
		version, err := p.InstalledVersion(ctx)
		if err != nil {
			return err
		}
		if version == "" {
			version = "-"
		}
		rows = append(rows, row{
			name:      p.Name(),
			source:    p.bin.Source.String(),
			policy:    policy,
			installed: version,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tVERSION\tINSTALLED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.name, r.source, r.policy, r.installed)
	}
	return tw.Flush()
}
