package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/binup-dev/binup/internal/binary"
	"github.com/binup-dev/binup/internal/config"
	"github.com/binup-dev/binup/internal/github"
	"github.com/binup-dev/binup/internal/history"
	"github.com/binup-dev/binup/internal/lockfile"
	"github.com/binup-dev/binup/internal/platform"
)

// requestTimeout bounds every upstream HTTP request. There is no retry
// policy at this level; a hung request delays its own binary's task only.
const requestTimeout = 30 * time.Second

var (
	flagConfig  string
	flagVerbose bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "binup",
		Short: "Install and update binaries from GitHub releases",
		Long: `binup installs binaries published through GitHub releases: it picks the
right release asset for this platform, caches and extracts it, and exposes
the executable through a symlink directory.

Binaries are declared in a TOML config file (default:
` + defaultConfigHint() + `).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInstallCommand(),
		newUninstallCommand(),
		newUpdateCommand(),
		newListCommand(),
		newCleanCommand(),
		newVersionCommand(),
	)
	return root
}

func defaultConfigHint() string {
	path, err := config.DefaultPath()
	if err != nil {
		return "~/.config/binup/config.toml"
	}
	return path
}

// app wires the shared collaborators one command invocation needs.
type app struct {
	cfg     *config.Config
	store   *history.Store
	manager *binary.Manager
	logger  *log.Logger
	lock    *lockfile.Lock
}

// newApp loads configuration and opens the shared resources. Mutating
// commands pass withLock to serialize against concurrent binup runs.
func newApp(cmd *cobra.Command, withLock bool) (*app, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}

	path := flagConfig
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir, cfg.ExecutableDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	a := &app{cfg: cfg, logger: logger}
	if withLock {
		lock, err := lockfile.Acquire(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		a.lock = lock
	}

	plat, err := platform.Detect(cmd.Context())
	if err != nil {
		a.close()
		return nil, err
	}
	logger.Debug("platform detected", "os", plat.OS, "arch", plat.Arch, "target_env", plat.TargetEnv)

	store, err := history.Open(history.Config{Path: cfg.DatabasePath(), Logger: logger})
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	manager, err := binary.NewManager(binary.ManagerConfig{
		Config:      cfg,
		Store:       store,
		Platform:    plat,
		HTTPClient:  &http.Client{Timeout: requestTimeout},
		GithubToken: os.Getenv(github.TokenEnvVar),
		Logger:      logger,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.manager = manager
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close history store", "err", err)
		}
	}
	if a.lock != nil {
		if err := a.lock.Release(); err != nil {
			a.logger.Warn("release run lock", "err", err)
		}
	}
}
