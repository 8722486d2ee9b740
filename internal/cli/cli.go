// Package cli implements the boothplan command-line interface.
//
// # Commands
//
//   - allocate: place the projects of a demand file on a floor plan
//   - validate: check a floor plan and print its cluster grids
//   - render: draw a saved allocation result as SVG, PDF or PNG
//   - serve: run the HTTP surface
//   - cache: manage the local result cache
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// held by [CLI] and also attached to each command's context.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/boothplan/pkg/buildinfo"
	"github.com/matzehuels/boothplan/pkg/cache"
	"github.com/matzehuels/boothplan/pkg/config"
	"github.com/matzehuels/boothplan/pkg/pipeline"
	"github.com/matzehuels/boothplan/pkg/runlock"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "boothplan"

	// defaultFloorPlan is read when --floorplan is not given.
	defaultFloorPlan = "floorplan.toml"

	// defaultLockTTL bounds how long a crashed process can hold a Redis run lock.
	defaultLockTTL = 2 * time.Minute
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "boothplan places exhibition projects on a venue floor plan",
		Long:         `boothplan assigns every project of an exhibition a booth inside the clusters of a floor plan, favouring well placed clusters and keeping each booth on an outer edge.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.allocateCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// backendOpts selects where results are cached and runs are locked.
type backendOpts struct {
	noCache  bool
	redisURL string
	lockTTL  time.Duration
}

func (o *backendOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "neither read nor write the result cache")
	cmd.Flags().StringVar(&o.redisURL, "redis", "", "redis:// URL for a shared result cache and run lock")
	cmd.Flags().DurationVar(&o.lockTTL, "lock-ttl", defaultLockTTL, "expiry of the Redis run lock")
}

// newRunner creates a pipeline runner for CLI use. Without Redis it caches
// in the user cache directory and locks in-process. The returned close
// function releases the backends.
func (c *CLI) newRunner(ctx context.Context, o backendOpts) (*pipeline.Runner, func() error, error) {
	if o.redisURL == "" {
		store, err := newCache(o.noCache)
		if err != nil {
			return nil, nil, err
		}
		r := pipeline.NewRunner(store, nil, runlock.NewLocal(), c.Logger)
		return r, r.Close, nil
	}

	rc, err := cache.DialRedis(ctx, o.redisURL, cache.WithKeyPrefix(appName+":"))
	if err != nil {
		return nil, nil, err
	}
	locker := runlock.NewRedis(rc.Client(), o.lockTTL)
	var store cache.Cache = rc
	if o.noCache {
		store = cache.NewNullCache()
	}
	c.Logger.Debug("using redis backend", "cache", !o.noCache)
	return pipeline.NewRunner(store, nil, locker, c.Logger), rc.Close, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/boothplan/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// loadFloorPlan reads the floor plan at path, or floorplan.toml in the
// working directory when path is empty.
func loadFloorPlan(path string) (*config.FloorPlan, error) {
	if path == "" {
		path = defaultFloorPlan
	}
	return config.Load(path)
}
