package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stipple/pkg/buildinfo"
	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = buildinfo.Name

	// presetsFile is the user preset file name inside the config directory.
	presetsFile = "presets.toml"
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

	// Persistent flags shared by every command.
	noCache    bool
	redisURL   string
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level the pipeline's
// generate, encode and cache events are logged too.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		registerDebugHooks(c.Logger)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stipple converts images into dot drawings for plotters and print",
		Long: `Stipple turns a raster or SVG image into a set of dots whose size and
density follow the image's tone, then writes them as EPS, HPGL (.plt), SVG,
DXF, PNG or BMP. Vector formats are streamed in batches so large dot sets
never have to fit in memory twice.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the dot-set cache")
	root.PersistentFlags().StringVar(&c.redisURL, "redis", os.Getenv("STIPPLE_REDIS_URL"), "cache dot sets in Redis (redis://host:port/db) instead of on disk")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "preset file (default: $XDG_CONFIG_HOME/stipple/presets.toml)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.dotsCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() (*pipeline.Runner, error) {
	cache, err := c.newCache()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

// newCache picks the cache backend from the persistent flags. Entries are
// zstd-compressed in every persistent backend.
func (c *CLI) newCache() (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	if c.redisURL != "" {
		rc, err := cache.NewRedisCache(c.redisURL)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using redis cache", "url", c.redisURL)
		return cache.Compress(rc), nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Debug("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Compress(fc), nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stipple/).
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

// configDir returns the config directory using XDG standard (~/.config/stipple/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// presetPath returns the user preset file: --config when given, otherwise
// the file in the config directory.
func (c *CLI) presetPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	dir, err := configDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, presetsFile)
}
