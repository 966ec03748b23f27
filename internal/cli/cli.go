// Package cli implements the repomerge command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"repomerge/pkg/buildinfo"
	"repomerge/pkg/cache"
	"repomerge/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "repomerge"

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
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
// The real configuration is loaded by the root command's PersistentPreRunE
// once the --config flag has been parsed.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "repomerge",
		Short:         "Repomerge merges repository archives, keeping the newest version of each package",
		Long:          `Repomerge merges a base repository zip with incremental update archives and unpacks only the newest version of each bundled sources jar. It also inspects archive catalogs, diffs them, reports selection decisions, and serves the merged output over HTTP.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/repomerge/config.toml)")

	// Register all subcommands
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Cache Factory
// =============================================================================

// newCache builds the response cache selected by configuration. Cache
// failures never block a command: a broken backend degrades to the null
// cache with a warning.
func (c *CLI) newCache(noCache bool) (cache.Cache, cache.Keyer) {
	keyer := cache.NewScopedKeyer(nil, c.Config.Cache.KeyPrefix)
	if noCache || c.Config.Cache.Backend == config.BackendNone {
		return cache.NewNullCache(), keyer
	}

	switch c.Config.Cache.Backend {
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(cache.RedisOptions{
			Addr:     c.Config.Cache.RedisAddr,
			Password: c.Config.Cache.RedisPassword,
			DB:       c.Config.Cache.RedisDB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, continuing without cache", "addr", c.Config.Cache.RedisAddr, "err", err)
			return cache.NewNullCache(), keyer
		}
		return rc, keyer
	default:
		dir, err := c.cacheDirErr()
		if err != nil {
			return cache.NewNullCache(), keyer
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("file cache unavailable, continuing without cache", "dir", dir, "err", err)
			return cache.NewNullCache(), keyer
		}
		return fc, keyer
	}
}

// cacheDirErr returns the configured cache directory, falling back to the
// XDG default.
func (c *CLI) cacheDirErr() (string, error) {
	if c.Config != nil && c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/repomerge/).
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

// =============================================================================
// Reference Helpers
// =============================================================================

// isRemote reports whether an archive reference needs to be downloaded.
func isRemote(ref string) bool {
	for _, scheme := range []string{"http://", "https://", "s3://"} {
		if len(ref) >= len(scheme) && ref[:len(scheme)] == scheme {
			return true
		}
	}
	return false
}

// displayNames converts archive references into the names shown in output
// and receipts: remote references stay as typed, local paths reduce to
// their base filename (downloaded temp paths would otherwise leak through).
func displayNames(refs []string) []string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		if isRemote(ref) {
			names[i] = ref
		} else {
			names[i] = filepath.Base(ref)
		}
	}
	return names
}
