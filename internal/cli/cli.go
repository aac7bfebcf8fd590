package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livedot/pkg/buildinfo"
	"github.com/matzehuels/livedot/pkg/cache"
	"github.com/matzehuels/livedot/pkg/config"
	"github.com/matzehuels/livedot/pkg/engine"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "livedot"

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

	// Config is loaded before any subcommand runs.
	Config config.Config

	// NewEngine creates the graph engine. Tests substitute enginetest.
	NewEngine func(ctx context.Context) (engine.Engine, error)

	// Out receives command output.
	Out io.Writer

	configPath  string
	verbose     bool
	interactive bool // Out is a terminal; enables the spinner
}

// New creates a new CLI instance logging to w. Command output goes to
// standard output.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
		NewEngine: func(ctx context.Context) (engine.Engine, error) {
			return engine.NewGraphviz(ctx)
		},
		Out:         os.Stdout,
		interactive: isTerminal(os.Stdout),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "livedot keeps Graphviz renders in sync with their DOT files",
		Long: `livedot edits the graph, node and edge attributes of DOT files and
keeps rendered previews current while the file changes on disk.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/livedot/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.attrCommand())
	root.AddCommand(c.formatsCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and attaches the logger to the command
// context. --verbose wins over the configured log level.
func (c *CLI) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	level, _ := cfg.Log.ParseLevel()
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	c.Logger.Debug("config loaded", "path", c.configPath, "cache", cfg.Cache.Backend)

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the configured cache backend. Backend failures degrade to
// no caching with a warning; a render never fails because of the cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	cfg := c.Config.Cache
	if noCache || cfg.Backend == config.BackendNone {
		return cache.NewNullCache()
	}

	var (
		cc  cache.Cache
		err error
	)
	switch cfg.Backend {
	case config.BackendRedis:
		cc, err = cache.NewRedisCache(ctx, cfg.RedisAddr, "")
	case config.BackendMongo:
		cc, err = cache.NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		var dir string
		dir, err = c.cacheDir()
		if err == nil {
			cc, err = cache.NewFileCache(dir)
		}
	}
	if err != nil {
		c.Logger.Warn("cache disabled", "backend", cfg.Backend, "err", err)
		return cache.NewNullCache()
	}
	return cc
}

// cacheDir returns the file cache directory: the configured one, or the XDG
// default (~/.cache/livedot/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return config.CacheDir()
}

// newKeyer scopes cache keys by engine implementation.
func newKeyer(eng engine.Engine) cache.Keyer {
	prefix := "graphviz:"
	if _, ok := eng.(*engine.Graphviz); !ok {
		prefix = "custom:"
	}
	return cache.NewScopedKeyer(nil, prefix)
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseFormats splits a comma-separated format flag. Empty means fallback.
func parseFormats(s, fallback string) []string {
	if s == "" {
		return []string{fallback}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseArgs turns repeated name=value flags into a map.
func parseArgs(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, _ := strings.Cut(p, "=")
		out[name] = value
	}
	return out
}
