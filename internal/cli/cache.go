package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livedot/pkg/cache"
	"github.com/matzehuels/livedot/pkg/config"
	"github.com/matzehuels/livedot/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the render output cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached render outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := c.newCache(cmd.Context(), false)
			defer cc.Close()

			clearer, ok := cc.(cache.Clearer)
			if !ok {
				printInfo(c.Out, "Caching is disabled")
				return nil
			}
			n, err := clearer.Clear(cmd.Context())
			if err != nil {
				return errors.Wrap(errors.ErrCodeIO, err, "clear %s cache", c.Config.Cache.Backend)
			}
			printSuccess(c.Out, "Cleared %d cached entries", n)
			printDetail(c.Out, "Backend: %s", c.cacheLocation())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached outputs are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.Out, c.cacheLocation())
			return nil
		},
	}
}

// cacheLocation describes the configured backend: a directory for the file
// cache, an address for the others.
func (c *CLI) cacheLocation() string {
	cfg := c.Config.Cache
	switch cfg.Backend {
	case config.BackendRedis:
		return "redis://" + cfg.RedisAddr
	case config.BackendMongo:
		return cfg.MongoURI + " (" + cfg.MongoDB + ")"
	case config.BackendNone:
		return "none"
	}
	dir, err := c.cacheDir()
	if err != nil {
		return "unknown (" + err.Error() + ")"
	}
	return dir
}
