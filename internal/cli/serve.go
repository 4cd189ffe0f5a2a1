package cli

import (
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/piwi3910/cutplan/internal/cache"
	"github.com/piwi3910/cutplan/internal/server"
)

// serveCommand creates the command that runs the HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	var addr, cacheBackend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /furniture/cut over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cacheBackend != "" {
				cfg.Cache.Backend = cacheBackend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			store, err := cache.Open(ctx, cfg.Cache)
			if err != nil {
				return err
			}
			defer store.Close()

			if c.Logger.GetLevel() > log.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}
			return server.New(cfg, store, c.Logger, version).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&cacheBackend, "cache", "", "plan cache: none, memory, file or redis (overrides config)")
	return cmd
}
