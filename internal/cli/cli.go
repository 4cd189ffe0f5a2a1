// Package cli implements the cutplan command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/logging"
)

const appName = "cutplan"

// Log levels exported for use in main.go.
const (
	LogDebug = logging.LevelDebug
	LogInfo  = logging.LevelInfo
)

var (
	version = "dev" // semantic version (e.g., "v1.2.3")
	commit  string  // git commit SHA
	date    string  // build timestamp
)

// SetVersion sets the version information displayed by --version. It is
// called from main with values injected via ldflags.
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	date = d
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out        io.Writer
	configPath string
	verbose    bool
	cfg        config.AppConfig
}

// New creates a CLI logging to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: logging.New(w, level),
		out:    os.Stdout,
		cfg:    config.Default(),
	}
}

// SetOutput redirects command output (not logs).
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "cutplan lays out rectangular parts on a sheet",
		Long:          `cutplan is a deterministic guillotine cut planner for sheet goods. It packs parts onto a sheet, exports cut sheets and labels, and serves the planner over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("%s %s\ncommit: %s\nbuilt: %s\n", appName, version, commit, date))
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (.json or .toml, default "+config.DefaultConfigPath()+")")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.packCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.configCommand())

	return root
}

// loadConfig reads the config file and environment, then applies the
// logging settings. --verbose wins over the configured level.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	c.cfg = cfg

	level := LogInfo
	if cfg.LogLevel != "" {
		if level, err = logging.ParseLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
	}
	if c.verbose {
		level = LogDebug
	}
	c.Logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		c.Logger.SetFormatter(log.JSONFormatter)
	}
	c.Logger.Debug("Loaded config", "path", path, "cache", cfg.Cache.Backend)
	return nil
}
