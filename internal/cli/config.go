package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/piwi3910/cutplan/internal/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configShowCommand())
	return cmd
}

// configInitCommand writes the default configuration.
func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file (.json or .toml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			c.printSuccess("Wrote default config")
			c.printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// configShowCommand prints the effective configuration after the file and
// environment overrides.
func (c *CLI) configShowCommand() *cobra.Command {
	var asTOML bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if asTOML {
				if err := toml.NewEncoder(&buf).Encode(c.cfg); err != nil {
					return fmt.Errorf("failed to encode config: %w", err)
				}
			} else {
				data, err := json.MarshalIndent(c.cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode config: %w", err)
				}
				buf.Write(data)
				buf.WriteByte('\n')
			}
			_, err := c.out.Write(buf.Bytes())
			return err
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "print as TOML instead of JSON")
	return cmd
}
