package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/workgraph/pkg/config"
)

// configCommand creates the config command group.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			out := cmd.OutOrStdout()
			if cfg.Source != "" {
				fmt.Fprintln(out, StyleDim.Render("# "+cfg.Source))
			} else {
				fmt.Fprintln(out, StyleDim.Render("# built-in defaults"))
			}
			fmt.Fprint(out, cfg.String())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := config.Path(c.configPath)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cmd
}
