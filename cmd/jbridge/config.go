package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daimatz/jbridge/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage jbridge configuration",
		Long: `Manage jbridge configuration.

Configuration is read from jbridge.toml (or .yaml, .json) in the working
directory or the user config directory, and JBRIDGE_* environment
variables override it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.source != "" {
				fmt.Fprintf(a.stdout, "# loaded from %s\n", a.source)
			}
			return config.Write(a.stdout, a.cfg)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Save(config.DefaultConfig())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "created", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, dir)
			return nil
		},
	})
	return cfgCmd
}
