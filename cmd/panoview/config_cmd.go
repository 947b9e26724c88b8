package main

import (
	"github.com/spf13/cobra"
)

func newConfigCommand(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.cfg.Write(cmd.OutOrStdout())
		},
	}
}
