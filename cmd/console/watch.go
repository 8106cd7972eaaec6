package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"susu-dfs-console/internal/console"
	"susu-dfs-console/internal/console/version"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the tracker tree and stream snapshots to the configured sink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c, err := console.New(cfg, logger)
			if err != nil {
				logger.Error("console initialization failed", "error", err)
				return err
			}
			if err := c.Run(cmd.Context()); err != nil {
				logger.Error("console runtime failed", "error", err)
				return err
			}
			return nil
		},
	}
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print console version and effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(version.Get(cfg))
		},
	}
}
