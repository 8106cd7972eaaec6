package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"susu-dfs-console/internal/api"
	"susu-dfs-console/internal/console"
	"susu-dfs-console/internal/model"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newTreeCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "List the storage nodes registered with the tracker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("unknown output format %q", output)
			}
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			tlsCfg, err := cfg.TLSConfig()
			if err != nil {
				return fmt.Errorf("tls config: %w", err)
			}
			clients, err := console.NewClients(cfg, tlsCfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			nodes, err := api.QueryTree(ctx, clients)
			if err != nil {
				return fmt.Errorf("query tracker tree: %w", err)
			}
			return printTree(cmd.OutOrStdout(), nodes, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table|json")
	return cmd
}

func printTree(w io.Writer, nodes []model.StorageModel, output string) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if nodes == nil {
			nodes = []model.StorageModel{}
		}
		return enc.Encode(nodes)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tSTATUS\tFILES\tSTORED\tHEARTBEAT")
	for _, n := range nodes {
		heartbeat := "-"
		if at := n.HeartbeatAt(); !at.IsZero() {
			heartbeat = humanize.Time(at)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			strconv.FormatInt(n.ClientID, 10),
			orDash(n.Name),
			n.Address(),
			n.Status,
			humanize.Comma(n.FileCount),
			humanize.IBytes(uint64(max(n.StoredSize, 0))),
			heartbeat,
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
