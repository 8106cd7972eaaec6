package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"susu-dfs-console/internal/config"
	"susu-dfs-console/internal/console"
	"susu-dfs-console/internal/telemetry"
)

type rootOptions struct {
	trackerURL string
	token      string
	logLevel   string

	initTracer     func(service, version string) (func(context.Context) error, error)
	shutdownTracer func(context.Context) error
}

// load reads the environment, applies flag overrides and validates the result.
func (o *rootOptions) load(logOut io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Parse()
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.trackerURL != "" {
		cfg.TrackerURL = o.trackerURL
	}
	if o.token != "" {
		cfg.TrackerToken = o.token
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, console.BuildLogger(cfg, logOut), nil
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{initTracer: telemetry.InitTracer}
	cmd := &cobra.Command{
		Use:           "susu-console",
		Short:         "Inspect and watch the storage nodes of a susu DFS tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			shutdown, err := opts.initTracer("susu-dfs-console", config.HardcodedVersion)
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			opts.shutdownTracer = shutdown
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.trackerURL, "tracker", "", "tracker API base url (overrides SUSU_TRACKER_URL)")
	cmd.PersistentFlags().StringVar(&opts.token, "token", "", "tracker token for secure requests (overrides SUSU_TRACKER_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (overrides SUSU_LOG_LEVEL)")

	cmd.AddCommand(newTreeCmd(opts), newWatchCmd(opts), newVersionCmd(opts))
	return cmd, opts
}

// execute runs cmd and flushes the tracer even when the command failed.
func execute(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	err := cmd.ExecuteContext(ctx)
	if opts.shutdownTracer != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := opts.shutdownTracer(sctx); serr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown tracer: %w", serr))
		}
		opts.shutdownTracer = nil
	}
	return err
}

func main() {
	cmd, opts := newRootCmd()
	if err := execute(context.Background(), cmd, opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
