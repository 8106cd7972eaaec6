package console

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"susu-dfs-console/internal/collector"
	"susu-dfs-console/internal/config"
	"susu-dfs-console/internal/https"
	"susu-dfs-console/internal/model"
	"susu-dfs-console/internal/stream"
)

// Console is the long-running tracker watcher.
type Console struct {
	cfg       config.Config
	logger    *slog.Logger
	clients   *https.Factory
	scheduler *collector.Scheduler
	sink      stream.Sink
	health    *HealthStatus
}

const fullSyncInterval = 10 * time.Minute

// NewClients builds the tracker client profiles. tlsCfg may be nil.
func NewClients(cfg config.Config, tlsCfg *tls.Config, logger *slog.Logger) (*https.Factory, error) {
	clients, err := https.NewFactory(https.Options{
		BaseURL:   cfg.TrackerURL,
		Token:     cfg.TrackerToken,
		UserAgent: cfg.UserAgent + "/" + cfg.ConsoleVersion,
		Timeout:   cfg.RequestTimeout,
		TLSConfig: tlsCfg,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("tracker client: %w", err)
	}
	return clients, nil
}

func New(cfg config.Config, logger *slog.Logger) (*Console, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	clients, err := NewClients(cfg, tlsCfg, logger)
	if err != nil {
		return nil, err
	}

	sink, err := stream.NewSinkFromConfig(cfg, tlsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("stream sink: %w", err)
	}

	health := NewHealthStatus()
	wrappedSink := &healthSink{sink: sink, health: health}
	tree := collector.NewTreeCollector(clients, cfg.ConsoleID, cfg.TrackerURL)
	scheduler := collector.NewScheduler(
		logger,
		tree,
		wrappedSink,
		cfg.TreePollInterval,
		fullSyncInterval,
		cfg.CollectorErrorBackoff,
	)

	return &Console{
		cfg:       cfg,
		logger:    logger,
		clients:   clients,
		scheduler: scheduler,
		sink:      wrappedSink,
		health:    health,
	}, nil
}

func (c *Console) Run(ctx context.Context) error {
	c.logger.Info("starting susu-dfs-console", "console_id", c.cfg.ConsoleID, "tracker", c.cfg.TrackerURL, "stream_mode", c.cfg.StreamMode)
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- c.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
	case sig := <-sigCh:
		c.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", c.cfg.ShutdownTimeout)
		cancelRun()

		graceTimer := time.NewTimer(c.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			c.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig2.String())
			runErr = context.Canceled
		case <-graceTimer.C:
			c.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", c.cfg.ShutdownTimeout)
			runErr = context.DeadlineExceeded
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancelShutdown()
	c.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	c.logger.Info("susu-dfs-console stopped")
	return nil
}

func (c *Console) Health() *HealthStatus {
	return c.health
}

func BuildLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(w, hOpts))
	}
	return slog.New(slog.NewTextHandler(w, hOpts))
}

type healthSink struct {
	sink   stream.Sink
	health *HealthStatus
}

func (s *healthSink) SendTreeSnapshot(ctx context.Context, snap model.TreeSnapshot) error {
	s.health.SetTrackerReachable(true)
	s.health.MarkTree(time.Unix(snap.TimestampUnix, 0).UTC(), len(snap.Nodes), snap.OnlineCount())
	err := s.sink.SendTreeSnapshot(ctx, snap)
	if err != nil {
		s.health.SetStreamConnected(false)
		return err
	}
	s.health.SetStreamConnected(true)
	return nil
}

func (s *healthSink) Close(ctx context.Context) error {
	return s.sink.Close(ctx)
}
