package console

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// staleAfter is how many poll intervals may pass without a tree before the
// tracker is reported unreachable.
const staleAfter = 3

func (c *Console) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.scheduler.Run(gctx)
	})
	g.Go(func() error {
		return c.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return c.runProbeListener(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Console) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(c.cfg.HealthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			c.checkHealth(now)
		}
	}
}

func (c *Console) checkHealth(now time.Time) {
	last := c.health.LastTreeAt()
	stale := last.IsZero() || now.Sub(last) > staleAfter*c.cfg.TreePollInterval
	if stale && c.health.TrackerReachable() {
		c.logger.Warn("tracker tree is stale", "last_tree_at", last, "poll_interval", c.cfg.TreePollInterval)
	}
	c.health.SetTrackerReachable(!stale)
	c.logHealth(stateLabel(stale))
}

func stateLabel(stale bool) string {
	if stale {
		return "stale"
	}
	return "ok"
}

func (c *Console) logHealth(status string) {
	c.logger.Log(context.Background(), slog.LevelDebug, "console health", "status", status, "snapshot", c.health.Snapshot())
}

func (c *Console) shutdown(ctx context.Context) {
	if err := c.sink.Close(ctx); err != nil {
		c.logger.Warn("stream sink close failed", "error", err)
	}
	c.health.SetStreamConnected(false)
}
