package collector

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"susu-dfs-console/internal/model"
	"susu-dfs-console/internal/stream"
)

type Scheduler struct {
	logger           *slog.Logger
	tree             *TreeCollector
	sink             stream.Sink
	treeInterval     time.Duration
	fullSyncInterval time.Duration
	errorBackoff     time.Duration
}

func NewScheduler(
	logger *slog.Logger,
	tree *TreeCollector,
	sink stream.Sink,
	treeInterval, fullSyncInterval, errorBackoff time.Duration,
) *Scheduler {
	if errorBackoff <= 0 {
		errorBackoff = time.Second
	}
	return &Scheduler{
		logger:           logger,
		tree:             tree,
		sink:             sink,
		treeInterval:     treeInterval,
		fullSyncInterval: fullSyncInterval,
		errorBackoff:     errorBackoff,
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.runTreeLoop(gctx)
	})
	if s.fullSyncInterval > 0 {
		g.Go(func() error {
			return s.runFullSyncLoop(gctx)
		})
	}
	return g.Wait()
}

func (s *Scheduler) runTreeLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.treeInterval)
	defer ticker.Stop()

	if err := s.collectAndSendTree(ctx); err != nil {
		s.logger.Warn("initial tree collect failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.collectAndSendTree(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("tree collect/send failed", "error", err)
				s.sleepWithContext(ctx, s.errorBackoff)
			}
		}
	}
}

func (s *Scheduler) runFullSyncLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.fullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tree.ResetBaseline()
		}
	}
}

func (s *Scheduler) collectAndSendTree(ctx context.Context) error {
	snap, err := s.tree.Collect(ctx)
	if err != nil {
		return err
	}
	s.logMembership(snap)
	return s.sink.SendTreeSnapshot(ctx, snap)
}

func (s *Scheduler) logMembership(snap model.TreeSnapshot) {
	if snap.SyncMode != model.SyncModeDelta {
		return
	}
	for _, node := range snap.Joined {
		s.logger.Info("storage node joined", "key", node.Key(), "name", node.Name, "addr", node.Address())
	}
	for _, key := range snap.LeftKeys {
		s.logger.Warn("storage node left", "key", key)
	}
}

func (s *Scheduler) sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
