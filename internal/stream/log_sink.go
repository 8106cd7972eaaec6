package stream

import (
	"context"
	"log/slog"

	"susu-dfs-console/internal/model"
)

// LogSink writes a one-line summary per snapshot. Used when no backend is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) SendTreeSnapshot(_ context.Context, snap model.TreeSnapshot) error {
	s.logger.Info("tracker tree",
		"tracker", snap.Tracker,
		"sync_mode", snap.SyncMode,
		"nodes", len(snap.Nodes),
		"online", snap.OnlineCount(),
		"joined", len(snap.Joined),
		"left", len(snap.LeftKeys),
	)
	return nil
}

func (s *LogSink) Close(context.Context) error {
	return nil
}
