package collector

import (
	"context"
	"sync"
	"time"

	"susu-dfs-console/internal/api"
	"susu-dfs-console/internal/https"
	"susu-dfs-console/internal/model"
)

// TreeCollector polls tracker/tree and tracks membership between polls.
type TreeCollector struct {
	mu        sync.Mutex
	clients   https.Selector
	consoleID string
	tracker   string
	prev      map[string]model.StorageModel
	now       func() time.Time
}

func NewTreeCollector(clients https.Selector, consoleID, tracker string) *TreeCollector {
	return &TreeCollector{
		clients:   clients,
		consoleID: consoleID,
		tracker:   tracker,
		now:       time.Now,
	}
}

// Collect fetches the tree once. A failed fetch keeps the previous baseline so
// the next successful poll still reports the delta against the last good one.
func (c *TreeCollector) Collect(ctx context.Context) (model.TreeSnapshot, error) {
	nodes, err := api.QueryTree(ctx, c.clients)
	if err != nil {
		return model.TreeSnapshot{}, err
	}
	if nodes == nil {
		nodes = []model.StorageModel{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	mode, joined, left := model.DiffTree(c.prev, nodes)
	c.prev = model.BuildStorageMap(nodes)

	return model.TreeSnapshot{
		ConsoleID:     c.consoleID,
		Tracker:       c.tracker,
		TimestampUnix: c.now().UTC().Unix(),
		SyncMode:      mode,
		Nodes:         nodes,
		Joined:        joined,
		LeftKeys:      left,
	}, nil
}

// ResetBaseline makes the next Collect a full sync.
func (c *TreeCollector) ResetBaseline() {
	c.mu.Lock()
	c.prev = nil
	c.mu.Unlock()
}
