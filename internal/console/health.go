package console

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	trackerReachable atomic.Bool
	streamConnected  atomic.Bool
	lastTreeAt       atomic.Int64
	nodeCount        atomic.Int64
	onlineCount      atomic.Int64
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.trackerReachable.Store(false)
	h.streamConnected.Store(false)
	return h
}

func (h *HealthStatus) SetTrackerReachable(ok bool) {
	h.trackerReachable.Store(ok)
}

func (h *HealthStatus) SetStreamConnected(ok bool) {
	h.streamConnected.Store(ok)
}

func (h *HealthStatus) MarkTree(ts time.Time, nodes, online int) {
	h.lastTreeAt.Store(ts.UnixNano())
	h.nodeCount.Store(int64(nodes))
	h.onlineCount.Store(int64(online))
}

// LastTreeAt is zero until the first tree has been received.
func (h *HealthStatus) LastTreeAt() time.Time {
	v := h.lastTreeAt.Load()
	if v <= 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}

func (h *HealthStatus) TrackerReachable() bool {
	return h.trackerReachable.Load()
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"tracker_reachable": h.trackerReachable.Load(),
		"stream_connected":  h.streamConnected.Load(),
		"node_count":        h.nodeCount.Load(),
		"online_count":      h.onlineCount.Load(),
	}
	if at := h.LastTreeAt(); !at.IsZero() {
		out["last_tree_at"] = at
	}
	return out
}
