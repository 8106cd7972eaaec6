package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"susu-dfs-console/internal/console/version"
)

type probeReply struct {
	version.Info
	Status string         `json:"status"`
	Health map[string]any `json:"health"`
}

func (c *Console) runProbeListener(ctx context.Context) error {
	addr := strings.TrimSpace(c.cfg.ProbeListenAddr)
	if addr == "" {
		return fmt.Errorf("empty probe listen address")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen probe endpoint %s: %w", addr, err)
	}
	c.logger.Info("probe endpoint listening", "addr", ln.Addr().String())
	return c.serveProbe(ctx, ln)
}

// serveProbe answers every connection with one JSON line and closes it.
func (c *Console) serveProbe(ctx context.Context, ln net.Listener) error {
	defer func() { _ = ln.Close() }()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(acceptErr, &ne) && ne.Timeout() {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept probe endpoint %s: %w", ln.Addr(), acceptErr)
		}

		_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
		_ = json.NewEncoder(conn).Encode(c.probeReply())
		_ = conn.Close()
	}
}

func (c *Console) probeReply() probeReply {
	status := "ok"
	if !c.health.TrackerReachable() {
		status = "degraded"
	}
	return probeReply{
		Info:   version.Get(c.cfg),
		Status: status,
		Health: c.health.Snapshot(),
	}
}
