package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"susu-dfs-console/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// GRPCClient pushes tree frames over one long-lived client stream.
type GRPCClient struct {
	mu sync.Mutex

	logger       *slog.Logger
	addr         string
	tlsConfig    *tls.Config
	token        string
	treeMethod   string
	conn         *grpc.ClientConn
	treeStream   grpc.ClientStream
	streamCancel context.CancelFunc
}

func NewGRPCClient(addr string, tlsCfg *tls.Config, token, treeMethod string, logger *slog.Logger) *GRPCClient {
	return &GRPCClient{
		logger:     logger,
		addr:       addr,
		tlsConfig:  tlsCfg,
		token:      token,
		treeMethod: treeMethod,
	}
}

func (c *GRPCClient) SendTreeSnapshot(ctx context.Context, snap model.TreeSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(); err != nil {
		return err
	}
	if c.treeStream == nil {
		if err := c.openTreeStreamLocked(); err != nil {
			return err
		}
	}
	frame := NewTreeFrame(snap)
	if err := c.treeStream.SendMsg(frame); err != nil {
		c.logger.Warn("grpc tree send failed, reopening stream", "error", err)
		c.closeStreamLocked()
		if err2 := c.openTreeStreamLocked(); err2 != nil {
			return fmt.Errorf("reopen tree stream: %w", err2)
		}
		if err2 := c.treeStream.SendMsg(frame); err2 != nil {
			return fmt.Errorf("send tree frame: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.treeStream != nil {
		if err := c.treeStream.CloseSend(); err == nil {
			c.awaitAckLocked(ctx)
		}
	}
	c.closeStreamLocked()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// awaitAckLocked waits for the server to finish the stream so queued frames are
// flushed before the stream context is canceled.
func (c *GRPCClient) awaitAckLocked(ctx context.Context) {
	s := c.treeStream
	done := make(chan struct{})
	go func() {
		var ack json.RawMessage
		_ = s.RecvMsg(&ack)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (c *GRPCClient) ensureConnLocked() error {
	if c.conn != nil {
		return nil
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(
		c.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc stream connected", "addr", c.addr)
	return nil
}

// openTreeStreamLocked opens the stream on a context owned by the client: the
// stream outlives any single send.
func (c *GRPCClient) openTreeStreamLocked() error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	streamCtx, cancel := context.WithCancel(context.Background())
	if c.token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+c.token)
	}
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.treeMethod)
	if err != nil {
		cancel()
		return fmt.Errorf("open tree stream: %w", err)
	}
	c.treeStream = s
	c.streamCancel = cancel
	return nil
}

func (c *GRPCClient) closeStreamLocked() {
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	c.treeStream = nil
}
