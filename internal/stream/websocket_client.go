package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"susu-dfs-console/internal/model"
)

// WebSocketClient writes tree envelopes as text frames. The backend never
// sends data back; the connection is only read for control frames.
type WebSocketClient struct {
	mu sync.Mutex

	logger       *slog.Logger
	url          string
	token        string
	tlsConfig    *tls.Config
	writeTimeout time.Duration
	pingInterval time.Duration

	conn       *websocket.Conn
	connCancel context.CancelFunc
}

func NewWebSocketClient(url, token string, tlsCfg *tls.Config, writeTimeout, pingInterval time.Duration, logger *slog.Logger) *WebSocketClient {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 10 * time.Second
	}
	return &WebSocketClient{
		logger:       logger,
		url:          url,
		token:        token,
		tlsConfig:    tlsCfg,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

func (c *WebSocketClient) SendTreeSnapshot(ctx context.Context, snap model.TreeSnapshot) error {
	payload, err := EncodeEnvelope(NewTreeEnvelope(snap))
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if err := c.writeLocked(ctx, payload); err != nil {
		if ctx.Err() != nil {
			return err
		}
		c.logger.Warn("websocket write failed, reconnecting", "error", err)
		c.dropConnLocked()
		if err := c.ensureConnLocked(ctx); err != nil {
			return err
		}
		if err := c.writeLocked(ctx, payload); err != nil {
			return fmt.Errorf("write envelope retry: %w", err)
		}
	}
	return nil
}

// Close performs the closing handshake, falling back to an abrupt close when
// ctx ends first.
func (c *WebSocketClient) Close(ctx context.Context) error {
	c.mu.Lock()
	conn, cancel := c.conn, c.connCancel
	c.conn, c.connCancel = nil, nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- conn.Close(websocket.StatusNormalClosure, "shutdown") }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = conn.CloseNow()
		return ctx.Err()
	}
}

func (c *WebSocketClient) writeLocked(ctx context.Context, payload []byte) error {
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, payload)
}

func (c *WebSocketClient) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	opt := &websocket.DialOptions{HTTPHeader: h}
	if c.tlsConfig != nil {
		opt.HTTPClient = &http.Client{Transport: &http.Transport{TLSClientConfig: c.tlsConfig}}
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, opt)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", c.url, err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	readCtx := conn.CloseRead(connCtx)
	c.conn = conn
	c.connCancel = connCancel
	go c.keepalive(connCtx, readCtx, conn)
	c.logger.Info("websocket stream connected", "url", c.url)
	return nil
}

// keepalive pings conn until it is replaced or closed. A failed ping or a
// peer close drops conn so the next send redials.
func (c *WebSocketClient) keepalive(ctx, readCtx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-readCtx.Done():
			c.dropConn(conn, "websocket stream closed by peer", nil)
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.dropConn(conn, "websocket ping failed, dropping connection", err)
				return
			}
		}
	}
}

func (c *WebSocketClient) dropConn(conn *websocket.Conn, msg string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	if err != nil {
		c.logger.Warn(msg, "error", err)
	} else {
		c.logger.Warn(msg)
	}
	c.dropConnLocked()
}

func (c *WebSocketClient) dropConnLocked() {
	if c.conn == nil {
		return
	}
	_ = c.conn.CloseNow()
	c.conn = nil
	if c.connCancel != nil {
		c.connCancel()
		c.connCancel = nil
	}
}
