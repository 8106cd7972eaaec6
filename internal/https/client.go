package https

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	headerRequestID = "X-Request-Id"
	defaultTimeout  = 10 * time.Second
)

// Requester is the call contract every tracker API function is written against.
type Requester interface {
	Request(ctx context.Context, path string, method Method, payload any, ct ContentType, out any) error
}

// Request issues one call through r and decodes the response into a T. Errors
// from r are returned as they are.
func Request[T any](ctx context.Context, r Requester, path string, method Method, payload any, ct ContentType) (T, error) {
	var out T
	if err := r.Request(ctx, path, method, payload, ct, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
	TLSConfig *tls.Config
	// Transport replaces the default transport; it is still wrapped for tracing.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

type Client struct {
	logger    *slog.Logger
	baseURL   *url.URL
	http      *http.Client
	token     string
	secure    bool
	userAgent string
}

func newHTTPClient(opts Options) *http.Client {
	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.TLSConfig != nil {
			t.TLSClientConfig = opts.TLSConfig
		}
		base = t
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(base, otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		})),
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoTrackerURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse tracker url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("tracker url %q: scheme must be http or https", raw)
	}
	return u, nil
}

// NewClient builds a single client profile. Most callers want NewFactory.
func NewClient(opts Options, secure bool) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	return newClient(opts, base, newHTTPClient(opts), secure), nil
}

func newClient(opts Options, base *url.URL, hc *http.Client, secure bool) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "susu-dfs-console"
	}
	return &Client{
		logger:    logger,
		baseURL:   base,
		http:      hc,
		token:     opts.Token,
		secure:    secure,
		userAgent: ua,
	}
}

func (c *Client) Secure() bool {
	return c.secure
}

func (c *Client) Request(ctx context.Context, path string, method Method, payload any, ct ContentType, out any) error {
	if c.secure && c.token == "" {
		return fmt.Errorf("%s %s: %w", method, path, ErrNoToken)
	}
	query, body, err := encodePayload(method, payload, ct)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	target := c.baseURL.JoinPath(path)
	target.RawQuery = query

	req, err := http.NewRequestWithContext(ctx, string(method), target.String(), body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", string(ct))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, requestID)
	if c.secure {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("tracker request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	c.logger.Debug("tracker request", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &DecodeError{Method: method, Path: path, Err: err}
	}
	return nil
}
