package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type StreamMode string

const (
	StreamModeLog       StreamMode = "log"
	StreamModeGRPC      StreamMode = "grpc"
	StreamModeWebSocket StreamMode = "websocket"
	HardcodedVersion    string     = "V0.1"
)

type Config struct {
	ConsoleID             string        `env:"SUSU_CONSOLE_ID"`
	TrackerURL            string        `env:"SUSU_TRACKER_URL" envDefault:"http://127.0.0.1:8080/api/"`
	TrackerToken          string        `env:"SUSU_TRACKER_TOKEN"`
	RequestTimeout        time.Duration `env:"SUSU_REQUEST_TIMEOUT" envDefault:"10s"`
	UserAgent             string        `env:"SUSU_USER_AGENT" envDefault:"susu-dfs-console"`
	ProbeListenAddr       string        `env:"SUSU_CONSOLE_PROBE_ADDR" envDefault:"0.0.0.0:7444"`
	TreePollInterval      time.Duration `env:"SUSU_TREE_POLL_INTERVAL" envDefault:"5s"`
	HealthInterval        time.Duration `env:"SUSU_HEALTH_INTERVAL" envDefault:"10s"`
	ShutdownTimeout       time.Duration `env:"SUSU_SHUTDOWN_TIMEOUT" envDefault:"20s"`
	StreamMode            StreamMode    `env:"SUSU_STREAM_MODE" envDefault:"log"`
	BackendGRPCAddr       string        `env:"SUSU_BACKEND_GRPC_ADDR" envDefault:"127.0.0.1:3001"`
	BackendWSURL          string        `env:"SUSU_BACKEND_WS_URL" envDefault:"ws://127.0.0.1:3001/ws/tracker"`
	BackendToken          string        `env:"SUSU_BACKEND_TOKEN"`
	GRPCTreeStreamMethod  string        `env:"SUSU_GRPC_TREE_STREAM_METHOD" envDefault:"/susu.console.v1.TrackerService/StreamTree"`
	WebSocketWriteTimeout time.Duration `env:"SUSU_WS_WRITE_TIMEOUT" envDefault:"5s"`
	WebSocketPingInterval time.Duration `env:"SUSU_WS_PING_INTERVAL" envDefault:"10s"`
	CollectorErrorBackoff time.Duration `env:"SUSU_COLLECTOR_ERROR_BACKOFF" envDefault:"1500ms"`
	TLSEnabled            bool          `env:"SUSU_TLS_ENABLED" envDefault:"false"`
	TLSSkipVerify         bool          `env:"SUSU_TLS_SKIP_VERIFY" envDefault:"false"`
	TLSCAPath             string        `env:"SUSU_TLS_CA_PATH"`
	TLSCertPath           string        `env:"SUSU_TLS_CERT_PATH"`
	TLSKeyPath            string        `env:"SUSU_TLS_KEY_PATH"`
	LogJSON               bool          `env:"SUSU_LOG_JSON" envDefault:"true"`
	LogLevel              string        `env:"SUSU_LOG_LEVEL" envDefault:"info"`

	Hostname       string
	ConsoleVersion string
}

func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse reads the environment without validating, for callers that apply
// overrides first.
func Parse() (Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Hostname = hostname
	if strings.TrimSpace(cfg.ConsoleID) == "" {
		cfg.ConsoleID = hostname
	}
	cfg.ConsoleVersion = HardcodedVersion
	cfg.StreamMode = StreamMode(strings.ToLower(strings.TrimSpace(string(cfg.StreamMode))))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ConsoleID) == "" {
		return errors.New("SUSU_CONSOLE_ID is required")
	}
	if strings.TrimSpace(c.ConsoleVersion) == "" {
		return errors.New("console version must not be empty")
	}
	if strings.TrimSpace(c.TrackerURL) == "" {
		return errors.New("SUSU_TRACKER_URL is required")
	}
	u, err := url.Parse(c.TrackerURL)
	if err != nil {
		return fmt.Errorf("parse SUSU_TRACKER_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("SUSU_TRACKER_URL scheme %q is not http(s)", u.Scheme)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("SUSU_REQUEST_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.ProbeListenAddr) == "" {
		return errors.New("SUSU_CONSOLE_PROBE_ADDR is required")
	}
	if c.TreePollInterval <= 0 {
		return errors.New("SUSU_TREE_POLL_INTERVAL must be > 0")
	}
	if c.HealthInterval <= 0 {
		return errors.New("SUSU_HEALTH_INTERVAL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SUSU_SHUTDOWN_TIMEOUT must be > 0")
	}
	switch c.StreamMode {
	case StreamModeLog, StreamModeGRPC, StreamModeWebSocket:
	default:
		return fmt.Errorf("unsupported stream mode %q", c.StreamMode)
	}
	if c.StreamMode == StreamModeGRPC {
		if c.BackendGRPCAddr == "" {
			return errors.New("SUSU_BACKEND_GRPC_ADDR is required for grpc mode")
		}
		if strings.TrimSpace(c.GRPCTreeStreamMethod) == "" {
			return errors.New("SUSU_GRPC_TREE_STREAM_METHOD is required for grpc mode")
		}
	}
	if c.StreamMode == StreamModeWebSocket && c.BackendWSURL == "" {
		return errors.New("SUSU_BACKEND_WS_URL is required for websocket mode")
	}
	return nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load mTLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}
