package version

import (
	"time"

	"susu-dfs-console/internal/config"
)

type Info struct {
	ConsoleID       string `json:"console_id"`
	ConsoleVersion  string `json:"console_version"`
	Tracker         string `json:"tracker"`
	StreamMode      string `json:"stream_mode"`
	ProbeListenAddr string `json:"probe_listen_addr"`
	CheckedAtUnix   int64  `json:"checked_at_unix"`
}

func Get(cfg config.Config) Info {
	return Info{
		ConsoleID:       cfg.ConsoleID,
		ConsoleVersion:  cfg.ConsoleVersion,
		Tracker:         cfg.TrackerURL,
		StreamMode:      string(cfg.StreamMode),
		ProbeListenAddr: cfg.ProbeListenAddr,
		CheckedAtUnix:   time.Now().UTC().Unix(),
	}
}
