package model

import (
	"net"
	"strconv"
	"time"
)

type StorageStatus int

const (
	StorageStatusUnknown    StorageStatus = 0
	StorageStatusRegistered StorageStatus = 1
	StorageStatusUp         StorageStatus = 2
	StorageStatusDown       StorageStatus = 3
)

func (s StorageStatus) String() string {
	switch s {
	case StorageStatusRegistered:
		return "registered"
	case StorageStatusUp:
		return "up"
	case StorageStatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// StorageModel is one node of the tracker tree as reported by tracker/tree.
type StorageModel struct {
	ClientID            int64         `json:"clientId"`
	Name                string        `json:"name"`
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	HTTPPort            int           `json:"httpPort"`
	Status              StorageStatus `json:"status"`
	StoredSize          int64         `json:"storedSize"`
	FileCount           int64         `json:"fileCount"`
	LatestHeartbeatTime int64         `json:"latestHeartbeatTime"`
}

func (s StorageModel) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Key identifies the node across polls. Nodes the tracker has not assigned an
// id to yet are keyed by address.
func (s StorageModel) Key() string {
	if s.ClientID != 0 {
		return strconv.FormatInt(s.ClientID, 10)
	}
	return s.Address()
}

func (s StorageModel) Online() bool {
	return s.Status == StorageStatusRegistered || s.Status == StorageStatusUp
}

func (s StorageModel) HeartbeatAt() time.Time {
	if s.LatestHeartbeatTime <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LatestHeartbeatTime).UTC()
}
