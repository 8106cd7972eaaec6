package stream

import (
	"context"
	"encoding/json"

	"susu-dfs-console/internal/model"
)

type Sink interface {
	SendTreeSnapshot(ctx context.Context, snap model.TreeSnapshot) error
	Close(ctx context.Context) error
}

type TreeFrame struct {
	ConsoleID     string               `json:"console_id"`
	Tracker       string               `json:"tracker"`
	TimestampUnix int64                `json:"timestamp_unix"`
	SyncMode      string               `json:"sync_mode"`
	Nodes         []model.StorageModel `json:"nodes"`
	Joined        []model.StorageModel `json:"joined"`
	LeftKeys      []string             `json:"left_keys"`
}

func EncodeEnvelope(e model.Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func NewTreeFrame(snap model.TreeSnapshot) TreeFrame {
	return TreeFrame{
		ConsoleID:     snap.ConsoleID,
		Tracker:       snap.Tracker,
		TimestampUnix: snap.TimestampUnix,
		SyncMode:      snap.SyncMode,
		Nodes:         append([]model.StorageModel(nil), snap.Nodes...),
		Joined:        append([]model.StorageModel(nil), snap.Joined...),
		LeftKeys:      append([]string(nil), snap.LeftKeys...),
	}
}

func NewTreeEnvelope(snap model.TreeSnapshot) model.Envelope {
	return model.Envelope{
		Type:          model.FrameTypeTrackerTree,
		ConsoleID:     snap.ConsoleID,
		TimestampUnix: snap.TimestampUnix,
		Payload:       NewTreeFrame(snap),
	}
}
