package model

type FrameType string

const (
	FrameTypeTrackerTree FrameType = "tracker_tree"
)

// Envelope is transport-agnostic framing for stream payloads.
type Envelope struct {
	Type          FrameType `json:"type"`
	ConsoleID     string    `json:"console_id"`
	TimestampUnix int64     `json:"timestamp_unix"`
	Payload       any       `json:"payload"`
}
