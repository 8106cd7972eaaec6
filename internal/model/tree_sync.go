package model

import "sort"

const (
	SyncModeFull  = "full"
	SyncModeDelta = "delta"
)

// TreeSnapshot is one poll of tracker/tree plus the membership change since
// the previous poll.
type TreeSnapshot struct {
	ConsoleID     string         `json:"console_id"`
	Tracker       string         `json:"tracker"`
	TimestampUnix int64          `json:"timestamp_unix"`
	SyncMode      string         `json:"sync_mode"`
	Nodes         []StorageModel `json:"nodes"`
	Joined        []StorageModel `json:"joined"`
	LeftKeys      []string       `json:"left_keys"`
}

func (s TreeSnapshot) OnlineCount() int {
	n := 0
	for _, node := range s.Nodes {
		if node.Online() {
			n++
		}
	}
	return n
}

func BuildStorageMap(nodes []StorageModel) map[string]StorageModel {
	out := make(map[string]StorageModel, len(nodes))
	for _, node := range nodes {
		key := node.Key()
		if key == "" {
			continue
		}
		out[key] = node
	}
	return out
}

// DiffTree reports nodes present in cur but not prev, and keys present in prev
// but not cur. A nil prev is a full sync: every node has joined.
func DiffTree(prev map[string]StorageModel, cur []StorageModel) (mode string, joined []StorageModel, left []string) {
	joined = []StorageModel{}
	left = []string{}
	if prev == nil {
		return SyncModeFull, append(joined, cur...), left
	}

	curMap := BuildStorageMap(cur)
	for _, node := range cur {
		if _, ok := prev[node.Key()]; !ok {
			joined = append(joined, node)
		}
	}
	for key := range prev {
		if _, ok := curMap[key]; !ok {
			left = append(left, key)
		}
	}
	sort.Strings(left)
	return SyncModeDelta, joined, left
}
