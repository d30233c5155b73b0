package snapshot

import (
	"encoding/json"
	"time"
)

// Version is the current snapshot format version.
// Increment when making breaking changes to snapshot structure.
const Version = 1

// Snapshot is the persisted record of execution state after a node.
// The state payload is opaque JSON; the engine never inspects it.
type Snapshot struct {
	// Metadata
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// Execution state
	State json.RawMessage `json:"state"`
}

// Marshal serializes a snapshot to JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// New creates a new snapshot with the given parameters.
// State must already be JSON-serialized.
func New(runID, nodeID string, sequence int, state []byte) *Snapshot {
	return &Snapshot{
		Version:   Version,
		RunID:     runID,
		NodeID:    nodeID,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}
