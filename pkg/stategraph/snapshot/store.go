// Package snapshot provides persistent state snapshot storage for
// post-run inspection and debugging of graph executions.
package snapshot

import (
	"errors"
	"time"
)

// Store persists snapshots of run state.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot for a run at a specific node.
	// Overwrites if a snapshot for (runID, nodeID) already exists.
	Save(runID, nodeID string, data []byte) error

	// Load retrieves a snapshot.
	// Returns ErrNotFound if the snapshot doesn't exist.
	Load(runID, nodeID string) ([]byte, error)

	// List returns all snapshots for a run, ordered by sequence.
	// Returns empty slice (not error) if the run has no snapshots.
	List(runID string) ([]Info, error)

	// Delete removes a specific snapshot.
	// Returns nil if the snapshot doesn't exist.
	Delete(runID, nodeID string) error

	// DeleteRun removes all snapshots for a run.
	// Returns nil if the run has no snapshots.
	DeleteRun(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	RunID     string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
