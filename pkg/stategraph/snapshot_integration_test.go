package stategraph_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stategraph/stategraph/pkg/stategraph"
	"github.com/stategraph/stategraph/pkg/stategraph/snapshot"
)

// SnapState for snapshot integration tests.
type SnapState struct {
	Value    int      `json:"value"`
	Messages []string `json:"messages"`
}

func TestSnapshots_BasicExecution(t *testing.T) {
	store := snapshot.NewMemoryStore()

	increment := func(ctx stategraph.Context, s SnapState) (SnapState, error) {
		s.Value++
		s.Messages = append(s.Messages, "incremented")
		return s, nil
	}

	graph := stategraph.NewGraph[SnapState]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddEdge("inc1", "inc2").
		AddEdge("inc2", stategraph.END).
		SetEntry("inc1")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	result, err := compiled.Invoke(ctx, SnapState{Value: 0},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("test-run-1"))

	require.NoError(t, err)
	assert.Equal(t, 2, result.FinalState.Value)
	assert.Equal(t, []string{"incremented", "incremented"}, result.FinalState.Messages)

	// One snapshot per executed node
	infos, err := store.List("test-run-1")
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestSnapshots_RunIDFromContext(t *testing.T) {
	store := snapshot.NewMemoryStore()

	graph := stategraph.NewGraph[SnapState]().
		AddNode("noop", func(ctx stategraph.Context, s SnapState) (SnapState, error) {
			return s, nil
		}).
		AddEdge("noop", stategraph.END).
		SetEntry("noop")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background(),
		stategraph.WithContextRunID("ctx-run"))
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store)) // No WithRunID: falls back to ctx

	require.NoError(t, err)
	infos, err := store.List("ctx-run")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

// emptyRunIDContext strips the run ID to exercise the requirement check.
type emptyRunIDContext struct {
	stategraph.Context
}

func (emptyRunIDContext) RunID() string { return "" }

func TestSnapshots_RequireRunID(t *testing.T) {
	store := snapshot.NewMemoryStore()

	graph := stategraph.NewGraph[SnapState]().
		AddNode("noop", func(ctx stategraph.Context, s SnapState) (SnapState, error) {
			return s, nil
		}).
		AddEdge("noop", stategraph.END).
		SetEntry("noop")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := emptyRunIDContext{stategraph.NewContext(context.Background())}
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store)) // No run ID anywhere

	assert.ErrorIs(t, err, stategraph.ErrRunIDRequired)
}

func TestSnapshots_SnapshotData(t *testing.T) {
	store := snapshot.NewMemoryStore()

	graph := stategraph.NewGraph[SnapState]().
		AddNode("process", func(ctx stategraph.Context, s SnapState) (SnapState, error) {
			s.Value = 42
			s.Messages = []string{"processed"}
			return s, nil
		}).
		AddEdge("process", stategraph.END).
		SetEntry("process")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("data-test"))
	require.NoError(t, err)

	data, err := store.Load("data-test", "process")
	require.NoError(t, err)

	snap, err := snapshot.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, "data-test", snap.RunID)
	assert.Equal(t, "process", snap.NodeID)
	assert.Equal(t, 1, snap.Sequence)

	var state SnapState
	require.NoError(t, json.Unmarshal(snap.State, &state))
	assert.Equal(t, 42, state.Value)
	assert.Equal(t, []string{"processed"}, state.Messages)
}

func TestSnapshots_SequencePerNode(t *testing.T) {
	store := snapshot.NewMemoryStore()

	increment := func(ctx stategraph.Context, s SnapState) (SnapState, error) {
		s.Value++
		return s, nil
	}

	graph := stategraph.NewGraph[SnapState]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddNode("c", increment).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", stategraph.END).
		SetEntry("a")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("seq-test"))
	require.NoError(t, err)

	infos, err := store.List("seq-test")
	require.NoError(t, err)
	require.Len(t, infos, 3)

	// List is ordered by sequence, matching execution order
	assert.Equal(t, "a", infos[0].NodeID)
	assert.Equal(t, "b", infos[1].NodeID)
	assert.Equal(t, "c", infos[2].NodeID)
}

func TestSnapshots_StopAtFailedNode(t *testing.T) {
	store := snapshot.NewMemoryStore()

	increment := func(ctx stategraph.Context, s SnapState) (SnapState, error) {
		s.Value++
		return s, nil
	}
	failing := func(ctx stategraph.Context, s SnapState) (SnapState, error) {
		return s, errors.New("crash")
	}

	graph := stategraph.NewGraph[SnapState]().
		AddNode("a", increment).
		AddNode("b", failing).
		AddEdge("a", "b").
		AddEdge("b", stategraph.END).
		SetEntry("a")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("crash-test"))
	require.Error(t, err)

	// Only the completed node was snapshotted
	infos, err := store.List("crash-test")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].NodeID)
}

// failingStore fails every Save to exercise the failure policy.
type failingStore struct {
	snapshot.Store
}

func (failingStore) Save(runID, nodeID string, data []byte) error {
	return errors.New("store unavailable")
}

func TestSnapshots_SaveFailure_SkippedByDefault(t *testing.T) {
	store := failingStore{snapshot.NewMemoryStore()}

	graph := stategraph.NewGraph[SnapState]().
		AddNode("noop", func(ctx stategraph.Context, s SnapState) (SnapState, error) {
			s.Value = 7
			return s, nil
		}).
		AddEdge("noop", stategraph.END).
		SetEntry("noop")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	result, err := compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("lossy-run"))

	// Snapshot failures are logged and skipped; the run succeeds
	require.NoError(t, err)
	assert.Equal(t, 7, result.FinalState.Value)
}

func TestSnapshots_SaveFailure_Fatal(t *testing.T) {
	store := failingStore{snapshot.NewMemoryStore()}

	graph := stategraph.NewGraph[SnapState]().
		AddNode("noop", func(ctx stategraph.Context, s SnapState) (SnapState, error) {
			return s, nil
		}).
		AddEdge("noop", stategraph.END).
		SetEntry("noop")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("strict-run"),
		stategraph.WithSnapshotFailureFatal(true))

	require.Error(t, err)
	var snapErr *stategraph.SnapshotError
	require.ErrorAs(t, err, &snapErr)
	assert.Equal(t, "save", snapErr.Op)
	assert.Equal(t, "noop", snapErr.NodeID)
}

func TestSnapshots_SQLiteStore(t *testing.T) {
	store, err := snapshot.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	increment := func(ctx stategraph.Context, s SnapState) (SnapState, error) {
		s.Value++
		return s, nil
	}

	graph := stategraph.NewGraph[SnapState]().
		AddNode("inc", increment).
		AddEdge("inc", stategraph.END).
		SetEntry("inc")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background())
	_, err = compiled.Invoke(ctx, SnapState{},
		stategraph.WithSnapshots(store),
		stategraph.WithRunID("sqlite-run"))
	require.NoError(t, err)

	data, err := store.Load("sqlite-run", "inc")
	require.NoError(t, err)

	snap, err := snapshot.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "inc", snap.NodeID)
}
