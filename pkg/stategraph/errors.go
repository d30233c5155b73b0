package stategraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before compiling.
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge or route references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEmptyRoutes indicates a conditional edge was declared with no routes.
	ErrEmptyRoutes = errors.New("conditional edge has no routes")

	// ErrMixedEdgeTypes indicates a node declares more than one edge kind.
	ErrMixedEdgeTypes = errors.New("node declares multiple edge types")

	// ErrStateNotMergeable indicates parallel fan-out was declared but the
	// state type does not implement Mergeable.
	ErrStateNotMergeable = errors.New("state type does not implement Mergeable")

	// ErrParallelRequiresMerge indicates Compile() was called on a graph with
	// multi-target parallel edges; use CompileWithMerge() instead.
	ErrParallelRequiresMerge = errors.New("parallel edges require CompileWithMerge")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the execution loop exceeded the configured limit.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Invoke() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrUnknownRouteKey indicates a router returned a key absent from its route table.
	ErrUnknownRouteKey = errors.New("router returned unknown route key")

	// ErrRunIDRequired indicates snapshotting was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for snapshots")
)

// NodeError wraps a node body failure with node context.
// Execution aborts immediately when a node fails; the error identifies
// which node failed and why.
type NodeError struct {
	// NodeID is the name of the node that failed.
	NodeID string
	// Err is the underlying error from the node body.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RouterError reports a conditional router returning a key absent from
// its route table.
type RouterError struct {
	// FromNode is the node whose conditional edge was evaluated.
	FromNode string
	// Key is the route key the router returned.
	Key string
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Key, ErrUnknownRouteKey)
}

// Unwrap returns ErrUnknownRouteKey for errors.Is support.
func (e *RouterError) Unwrap() error {
	return ErrUnknownRouteKey
}

// PanicError captures a panic recovered from a node body.
type PanicError struct {
	// NodeID is the name of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError reports that the context was cancelled between nodes.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// MaxIterationsError reports that an opt-in iteration cap was exceeded.
// The engine imposes no cap by default; see WithMaxIterations.
type MaxIterationsError struct {
	// Max is the configured iteration limit.
	Max int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}

// SnapshotError wraps a fatal snapshot persistence failure.
type SnapshotError struct {
	// NodeID is the node whose post-execution snapshot failed.
	NodeID string
	// Op is the operation that failed ("serialize", "save").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SnapshotError) Unwrap() error {
	return e.Err
}
