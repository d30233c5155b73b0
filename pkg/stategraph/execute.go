package stategraph

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/stategraph/stategraph/pkg/stategraph/observability"
	"github.com/stategraph/stategraph/pkg/stategraph/snapshot"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ExecutionResult is the outcome of a successful invocation: the final
// state after the terminal marker was reached, and the names of the
// nodes that executed, in order.
type ExecutionResult[S any] struct {
	// FinalState is the state value after the last node executed.
	FinalState S

	// NodesExecuted lists every executed node name in execution order.
	// For fan-outs, branch nodes appear grouped by branch in declaration
	// order, so the trace is deterministic regardless of interleaving.
	NodesExecuted []string
}

// Invoke executes the graph with the given initial state and returns
// the final state plus the ordered execution trace.
//
// Execution is fail-fast: the first node, routing, or merge failure
// aborts the run immediately and no partial result is returned.
// Recovery and retry, if any, are the caller's responsibility.
//
// A compiled graph may be invoked repeatedly and concurrently; each
// call owns its state and trace, so nothing leaks between runs.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	result, err := compiled.Invoke(ctx, initialState)
//	if err != nil {
//	    var nodeErr *stategraph.NodeError
//	    if errors.As(err, &nodeErr) {
//	        log.Printf("node %s failed", nodeErr.NodeID)
//	    }
//	}
func (cg *CompiledGraph[S]) Invoke(ctx Context, initial S, opts ...RunOption) (result *ExecutionResult[S], runErr error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}
	cfg.runID = runID

	if cfg.snapshotStore != nil && runID == "" {
		return nil, ErrRunIDRequired
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var execCtx context.Context = ctx
	var runSpan oteltrace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "stategraph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	trace := make([]string, 0, 16)
	iterations := 0
	finalState, runErr := cg.run(execCtx, ctx, initial, cg.entryPoint, "", &trace, &iterations, &cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), lastNodeOf(runErr))
		return nil, runErr
	}

	observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), len(trace))
	return &ExecutionResult[S]{FinalState: finalState, NodesExecuted: trace}, nil
}

// lastNodeOf extracts the failing node name from a typed error, for
// run-level logging.
func lastNodeOf(err error) string {
	switch e := err.(type) {
	case *NodeError:
		return e.NodeID
	case *RouterError:
		return e.FromNode
	case *PanicError:
		return e.NodeID
	case *CancellationError:
		return e.NodeID
	case *MaxIterationsError:
		return e.LastNodeID
	case *ForkJoinError:
		return e.ForkNodeID
	}
	return ""
}

// run drives the node-to-node control loop from start until END or
// stopAt is reached. stopAt == "" means run to END; branches pass
// their fan-out's join node so they halt at the reconsolidation point
// without executing it.
//
// trace and iterations are owned by the caller; branches run with
// their own so the merged trace stays deterministic.
func (cg *CompiledGraph[S]) run(
	tracingCtx context.Context,
	fgCtx Context,
	state S,
	start, stopAt string,
	trace *[]string,
	iterations *int,
	cfg *runConfig,
) (S, error) {
	current := start

	for current != END && (stopAt == "" || current != stopAt) {
		*iterations++
		if cfg.maxIterations > 0 && *iterations > cfg.maxIterations {
			return state, &MaxIterationsError{Max: cfg.maxIterations, LastNodeID: current}
		}

		// Cooperative cancellation between nodes. The caller owns the
		// deadline; nodes that block internally must watch ctx themselves.
		select {
		case <-fgCtx.Done():
			return state, &CancellationError{NodeID: current, Cause: fgCtx.Err()}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan oteltrace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		newState, nodeErr := cg.executeNode(fgCtx, current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))

		state = newState
		*trace = append(*trace, current)

		if cfg.snapshotStore != nil {
			if err := cg.saveSnapshot(fgCtx, cfg, current, state); err != nil {
				return state, err
			}
		}

		next, err := cg.step(tracingCtx, fgCtx, &state, current, trace, iterations, cfg)
		if err != nil {
			return state, err
		}
		current = next
	}

	return state, nil
}

// step resolves the transition out of current after it has executed.
// Edge priority is conditional > parallel > unconditional; a node with
// no declared edge ends the current graph (implicit END).
//
// For multi-target fan-outs, step runs the branches to their join,
// merges, and returns the join node (or END when the branches never
// reconverge), replacing state with the merged value.
func (cg *CompiledGraph[S]) step(
	tracingCtx context.Context,
	fgCtx Context,
	state *S,
	current string,
	trace *[]string,
	iterations *int,
	cfg *runConfig,
) (string, error) {
	if ce, ok := cg.conditionalEdges[current]; ok {
		routerCtx := fgCtx
		if ec, ok := fgCtx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		// The router sees the post-step state, re-evaluated every pass.
		key := ce.router(routerCtx, *state)
		target, ok := ce.routes[key]
		if !ok {
			return "", &RouterError{FromNode: current, Key: key}
		}
		return target, nil
	}

	if fork, ok := cg.forks[current]; ok {
		// Degenerate single-target fan-out behaves exactly like an
		// unconditional edge.
		if len(fork.Branches) == 1 {
			return fork.Branches[0], nil
		}

		merged, err := cg.executeForkJoin(tracingCtx, fgCtx, fork, *state, trace, cfg)
		if err != nil {
			return "", err
		}
		*state = merged

		if fork.Join == "" {
			return END, nil
		}
		return fork.Join, nil
	}

	if to, ok := cg.edges[current]; ok {
		return to, nil
	}

	// No outgoing edge declared: the graph ends here.
	return END, nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	node, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable after a successful compile.
		return state, &NodeError{NodeID: nodeID, Err: fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{NodeID: nodeID, Value: r, Stack: string(debug.Stack())}
		}
	}()

	result, err = node.Execute(nodeCtx, state)
	if err != nil {
		return result, &NodeError{NodeID: nodeID, Err: err}
	}
	return result, nil
}

// saveSnapshot persists the post-node state as an opaque JSON payload.
// Failures are logged and skipped unless WithSnapshotFailureFatal.
func (cg *CompiledGraph[S]) saveSnapshot(ctx Context, cfg *runConfig, nodeID string, state S) error {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		if cfg.snapshotFatal {
			return &SnapshotError{NodeID: nodeID, Op: "serialize", Err: err}
		}
		observability.LogSnapshotError(cfg.logger, nodeID, "serialize", err)
		return nil
	}

	cfg.sequence++
	data, err := snapshot.New(cfg.runID, nodeID, cfg.sequence, stateBytes).Marshal()
	if err != nil {
		if cfg.snapshotFatal {
			return &SnapshotError{NodeID: nodeID, Op: "serialize", Err: err}
		}
		observability.LogSnapshotError(cfg.logger, nodeID, "serialize", err)
		return nil
	}

	if err := cfg.snapshotStore.Save(cfg.runID, nodeID, data); err != nil {
		if cfg.snapshotFatal {
			return &SnapshotError{NodeID: nodeID, Op: "save", Err: err}
		}
		observability.LogSnapshotError(cfg.logger, nodeID, "save", err)
		return nil
	}

	observability.LogSnapshot(cfg.logger, nodeID, len(data))
	cfg.metrics.RecordSnapshot(ctx, nodeID, int64(len(data)))
	return nil
}
