/*
Package stategraph provides a stateful workflow execution engine built
around directed graphs.

# Overview

stategraph is a Go library for building and executing directed graphs
where nodes transform a shared state value and edges define control
flow. Graphs are constructed with a fluent builder, validated and
frozen by compilation, and executed repeatedly against independent
initial states.

The library provides:
  - Type-safe generics for state management
  - Compile-time validation of graph structure
  - Conditional routing, loops, and parallel fan-out with state merge
  - Subgraph nesting with bidirectional state mapping
  - OpenTelemetry integration for observability

# Basic Usage

Create a graph with nodes and edges, then compile and invoke:

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx stategraph.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	func main() {
	    graph := stategraph.NewGraph[State]().
	        AddNode("process", process).
	        AddEdge("process", stategraph.END).
	        SetEntry("process")

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := stategraph.NewContext(context.Background())
	    result, err := compiled.Invoke(ctx, State{Input: "hello"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.FinalState.Output) // "Processed: hello"
	}

# Conditional Branching

Conditional edges pair a router function with a route map. The router
inspects the state and returns a route key; the route map translates
the key into the next node:

	graph.AddConditionalEdges("review", func(ctx stategraph.Context, s State) string {
	    if s.Approved {
	        return "ship"
	    }
	    return "redo"
	}, map[string]string{
	    "ship": "publish",
	    "redo": "revise",
	})

Every route target is validated at compile time. A router returning a
key absent from the route map fails the run with a RouterError.

# Loops

Create loops with conditional edges that route back to earlier nodes:

	graph := stategraph.NewGraph[RetryState]().
	    AddNode("attempt", tryOperation).
	    AddNode("cleanup", cleanupOnSuccess).
	    AddConditionalEdges("attempt", func(ctx stategraph.Context, s RetryState) string {
	        if s.Success || s.Attempts >= 3 {
	            return "done"
	        }
	        return "retry"
	    }, map[string]string{
	        "done":  "cleanup",
	        "retry": "attempt", // Loop back
	    }).
	    AddEdge("cleanup", stategraph.END).
	    SetEntry("attempt")

Runs are unbounded by default. Use WithMaxIterations to cap the total
number of node executions for graphs with cycles.

# Parallel Fan-Out

Parallel edges run several downstream branches concurrently against
independent copies of the state, then merge the branch results. The
state type must implement Mergeable, and the graph must be compiled
with CompileWithMerge:

	func (s State) Merge(other State) State {
	    s.Results = append(s.Results, other.Results...)
	    return s
	}

	graph.AddParallelEdges("fetch", "parse", "validate", "enrich")
	compiled, err := graph.CompileWithMerge()

Branch results merge in declaration order, the first branch acting as
the primary. Tune concurrency with SetForkJoinConfig.

# Subgraphs

A compiled graph over one state type can be embedded as a node in a
parent graph over another, with mapping functions in each direction:

	child, _ := stategraph.NewGraph[ChildState]().
	    AddNode("work", doWork).
	    SetEntry("work").
	    Compile()

	parent := stategraph.NewGraph[ParentState]()
	stategraph.AddSubgraph(parent, "child", child,
	    func(p ParentState) ChildState { return ChildState{Input: p.Query} },
	    func(p ParentState, c ChildState) ParentState {
	        p.Answer = c.Output
	        return p
	    })

If the child graph fails, the parent state passes through untouched
and the run fails with the child's error.

# Observability

Enable logging, metrics, and tracing:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	result, err := compiled.Invoke(ctx, state,
	    stategraph.WithObservabilityLogger(logger),
	    stategraph.WithMetrics(true),
	    stategraph.WithTracing(true),
	    stategraph.WithRunID("run-123"))

Logs include structured fields: run_id, node_id, duration_ms.
OpenTelemetry metrics: stategraph.node.executions, stategraph.node.latency_ms, etc.
OpenTelemetry tracing: stategraph.run > stategraph.node.{id} spans.

# Error Handling

Errors include context about which node failed:

	result, err := compiled.Invoke(ctx, state)
	var nodeErr *stategraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("Node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

	var panicErr *stategraph.PanicError
	if errors.As(err, &panicErr) {
	    log.Printf("Node %s panicked: %v\n%s", panicErr.NodeID, panicErr.Value, panicErr.Stack)
	}

Panics in nodes are recovered and converted to PanicError with stack trace.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use
  - snapshot.Store implementations are safe for concurrent use

# Subpackages

  - snapshot: State snapshot storage (memory, SQLite)
  - observability: Logging, metrics, and tracing helpers
  - config: YAML/JSON configuration loading
  - registry: Named registration of compiled graphs
*/
package stategraph
