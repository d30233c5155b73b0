package stategraph

import (
	"log/slog"
	"strings"
	"sync"
)

// conditionalEdge pairs a router with its route table.
// The router returns a key; the key selects the target node.
type conditionalEdge[S any] struct {
	router RouterFunc[S]
	routes map[string]string
}

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() or CompileWithMerge()
// to create an immutable CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := stategraph.NewGraph[MyState]().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", stategraph.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]Node[S]
	edges            map[string]string
	conditionalEdges map[string]conditionalEdge[S]
	parallelEdges    map[string][]string
	entryPoint       string
	forkJoin         ForkJoinConfig
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]Node[S]),
		edges:            make(map[string]string),
		conditionalEdges: make(map[string]conditionalEdge[S]),
		parallelEdges:    make(map[string][]string),
		forkJoin:         DefaultForkJoinConfig(),
	}
}

// AddNode adds a named function-backed node to the graph.
// Returns the graph for method chaining.
//
// Re-adding an existing name overwrites the prior registration (last
// write wins) and logs a warning. This is a documented permissive
// policy, not an error.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}
	return g.AddNodeEntry(NewFunctionNode(id, fn))
}

// AddNodeEntry registers any Node implementation under its own name.
// Function nodes and subgraph nodes register through the same path;
// from the graph's perspective they are indistinguishable.
// Returns the graph for method chaining.
func (g *Graph[S]) AddNodeEntry(node Node[S]) *Graph[S] {
	if node == nil {
		panic("stategraph: node cannot be nil")
	}
	id := node.Name()
	validateNodeID(id)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		slog.Warn("node already exists, overwriting", "node_id", id)
	}
	g.nodes[id] = node
	return g
}

// validateNodeID panics on names that can never be valid.
// These are authoring bugs, not runtime conditions.
func validateNodeID(id string) {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("stategraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or stategraph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at compile time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = to
	return g
}

// AddConditionalEdges adds a conditional edge where a RouterFunc
// selects the next node at runtime based on state.
// Returns the graph for method chaining.
//
// The router returns a route KEY, which is looked up in routes to find
// the target node ID (or stategraph.END). A key absent from routes
// causes a fatal RouterError at run time. Route targets are validated
// at compile time.
//
// Because the router is re-evaluated on every pass through the source
// node, routing back to the source implements loops. The engine
// imposes no iteration cap; see WithMaxIterations for an opt-in guard.
func (g *Graph[S]) AddConditionalEdges(from string, router RouterFunc[S], routes map[string]string) *Graph[S] {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}

	copied := make(map[string]string, len(routes))
	for k, v := range routes {
		copied[k] = v
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = conditionalEdge[S]{router: router, routes: copied}
	return g
}

// AddParallelEdges adds a fan-out edge: after from completes, every
// target runs concurrently against an independent copy of the state.
// Branch results are folded back into one state via Mergeable.Merge in
// declaration order, and execution continues at the branches' join
// point. Returns the graph for method chaining.
//
// Graphs with multi-target parallel edges must be compiled with
// CompileWithMerge(); a parallel edge with a single target behaves
// identically to an unconditional edge and compiles with plain
// Compile().
func (g *Graph[S]) AddParallelEdges(from string, targets []string) *Graph[S] {
	copied := make([]string, len(targets))
	copy(copied, targets)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.parallelEdges[from] = copied
	return g
}

// SetEntry designates the entry point node.
// This must be called before compiling.
// Returns the graph for method chaining.
//
// Entry point validation happens at compile time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}

// SetForkJoinConfig configures parallel execution behavior for this
// graph (concurrency limit, fail-fast, merge timeout).
// Returns the graph for method chaining.
func (g *Graph[S]) SetForkJoinConfig(cfg ForkJoinConfig) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.forkJoin = cfg
	return g
}

// AddSubgraph embeds a fully compiled graph of state type C as a
// single node of parent graph g. The two mapping functions bridge the
// state types at the boundary: toChild derives the child's initial
// state from the parent's, and fromChild folds the child's final state
// back into the parent's. fromChild receives the parent's original
// state unchanged, so the mapping decides which parent fields survive.
//
// This is a free function because Go methods cannot introduce new type
// parameters. C may equal S (identity mapping is allowed).
//
// Example:
//
//	stategraph.AddSubgraph(parent, "research", compiledChild,
//	    func(p ProjectState) ResearchState { return ResearchState{Query: p.Task} },
//	    func(p ProjectState, c ResearchState) ProjectState {
//	        p.Findings = c.Findings
//	        return p
//	    })
func AddSubgraph[S, C any](
	g *Graph[S],
	name string,
	child *CompiledGraph[C],
	toChild func(S) C,
	fromChild func(S, C) S,
) *Graph[S] {
	return g.AddNodeEntry(NewSubgraphNode(name, child, toChild, fromChild))
}
