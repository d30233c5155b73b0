package stategraph

// END is the terminal marker.
// Use it as an edge target or conditional route target to signal that
// the current graph's run is complete. END terminates only the graph
// that reaches it: a subgraph routing to END hands control back to its
// SubgraphNode, not to the parent graph.
const END = "__end__"

// NodeFunc is the signature for function-backed nodes.
// Nodes receive the execution context and current state, and return
// the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation.
//
// Example:
//
//	func increment(ctx stategraph.Context, s Counter) (Counter, error) {
//	    s.Value++
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc selects a route key based on state.
// It is used for conditional edges: the returned key is looked up in
// the route table supplied to AddConditionalEdges, and execution
// continues at the node mapped to that key.
//
// The router is re-evaluated on every pass through its source node, so
// a route that maps back to the source (or an earlier node) forms a
// loop. Returning a key absent from the route table causes a fatal
// RouterError at run time.
//
// Example:
//
//	func router(ctx stategraph.Context, s State) string {
//	    if s.Done {
//	        return "done"
//	    }
//	    return "continue"
//	}
type RouterFunc[S any] func(ctx Context, state S) string

// Node is the uniform capability behind every registered node.
// Function-backed nodes and subgraph-backed nodes both implement it;
// from the graph's perspective the two are indistinguishable.
type Node[S any] interface {
	// Name returns the node's registered name, used in traces and errors.
	Name() string

	// Execute transforms the state, or fails.
	Execute(ctx Context, state S) (S, error)
}

// FunctionNode wraps a plain NodeFunc as a Node.
type FunctionNode[S any] struct {
	name string
	fn   NodeFunc[S]
}

// NewFunctionNode creates a function-backed node.
func NewFunctionNode[S any](name string, fn NodeFunc[S]) *FunctionNode[S] {
	return &FunctionNode[S]{name: name, fn: fn}
}

// Name implements Node.
func (n *FunctionNode[S]) Name() string {
	return n.name
}

// Execute implements Node.
func (n *FunctionNode[S]) Execute(ctx Context, state S) (S, error) {
	return n.fn(ctx, state)
}
