package stategraph

import "fmt"

// SubgraphNode embeds a compiled graph over a child state type C as a
// single node inside a parent graph over state type P. On execution
// it projects the parent state into a child state, runs the child
// graph to completion, and folds the child's final state back into
// the parent state.
//
// The child runs with its own trace and iteration budget; only the
// subgraph node's own name appears in the parent's execution trace.
type SubgraphNode[P, C any] struct {
	name      string
	child     *CompiledGraph[C]
	toChild   func(P) C
	fromChild func(P, C) P
}

// NewSubgraphNode wraps a compiled child graph as a node for a parent
// graph. toChild projects the parent state into the child's input
// state; fromChild folds the child's final state back into the parent
// state it was given.
//
// Most callers should use AddSubgraph, which constructs the node and
// registers it in one step.
func NewSubgraphNode[P, C any](
	name string,
	child *CompiledGraph[C],
	toChild func(P) C,
	fromChild func(P, C) P,
) *SubgraphNode[P, C] {
	if child == nil {
		panic("stategraph: subgraph child must not be nil")
	}
	if toChild == nil || fromChild == nil {
		panic("stategraph: subgraph state mapping functions must not be nil")
	}
	return &SubgraphNode[P, C]{
		name:      name,
		child:     child,
		toChild:   toChild,
		fromChild: fromChild,
	}
}

// Name returns the node's identifier in the parent graph.
func (n *SubgraphNode[P, C]) Name() string {
	return n.name
}

// Execute runs the child graph against the projected state. If the
// child fails, the parent state passes through untouched and
// fromChild is never called, so a failed subgraph leaves no partial
// child results behind.
func (n *SubgraphNode[P, C]) Execute(ctx Context, state P) (P, error) {
	childState := n.toChild(state)

	result, err := n.child.Invoke(ctx, childState)
	if err != nil {
		return state, fmt.Errorf("subgraph: %w", err)
	}

	return n.fromChild(state, result.FinalState), nil
}
