package stategraph

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() or CompileWithMerge() on a Graph
// builder.
//
// CompiledGraph is thread-safe and can be used concurrently for
// multiple Invoke() calls: the structure is never mutated after
// compilation, and every invocation allocates its own trace and state,
// so no state leaks between calls.
//
// Use the introspection methods (NodeIDs, Successor, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            map[string]string
	conditionalEdges map[string]conditionalEdge[S]
	forks            map[string]*forkPoint
	entryPoint       string
	forkJoin         ForkJoinConfig
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successor returns the unconditional edge target for the given node
// and whether one is declared. Conditional and parallel targets are
// not reported here (those are runtime- or fan-out-determined).
func (cg *CompiledGraph[S]) Successor(id string) (string, bool) {
	to, ok := cg.edges[id]
	return to, ok
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, ok := cg.conditionalEdges[id]
	return ok
}

// RouteTargets returns the route-key → target mapping for a node's
// conditional edge, or nil if the node has none. The returned map is a
// copy; modifying it does not affect the graph.
func (cg *CompiledGraph[S]) RouteTargets(id string) map[string]string {
	ce, ok := cg.conditionalEdges[id]
	if !ok {
		return nil
	}
	routes := make(map[string]string, len(ce.routes))
	for k, v := range ce.routes {
		routes[k] = v
	}
	return routes
}

// IsParallel returns true if the node declares a fan-out edge.
func (cg *CompiledGraph[S]) IsParallel(id string) bool {
	_, ok := cg.forks[id]
	return ok
}

// Branches returns the fan-out targets declared for the node, in
// declaration order, or nil if the node has no fan-out.
func (cg *CompiledGraph[S]) Branches(id string) []string {
	fork, ok := cg.forks[id]
	if !ok {
		return nil
	}
	branches := make([]string, len(fork.Branches))
	copy(branches, fork.Branches)
	return branches
}

// JoinFor returns the computed join node for the given fan-out source,
// or "" if the branches run to END without reconverging (or the node
// has no fan-out).
func (cg *CompiledGraph[S]) JoinFor(id string) string {
	fork, ok := cg.forks[id]
	if !ok {
		return ""
	}
	return fork.Join
}

// HasParallelExecution returns true if the graph contains any fan-out.
func (cg *CompiledGraph[S]) HasParallelExecution() bool {
	return len(cg.forks) > 0
}

// getNode returns the node for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph[S]) getNode(id string) (Node[S], bool) {
	node, exists := cg.nodes[id]
	return node, exists
}
