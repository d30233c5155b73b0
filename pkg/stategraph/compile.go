package stategraph

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined
// together; the graph is never partially compiled.
//
// Validation checks (in order):
//  1. Entry point must be set and reference an existing node
//  2. All edge sources must reference existing nodes
//  3. All edge, route, and fan-out targets must reference existing nodes or END
//  4. Conditional edges must declare at least one route
//  5. A node may declare only one edge type
//  6. Multi-target parallel edges require CompileWithMerge()
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	return g.compileInternal(false)
}

// CompileWithMerge validates and compiles like Compile, and
// additionally asserts that the state type implements Mergeable[S].
// It is required for graphs that declare parallel fan-out to more than
// one target, since branch results must be folded back into one state.
func (g *Graph[S]) CompileWithMerge() (*CompiledGraph[S], error) {
	if !stateIsMergeable[S]() {
		var zero S
		return nil, fmt.Errorf("%w: %T", ErrStateNotMergeable, zero)
	}
	return g.compileInternal(true)
}

func (g *Graph[S]) compileInternal(mergeable bool) (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// Entry point present and resolvable.
	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	// Unconditional edges.
	for from, to := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if to != END {
			if _, exists := g.nodes[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	// Conditional edges.
	for from, ce := range g.conditionalEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if len(ce.routes) == 0 {
			errs = append(errs, fmt.Errorf("%w: from '%s'", ErrEmptyRoutes, from))
		}
		for key, target := range ce.routes {
			if target != END {
				if _, exists := g.nodes[target]; !exists {
					errs = append(errs, fmt.Errorf("%w: route '%s' from '%s' targets '%s'",
						ErrNodeNotFound, key, from, target))
				}
			}
		}
	}

	// Parallel edges.
	for from, targets := range g.parallelEdges {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: parallel edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if len(targets) == 0 {
			errs = append(errs, fmt.Errorf("parallel edge from '%s' has no targets", from))
		}
		for _, target := range targets {
			if target != END {
				if _, exists := g.nodes[target]; !exists {
					errs = append(errs, fmt.Errorf("%w: parallel target '%s' from '%s' does not exist",
						ErrNodeNotFound, target, from))
				}
			}
		}
		if !mergeable && len(targets) > 1 {
			errs = append(errs, fmt.Errorf("%w: fan-out from '%s' has %d targets",
				ErrParallelRequiresMerge, from, len(targets)))
		}
	}

	// One edge kind per node. When a node has several, only one would
	// execute, which is almost certainly an authoring mistake.
	for id := range g.nodes {
		kinds := 0
		if _, ok := g.edges[id]; ok {
			kinds++
		}
		if _, ok := g.conditionalEdges[id]; ok {
			kinds++
		}
		if _, ok := g.parallelEdges[id]; ok {
			kinds++
		}
		if kinds > 1 {
			errs = append(errs, fmt.Errorf("%w: '%s'", ErrMixedEdgeTypes, id))
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := reachableFrom(g.entryPoint, g.successorTable())
	for id := range g.nodes {
		if !reachable[id] {
			slog.Warn("node is unreachable from entry", "node_id", id)
		}
	}
}

// successorTable flattens every declared edge into a single successor
// relation: unconditional targets, all conditional route targets, and
// all fan-out targets.
func (g *Graph[S]) successorTable() map[string][]string {
	succ := make(map[string][]string, len(g.nodes))
	for from, to := range g.edges {
		succ[from] = append(succ[from], to)
	}
	for from, ce := range g.conditionalEdges {
		for _, target := range ce.routes {
			succ[from] = append(succ[from], target)
		}
	}
	for from, targets := range g.parallelEdges {
		succ[from] = append(succ[from], targets...)
	}
	return succ
}

// reachableFrom returns the set of nodes reachable from start by BFS
// over the successor relation. END is never included.
func reachableFrom(start string, succ map[string][]string) map[string]bool {
	reachable := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range succ[current] {
			if next != END && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reachable
}

// buildCompiledGraph freezes the builder's tables into an immutable
// CompiledGraph. Everything is deep-copied so later builder mutations
// cannot leak into a compiled graph.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	nodes := make(map[string]Node[S], len(g.nodes))
	for id, node := range g.nodes {
		nodes[id] = node
	}

	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}

	conditionalEdges := make(map[string]conditionalEdge[S], len(g.conditionalEdges))
	for from, ce := range g.conditionalEdges {
		routes := make(map[string]string, len(ce.routes))
		for k, v := range ce.routes {
			routes[k] = v
		}
		conditionalEdges[from] = conditionalEdge[S]{router: ce.router, routes: routes}
	}

	succ := g.successorTable()

	forks := make(map[string]*forkPoint, len(g.parallelEdges))
	for from, targets := range g.parallelEdges {
		branches := make([]string, len(targets))
		copy(branches, targets)
		forks[from] = &forkPoint{
			From:     from,
			Branches: branches,
			Join:     findJoinNode(branches, succ),
		}
	}

	return &CompiledGraph[S]{
		nodes:            nodes,
		edges:            edges,
		conditionalEdges: conditionalEdges,
		forks:            forks,
		entryPoint:       g.entryPoint,
		forkJoin:         g.forkJoin,
	}
}

// findJoinNode finds the join point for a fan-out using simplified
// post-dominator analysis: the node closest to the branches that is
// reachable from every branch. Returns "" if the branches never
// reconverge, in which case each runs to END.
func findJoinNode(branches []string, succ map[string][]string) string {
	if len(branches) == 0 {
		return ""
	}

	// A branch consisting of the single target END never rejoins.
	for _, b := range branches {
		if b == END {
			return ""
		}
	}

	// Intersect the reachable sets of all branches. A branch node
	// itself can be the join for a sibling (e.g. diamond shapes), so
	// include the branch entries in their own reachable sets.
	common := reachableFrom(branches[0], succ)
	for _, b := range branches[1:] {
		other := reachableFrom(b, succ)
		for node := range common {
			if !other[node] {
				delete(common, node)
			}
		}
	}
	if len(common) == 0 {
		return ""
	}

	// Closest common node by BFS distance from the first branch.
	return findClosestNode(branches[0], common, succ)
}

// findClosestNode finds the nearest node in targets reachable from
// start using BFS over the successor relation.
func findClosestNode(start string, targets map[string]bool, succ map[string][]string) string {
	if targets[start] {
		return start
	}

	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range succ[current] {
			if next == END {
				continue
			}
			if targets[next] {
				return next
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return ""
}
