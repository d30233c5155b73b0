package benchmarks

import (
	"context"
	"testing"

	"github.com/stategraph/stategraph/pkg/stategraph"
)

// BenchmarkInvoke_Linear_5 runs a 5-node linear graph.
func BenchmarkInvoke_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Linear_10 runs a 10-node linear graph.
func BenchmarkInvoke_Linear_10(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Linear_50 runs a 50-node linear graph.
func BenchmarkInvoke_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Linear_100 runs a 100-node linear graph.
func BenchmarkInvoke_Linear_100(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(100))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Branching runs a graph with conditional edges.
func BenchmarkInvoke_Branching(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{Value: i})
	}
}

// BenchmarkInvoke_Loop runs a looping graph (3 iterations).
func BenchmarkInvoke_Loop(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(3))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_Loop_10 runs a looping graph (10 iterations).
func BenchmarkInvoke_Loop_10(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, State{})
	}
}

// BenchmarkInvoke_ForkJoin_2 runs a fork/join graph with two branches.
func BenchmarkInvoke_ForkJoin_2(b *testing.B) {
	compiled := mustCompileMerge(buildParallelGraph())
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Invoke(ctx, MergeState{})
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		stategraph.NewContext(bg)
	}
}

// Helper functions

func mustCompile(g *stategraph.Graph[State]) *stategraph.CompiledGraph[State] {
	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

func buildLoopGraph(maxIterations int) *stategraph.Graph[State] {
	counter := 0
	loopNode := func(ctx stategraph.Context, s State) (State, error) {
		s.Value++
		return s, nil
	}

	router := func(ctx stategraph.Context, s State) string {
		counter++
		if counter >= maxIterations {
			counter = 0 // Reset for next run
			return "done"
		}
		return "loop"
	}

	return stategraph.NewGraph[State]().
		AddNode("loop", loopNode).
		AddNode("done", noopNode).
		AddConditionalEdges("loop", router, map[string]string{
			"loop": "loop",
			"done": "done",
		}).
		AddEdge("done", stategraph.END).
		SetEntry("loop")
}

// MergeState carries per-branch results for fork/join benchmarks.
type MergeState struct {
	Values map[string]int
}

// Merge combines branch results, receiver winning on conflicts.
func (s MergeState) Merge(other MergeState) MergeState {
	if s.Values == nil {
		s.Values = make(map[string]int, len(other.Values))
	}
	for k, v := range other.Values {
		if _, ok := s.Values[k]; !ok {
			s.Values[k] = v
		}
	}
	return s
}

func mergeNode(key string) stategraph.NodeFunc[MergeState] {
	return func(ctx stategraph.Context, s MergeState) (MergeState, error) {
		if s.Values == nil {
			s.Values = make(map[string]int)
		}
		s.Values[key] = len(key)
		return s, nil
	}
}

func buildParallelGraph() *stategraph.Graph[MergeState] {
	return stategraph.NewGraph[MergeState]().
		AddNode("fan", mergeNode("fan")).
		AddNode("left", mergeNode("left")).
		AddNode("right", mergeNode("right")).
		AddNode("join", mergeNode("join")).
		AddParallelEdges("fan", []string{"left", "right"}).
		AddEdge("left", "join").
		AddEdge("right", "join").
		AddEdge("join", stategraph.END).
		SetEntry("fan")
}

func mustCompileMerge(g *stategraph.Graph[MergeState]) *stategraph.CompiledGraph[MergeState] {
	compiled, err := g.CompileWithMerge()
	if err != nil {
		panic(err)
	}
	return compiled
}
