package stategraph

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State is a more complex state for testing various scenarios.
type State struct {
	Step      int
	Progress  []string
	Initial   string
	Output    string
	Done      bool
	GoLeft    bool
	Completed []string
	Count     int
}

// WorkState is a mergeable state for fan-out tests. Results holds
// per-branch outputs; Merge unions the maps with the receiver winning
// on key conflicts, and sums Total.
type WorkState struct {
	Input   string
	Results map[string]int
	Total   int
}

func (s WorkState) Merge(other WorkState) WorkState {
	if s.Results == nil {
		s.Results = make(map[string]int)
	}
	for k, v := range other.Results {
		if _, exists := s.Results[k]; !exists {
			s.Results[k] = v
		}
	}
	s.Total += other.Total
	return s
}

// Helper node functions

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (S, error) {
	return s, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		*tracker = append(*tracker, name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// makeWorkNode creates a WorkState node that records one result key.
func makeWorkNode(key string, value int) NodeFunc[WorkState] {
	return func(ctx Context, s WorkState) (WorkState, error) {
		if s.Results == nil {
			s.Results = make(map[string]int)
		}
		s.Results[key] = value
		s.Total += value
		return s, nil
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
