package stategraph

import (
	"encoding/json"
	"fmt"
)

// Mergeable is the contract a state type must satisfy to participate
// in parallel fan-out. Merge folds the state produced by a sibling
// branch into the receiver and returns the combined state.
//
// The receiver is the "primary" side: for any field the implementation
// does not explicitly combine, the receiver's value survives.
// Implementations should document, per field, which side wins. Merge
// is applied in branch declaration order, so the final merged state is
// deterministic regardless of how the branches interleave at run time.
//
// Example:
//
//	func (s State) Merge(other State) State {
//	    s.Findings = append(s.Findings, other.Findings...)
//	    if other.Score > s.Score {
//	        s.Score = other.Score
//	    }
//	    return s
//	}
type Mergeable[S any] interface {
	Merge(other S) S
}

// Cloner is an optional interface for state types that need custom
// deep-copy behavior when handed to a parallel branch. Without it the
// runtime falls back to a JSON round-trip, which is correct for any
// serializable state but copies every byte.
type Cloner[S any] interface {
	Clone() S
}

// cloneState produces an independent copy of state for one branch.
// Uses Cloner when implemented, otherwise a JSON round-trip.
func cloneState[S any](state S) (S, error) {
	if c, ok := any(state).(Cloner[S]); ok {
		return c.Clone(), nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("clone state: marshal: %w", err)
	}

	var clone S
	if err := json.Unmarshal(data, &clone); err != nil {
		var zero S
		return zero, fmt.Errorf("clone state: unmarshal: %w", err)
	}
	return clone, nil
}

// stateIsMergeable reports whether S implements Mergeable[S].
// Interface satisfaction is a property of the type, so checking the
// zero value is sufficient.
func stateIsMergeable[S any]() bool {
	var zero S
	_, ok := any(zero).(Mergeable[S])
	return ok
}

// mergeStates folds branch results into one state in declaration order.
// The first branch's result is the primary; each subsequent result is
// merged into it.
func mergeStates[S any](states []S) (S, error) {
	if len(states) == 0 {
		var zero S
		return zero, fmt.Errorf("merge: no branch states")
	}

	merged := states[0]
	for _, other := range states[1:] {
		m, ok := any(merged).(Mergeable[S])
		if !ok {
			// CompileWithMerge guards against this; reaching it means the
			// graph was compiled through a path that skipped the check.
			var zero S
			return zero, fmt.Errorf("%w: %T", ErrStateNotMergeable, merged)
		}
		merged = m.Merge(other)
	}
	return merged, nil
}
