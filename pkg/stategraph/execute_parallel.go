package stategraph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// executeForkJoin handles a multi-target fan-out. It clones the state
// for each branch, runs every branch concurrently through its own
// downstream chain up to the fan-out's join node, waits for all of
// them (join-all barrier), and folds the branch states back into one
// via Mergeable.Merge in declaration order.
//
// Branch traces are appended to the caller's trace grouped by branch
// in declaration order, so the recorded execution order is
// deterministic even though the branches interleave freely.
func (cg *CompiledGraph[S]) executeForkJoin(
	tracingCtx context.Context,
	fgCtx Context,
	fork *forkPoint,
	state S,
	trace *[]string,
	cfg *runConfig,
) (S, error) {
	startTime := time.Now()
	fj := cg.forkJoin

	branchCtx, cancel := context.WithCancel(tracingCtx)
	defer cancel()
	if fj.MergeTimeout > 0 {
		branchCtx, cancel = context.WithTimeout(tracingCtx, fj.MergeTimeout)
		defer cancel()
	}
	branchFgCtx := deriveContext(fgCtx, branchCtx)

	var sem chan struct{}
	if fj.MaxConcurrency > 0 {
		sem = make(chan struct{}, fj.MaxConcurrency)
	}

	// Each branch runs against an independent copy of the state and
	// with its own trace and iteration counter; nothing is shared
	// between branches, so there are no data races by construction.
	// Snapshots stay on the sequential spine: branches run without a
	// snapshot store so the shared sequence counter is never written
	// concurrently.
	branchCfg := *cfg
	branchCfg.snapshotStore = nil

	results := make([]branchResult[S], len(fork.Branches))
	var wg sync.WaitGroup

	for i, branchID := range fork.Branches {
		cloned, err := cloneState(state)
		if err != nil {
			return state, &ForkJoinError{ForkNodeID: fork.From, BranchID: branchID, Err: err}
		}

		wg.Add(1)
		go func(idx int, bID string, bState S) {
			defer wg.Done()

			branchStart := time.Now()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-branchCtx.Done():
					results[idx] = branchResult[S]{
						index:    idx,
						branchID: bID,
						err:      branchCtx.Err(),
						duration: time.Since(branchStart),
					}
					return
				}
			}

			bCfg := branchCfg
			bTrace := make([]string, 0, 4)
			bIterations := 0
			finalState, err := cg.run(branchCtx, branchFgCtx, bState, bID, fork.Join, &bTrace, &bIterations, &bCfg)

			results[idx] = branchResult[S]{
				index:    idx,
				branchID: bID,
				state:    finalState,
				trace:    bTrace,
				err:      err,
				duration: time.Since(branchStart),
			}

			if err != nil && fj.FailFast {
				cancel()
			}
		}(i, branchID, cloned)
	}

	wg.Wait()

	// First failure in declaration order wins, so the reported error is
	// deterministic.
	for _, r := range results {
		if r.err != nil {
			return state, &ForkJoinError{ForkNodeID: fork.From, BranchID: r.branchID, Err: r.err}
		}
	}

	states := make([]S, len(results))
	for i, r := range results {
		states[i] = r.state
		*trace = append(*trace, r.trace...)
	}

	merged, err := mergeStates(states)
	if err != nil {
		return state, &ForkJoinError{ForkNodeID: fork.From, Err: err}
	}

	fgCtx.Logger().Debug("fan-out merged",
		"fork_node", fork.From,
		"join_node", fork.Join,
		"branches", len(fork.Branches),
		"duration_ms", time.Since(startTime).Milliseconds())

	return merged, nil
}

// deriveContext rebinds a Context onto a derived context.Context so
// branch goroutines observe fan-out cancellation and timeouts.
func deriveContext(parent Context, ctx context.Context) Context {
	if ec, ok := parent.(*executionContext); ok {
		clone := *ec
		clone.Context = ctx
		return &clone
	}
	return parent
}

// ForkJoinError reports a failure during parallel fan-out execution.
type ForkJoinError struct {
	// ForkNodeID is the fan-out source node.
	ForkNodeID string
	// BranchID is the failed branch's entry node, if the failure came
	// from a branch.
	BranchID string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ForkJoinError) Error() string {
	if e.BranchID == "" {
		return fmt.Sprintf("fan-out at %s: %v", e.ForkNodeID, e.Err)
	}
	return fmt.Sprintf("fan-out at %s (branch %s): %v", e.ForkNodeID, e.BranchID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ForkJoinError) Unwrap() error {
	return e.Err
}
