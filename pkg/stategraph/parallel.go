package stategraph

import "time"

// ForkJoinConfig configures parallel execution behavior.
// All fields have sensible defaults (zero values are valid).
type ForkJoinConfig struct {
	// MaxConcurrency limits the number of branches executing simultaneously.
	// 0 = unlimited (all branches start immediately).
	// Use this to prevent resource exhaustion with many branches.
	MaxConcurrency int

	// FailFast cancels remaining branches when any branch fails.
	// false = wait for all branches to complete (default).
	FailFast bool

	// MergeTimeout is the maximum time to wait for branch completion.
	// 0 = no timeout (wait indefinitely).
	// If the timeout is reached, remaining branches are cancelled.
	MergeTimeout time.Duration
}

// DefaultForkJoinConfig returns the default configuration:
// unlimited concurrency, wait for all branches, no timeout.
func DefaultForkJoinConfig() ForkJoinConfig {
	return ForkJoinConfig{}
}

// forkPoint is a compiled fan-out: the declared branch entry nodes and
// the join node where all branches reconsolidate. An empty Join means
// no common successor exists and every branch runs to END.
type forkPoint struct {
	From     string
	Branches []string
	Join     string
}

// branchResult holds the outcome of a single branch execution.
type branchResult[S any] struct {
	index    int
	branchID string
	state    S
	trace    []string
	err      error
	duration time.Duration
}
