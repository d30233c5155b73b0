package stategraph

import (
	"log/slog"

	"github.com/stategraph/stategraph/pkg/stategraph/config"
	"github.com/stategraph/stategraph/pkg/stategraph/observability"
	"github.com/stategraph/stategraph/pkg/stategraph/snapshot"
)

// runConfig holds per-invocation execution configuration.
type runConfig struct {
	maxIterations int // 0 = unlimited
	runID         string

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	snapshotStore snapshot.Store
	snapshotFatal bool
	sequence      int
}

// defaultRunConfig returns the default execution configuration:
// no iteration cap, no snapshots, no-op metrics and tracing.
func defaultRunConfig() runConfig {
	return runConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior for a single Invoke call.
type RunOption func(*runConfig)

// WithMaxIterations sets an opt-in cap on the number of node
// executions per invocation. The engine imposes no cap by default
// (0 = unlimited): termination is the responsibility of the graph's
// own routing logic, and an always-true router loops forever. Set a
// cap when you want a backstop against that caller error.
//
// Example:
//
//	result, err := compiled.Invoke(ctx, state, stategraph.WithMaxIterations(100))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunID sets the run identifier used for snapshots, logging, and
// tracing. Falls back to the Context's run ID when unset.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithObservabilityLogger sets the logger used for run- and node-level
// structured logging. Nodes continue to log through ctx.Logger().
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics for this invocation.
// Uses the global OTel meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry tracing for this invocation.
// Uses the global OTel tracer provider.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSnapshots records a state snapshot to store after every
// completed node. The engine itself stays persistence-free: the store
// consumes JSON-serialized state as an opaque payload. Requires
// WithRunID (or a Context run ID) so snapshots can be keyed.
//
// Snapshot failures are logged and skipped by default; see
// WithSnapshotFailureFatal.
func WithSnapshots(store snapshot.Store) RunOption {
	return func(c *runConfig) {
		c.snapshotStore = store
	}
}

// WithSnapshotFailureFatal makes snapshot persistence failures abort
// the run with a SnapshotError instead of being logged and skipped.
func WithSnapshotFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.snapshotFatal = fatal
	}
}

// WithConfig applies execution settings from a loaded configuration.
// Recognized keys (see the config package constants):
//
//	max_iterations (int), see WithMaxIterations
//	run_id         (string), see WithRunID
//	metrics        (bool), see WithMetrics
//	tracing        (bool), see WithTracing
//
// Unrecognized keys are ignored, so one file can also carry
// application settings.
//
// Example:
//
//	cfg, err := config.FromFile("run.yaml")
//	...
//	result, err := compiled.Invoke(ctx, state, stategraph.WithConfig(cfg))
func WithConfig(cfg config.Config) RunOption {
	return func(c *runConfig) {
		if n := cfg.Int(config.KeyMaxIterations, 0); n > 0 {
			c.maxIterations = n
		}
		if id := cfg.String(config.KeyRunID, ""); id != "" {
			c.runID = id
		}
		WithMetrics(cfg.Bool(config.KeyMetrics, false))(c)
		WithTracing(cfg.Bool(config.KeyTracing, false))(c)
	}
}

// ForkJoinConfigFromConfig builds a ForkJoinConfig from a loaded
// configuration. Recognized keys: max_concurrency (int), fail_fast
// (bool), merge_timeout (duration string or seconds).
func ForkJoinConfigFromConfig(cfg config.Config) ForkJoinConfig {
	fj := DefaultForkJoinConfig()
	fj.MaxConcurrency = cfg.Int(config.KeyMaxConcurrency, fj.MaxConcurrency)
	fj.FailFast = cfg.Bool(config.KeyFailFast, fj.FailFast)
	fj.MergeTimeout = cfg.Duration(config.KeyMergeTimeout, fj.MergeTimeout)
	return fj
}
