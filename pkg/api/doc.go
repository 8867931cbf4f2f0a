// Package api contains the core building blocks used by the tempalert
// workflow engine: workflow and activity definitions, the workflow-side
// Context, the Engine interface, history events and observers.
//
// Most users interact with the higher-level tempalert package, which
// re-exports selected types and helpers from this package.
//
// # Workflows
//
// A workflow is a plain Go function:
//
//	func(ctx api.Context, input any) (any, error)
//
// It runs on a goroutine owned by its instance. Signal handlers and query
// handlers registered through the Context run on that same goroutine, only
// while the workflow is blocked in one of the Context primitives, so workflow
// state needs no locking.
//
// # Coordination primitives
//
//   - WaitUntil: condition watcher over signal-updated state.
//   - Race: a Latch against a deadline, first one wins, the loser is released.
//   - ExecuteActivity: a named side-effecting call with per-attempt timeout
//     and capped exponential retry.
//   - StartChild: start-and-forget of another workflow instance.
//
// # Latches
//
// A Latch is the single-shot wait object a signal handler fires. Latches are
// replaced, never reset, between waits.
//
// # Observability
//
// Observer receives lifecycle callbacks. LoggingObserver writes log/slog
// records, BasicMetrics keeps in-memory counters, and CompositeObserver fans
// out to several observers.
package api
