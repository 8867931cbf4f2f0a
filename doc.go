// Package tempalert runs reactive monitoring workflows: long-lived processes
// that wait for sensor readings and acknowledgements, evaluate conditions
// over them, and escalate through retried side-effecting actions when a
// condition holds or a deadline passes.
//
// # Core Concepts
//
//  1. Engine
//  2. Workflow functions and Context
//  3. Activities
//  4. LocalRunner
//
// # Engine
//
// The Engine runs every workflow instance on its own goroutine and provides
// APIs to:
//   - start workflows under a caller-chosen or generated ID
//   - deliver signals, one at a time and in send order
//   - query instance state without mutating it
//   - read instance snapshots and event history
//
// Snapshots and history can be recorded in memory, SQLite, Redis or bbolt.
// Instances are not resumed after a restart.
//
// # Workflows
//
// A workflow is a plain function taking a Context. It registers signal and
// query handlers for its state and then blocks only through the Context:
//
//   - WaitUntil suspends until a predicate over workflow state holds; it is
//     re-evaluated after every handled signal.
//   - Race suspends until a Latch fires or a deadline passes, and releases
//     the loser.
//   - ExecuteActivity invokes a named activity under a per-attempt timeout
//     and a capped exponential retry policy.
//   - StartChild starts another workflow without waiting for it.
//
// The monitoring workflows themselves live in pkg/monitor and their actions
// in pkg/activities; RegisterMonitoring wires both into an Engine.
//
// # LocalRunner
//
// LocalRunner puts a task queue and a Worker in front of an Engine so starts
// and signals can be enqueued. NewSQLiteBundle and NewRedisBundle build
// runners whose queue survives a process restart.
package tempalert
