// Package worker connects a task queue to a workflow engine.
//
// Producers enqueue "start-workflow" and "signal" tasks; a Worker dequeues
// them in order and hands them to the engine. Because the engine delivers
// each instance's signals in the order Signal is called, running a single
// worker per queue preserves the order in which an operator typed readings.
//
// Most applications use the tempalert.LocalRunner, which wires an engine, an
// in-memory queue and a worker together.
package worker
