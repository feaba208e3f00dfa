// Package trellis implements a synchronous reactive computation engine: a
// dependency-tracked cell graph that performs automatic, glitch-free,
// transactional recomputation in response to input changes.
//
// Cells hold values or rules (functions computing values); rules
// transparently discover the cells they read during evaluation, and those
// reads become subscriptions. When an input changes, the engine drives the
// dependent graph to a new consistent fixpoint in a discrete recalculation
// sweep, under a software-transactional-memory substrate that supports
// undo, rollback on error, and savepoints.
//
// The package is organized, per cell kind responsibility, as:
//
//   - stm.go: atomic sections, undo log, savepoints, scope managers.
//   - graph.go: the weak subject/listener link structure.
//   - cell.go: the seven cell kinds and their read/write contracts.
//   - sensor.go: Sensor and Effector cells, which bridge to external sources.
//   - engine.go: process-scoped engine state and the public entry points.
//   - scheduler.go: the recalculation sweep and its cycle detection.
//   - container_*.go, pipe.go: observable containers.
//   - attr.go: declarative cell-backed attribute binding.
//   - errors.go, version.go, graph_dump.go: error taxonomy, API version
//     markers, and graph introspection.
//
// Engines are not safe to share across goroutines that call into them
// concurrently: an Engine is bound to a single logical thread of control,
// matching the "synchronous" in the package's name.
package trellis
