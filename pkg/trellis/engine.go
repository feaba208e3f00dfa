package trellis

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// engineState tracks which phase of an atomic section's lifecycle the
// engine is currently in, so that InCleanup and the scheduler's
// dirty-rule-registration check can tell the difference between "building
// a section" and "tearing one down".
type engineState uint8

const (
	stateInactive engineState = iota
	stateBuilding
	stateCommitting
	stateRollingBack
)

// defaultConvergenceBudget bounds the number of sweep passes Engine will
// run while resolving a single atomic section before giving up and
// reporting a ConflictError — the guard against work (repeats, observer
// writes, discrete resets) that keeps queueing further passes forever.
const defaultConvergenceBudget = 10000

// Engine owns every cell's graph edges, scheduling state, and the single
// atomic section active at any moment. An Engine is not safe for
// concurrent use by multiple goroutines (see doc.go); the STM substrate in
// stm.go and the scheduler in scheduler.go are both written against that
// assumption, the same single-goroutine-per-run ownership a solver state
// struct has, with cross-goroutine work confined to internal/extloop
// submitting closures rather than touching an Engine directly.
type Engine struct {
	nextCellID uint64
	version    uint64

	currentSection *section
	state          engineState

	// current is the cellNode whose rule is presently executing, used to
	// record dependency links as rules call Read.
	current *cellNode

	// discretes is every Discrete cell ever created, so the scheduler can
	// find and reset the ones that fired this sweep.
	discretes []*cellNode

	// allNodes is every cell ever created, in creation order, kept solely
	// for DumpGraph; nothing on the hot path iterates it.
	allNodes []*cellNode

	// ready holds cells pending recomputation in FIFO order; see
	// scheduler.go for why no explicit layering is needed.
	ready []*cellNode

	// readyObservers holds observer cells pending their recompute, kept
	// separate from ready since observers run in their own phase after
	// the rest of the graph has settled.
	readyObservers []*cellNode

	convergenceBudget int

	log zerolog.Logger

	stats EngineStats
}

// EngineStats accumulates lightweight counters across the engine's
// lifetime, in the spirit of fd_monitor.go's SolverStats/SolverMonitor:
// nil-safe to read, cheap to update, useful in tests and demo output
// rather than meant as a production metrics pipeline.
type EngineStats struct {
	Sections    uint64
	Recomputes  uint64
	Conflicts   uint64
	MaxLayer    int
	SweepPasses uint64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger installs a caller-supplied zerolog.Logger in place of the
// default, quiet one.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithConvergenceBudget overrides the default maximum number of sweep
// passes per atomic section.
func WithConvergenceBudget(n int) Option {
	return func(e *Engine) { e.convergenceBudget = n }
}

// WithLogOutput is a convenience wrapper around WithLogger for tests and
// demos that just want a differently-leveled console writer.
func WithLogOutput(w io.Writer, level zerolog.Level) Option {
	return func(e *Engine) {
		e.log = zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
}

// NewEngine constructs an Engine with no cells and an idle scheduler.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		convergenceBudget: defaultConvergenceBudget,
		log:               zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats returns a snapshot of the engine's running counters.
func (e *Engine) Stats() EngineStats { return e.stats }

// CurrentCell returns the cell whose rule is presently executing, or nil
// if none is (i.e. the caller is not inside a rule body).
func (e *Engine) CurrentCell() *cellNode { return e.current }

// InRule reports whether the caller is presently inside a rule body.
func (e *Engine) InRule() bool { return e.current != nil }

// readNode returns n's converged value, settling it first if it is still
// pending recomputation (queued, forced dirty, or never yet computed),
// and records a dependency edge if called from within another rule's
// body. A read from inside another rule that finds n still queued
// recurses straight into recompute, which is how the scheduler resolves
// a diamond-shaped graph without ever exposing a stale intermediate
// value to the rule doing the reading. A read from outside any rule that
// has to recompute n opens an atomic section first if none is open, so
// a rule's deferred self-write (the maintain() pattern) has somewhere to
// land; a read of an already settled cell opens no section.
//
// A rule reading its own cell is a self-read, not a pending dependency:
// it always returns prior, the value as of the end of the last
// successful recomputation, never the in-progress recompute (which
// hasn't produced a value yet, and would otherwise look like a cycle to
// the scheduler).
func (e *Engine) readNode(n *cellNode) any {
	if e.current != nil && e.current != n && n.kind != KindConstant {
		addLink(n, e.current)
	}
	if n.kind == KindConstant {
		return n.value
	}
	if e.current == n {
		return n.prior
	}
	if n.queued || !n.hasValue || n.forcedDirty {
		if e.currentSection == nil {
			_ = e.Atomically(func() error {
				e.recompute(n)
				return nil
			})
		} else {
			e.recompute(n)
		}
	}
	return n.value
}

// writeNode implements the write contract: outside any atomic section a
// new one opens implicitly around the write; inside a rule the write is
// deferred to the end of the rule's execution step; inside an atomic
// section but outside any rule, the write lands immediately and
// participates in this section's conflict bookkeeping.
func (e *Engine) writeNode(n *cellNode, v any) error {
	if n.kind == KindConstant {
		return &ReadOnlyError{Cell: n.displayName(), Kind: n.kind}
	}
	if n.kind == KindComputed && !n.writable {
		return &ReadOnlyError{Cell: n.displayName(), Kind: n.kind}
	}
	if n.kind == KindObserver {
		return &ReadOnlyError{Cell: n.displayName(), Kind: n.kind}
	}

	if e.currentSection == nil {
		return e.Atomically(func() error { return e.applyWrite(n, v, nil) })
	}
	if e.current != nil {
		n.pendingWrite = &pendingWrite{value: v, from: e.current}
		n.hasPendingWrite = true
		return nil
	}
	return e.applyWrite(n, v, nil)
}

// applyWrite performs the actual value assignment plus conflict detection
// against any other write already recorded this section for n: two
// writers disagreeing within one sweep aborts the section.
func (e *Engine) applyWrite(n *cellNode, v any, from *cellNode) error {
	sec := e.currentSection
	if prior, ok := sec.writers[n]; ok {
		if !n.equal(prior.value, v) {
			e.stats.Conflicts++
			return &ConflictError{Cell: n.displayName(), First: prior.value, Second: v}
		}
		return nil
	}
	sec.writers[n] = writeRecord{value: v, fromRule: from}
	e.forceWrite(n, v)
	return nil
}

// forceWrite sets n's value and schedules its listeners without the
// single-writer-per-section conflict check applyWrite performs, for
// internal callers (observable containers) that legitimately issue a
// sequence of updates to a cell they own exclusively within one section.
func (e *Engine) forceWrite(n *cellNode, v any) {
	old, hadOld := n.value, n.hasValue
	e.OnUndo(func(args ...any) {
		n.value = args[0]
		n.hasValue = args[1].(bool)
		n.version = args[2].(uint64)
	}, old, hadOld, n.version)

	n.value = v
	n.hasValue = true
	n.version = e.version
	e.enqueueListeners(n)
}

// ensureRecalc forces n onto the ready queue even though none of its
// subjects changed, per Cell.EnsureRecalc / Observer.EnsureRecalc.
func (e *Engine) ensureRecalc(n *cellNode) {
	n.forcedDirty = true
	if e.currentSection == nil {
		_ = e.Atomically(func() error {
			e.enqueue(n)
			return nil
		})
		return
	}
	e.enqueue(n)
}

// Modifier is the canonical name for a unit of external work submitted to
// the engine from outside any rule — a sensor reading arriving, a timer
// firing, a user action. Atomically is its implementation; Modifier exists
// as a documented alias so call sites read naturally: modifiers are the
// only place new information enters the graph.
func (e *Engine) Modifier(f func() error) error { return e.Atomically(f) }

// Repeat asks the scheduler to re-run the calling rule again this sweep
// once the current pass finishes, even though none of its subjects
// changed. Used by generator-task style rules (a Step() state machine)
// that need several engine passes to drive themselves to completion.
// Calling Repeat outside a rule body is a no-op.
func (e *Engine) Repeat() {
	if e.current != nil {
		e.current.wantsRepeat = true
	}
}

// Poll asks the scheduler to re-check the calling rule's external sensor
// binding (if any) on the next pass, independent of the dependency graph.
// Calling Poll outside a rule body is a no-op.
func (e *Engine) Poll() {
	if e.current != nil {
		e.current.wantsPoll = true
	}
}

// MarkDirty forces the given cell to be treated as dirty on the next
// recompute regardless of its subjects' versions, without the queue-wrap
// ensureRecalc performs from outside a section. Intended for a rule to
// invalidate another cell it does not otherwise depend on.
func (e *Engine) MarkDirty(n *cellNode) {
	n.forcedDirty = true
	e.enqueue(n)
}
