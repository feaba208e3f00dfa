package trellis

import (
	"fmt"
	"reflect"
	"weak"
)

// Kind discriminates the seven cell variants as a small, closed tagged
// union: the scheduler needs exhaustive case analysis over cell kinds,
// which open subclassing would only get in the way of. Generalizing
// domain.go's tagging of finite-domain variable state the same way
// instead of subclassing Variable per representation.
type Kind uint8

const (
	KindValue Kind = iota
	KindComputed
	KindObserver
	KindDiscrete
	KindSensor
	KindEffector
	KindConstant
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindComputed:
		return "Computed"
	case KindObserver:
		return "Observer"
	case KindDiscrete:
		return "Discrete"
	case KindSensor:
		return "Sensor"
	case KindEffector:
		return "Effector"
	case KindConstant:
		return "Constant"
	default:
		return "Unknown"
	}
}

// cellNode is the type-erased, engine-owned representation of a cell.
// Cell[T] is a thin typed facade over it, following the split the
// AnatoleLucet/sig reference implementation uses (a generic public Signal[T]
// wrapping an untyped internal.Signal) so that subjects and listeners of
// differing value types can share one graph.
type cellNode struct {
	id     uint64
	name   string
	engine *Engine
	kind   Kind

	value    any
	hasValue bool
	// prior is the value as of the end of the previous successful
	// recomputation; a rule reading its own cell observes this, never the
	// in-progress value.
	prior any

	// defaultVal is the reset target for Discrete cells.
	defaultVal any

	rule     func() any
	writable bool // maintain(): Write is permitted and bypasses the rule

	// layer is a diagnostic-only depth (1 + the deepest subject's layer),
	// recomputed each time the rule runs; the scheduler itself no longer
	// relies on it for ordering (see scheduler.go), only DebugString does.
	layer   int
	version uint64

	subjects  []*cellNode
	listeners []weak.Pointer[cellNode]

	equal func(a, b any) bool

	// sensor/effector external-source bridge; see sensor.go.
	connect    func(*cellNode) any
	disconnect func(*cellNode, any)
	connKey    any
	connected  bool
	pollFn     func() any

	// scheduler bookkeeping, valid only during the sweep that is currently
	// processing this node; see scheduler.go.
	queued      bool
	computing   bool
	wantsRepeat bool
	wantsPoll   bool
	forcedDirty bool

	// pendingWrite holds a write issued by a rule, deferred until that
	// rule's execution step returns rather than applied during it.
	pendingWrite    *pendingWrite
	hasPendingWrite bool
}

// pendingWrite records a rule-originated write awaiting application at the
// end of the rule's execution step.
type pendingWrite struct {
	value any
	from  *cellNode
}

func (n *cellNode) String() string {
	return fmt.Sprintf("Cell(%s, kind=%s, layer=%d)", n.displayName(), n.kind, n.layer)
}

func (n *cellNode) displayName() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("#%d", n.id)
}

// DebugString renders a one-line summary of a cell's current scheduler
// state, grounded on store_debug.go (which exists purely to make
// constraint-store internals inspectable in tests and REPL use).
func (n *cellNode) DebugString() string {
	return fmt.Sprintf("%s value=%v version=%d subjects=%d listeners=%d",
		n.String(), n.value, n.version, len(n.subjects), n.countLiveListeners())
}

func (n *cellNode) countLiveListeners() int {
	count := 0
	for _, w := range n.listeners {
		if w.Value() != nil {
			count++
		}
	}
	return count
}

// Cell is the typed public facade over a cellNode, parameterized by the
// cell's value type.
type Cell[T any] struct {
	node *cellNode
}

// Node exposes the untyped node backing this cell, for APIs (containers,
// attribute binding) that must hold cells of differing value types in one
// collection.
func (c *Cell[T]) Node() *cellNode { return c.node }

// Read returns the cell's current, converged value, recomputing first if
// the cell is dirty.
func (c *Cell[T]) Read() T {
	v := c.node.engine.readNode(c.node)
	return asT[T](v)
}

// Write writes a new value to the cell: from outside any atomic section
// this opens one implicitly; from inside a rule the write is deferred
// until the rule returns.
func (c *Cell[T]) Write(v T) error {
	return c.node.engine.writeNode(c.node, v)
}

// Name returns the cell's debug name.
func (c *Cell[T]) Name() string { return c.node.displayName() }

// Kind returns the cell's kind tag.
func (c *Cell[T]) Kind() Kind { return c.node.kind }

// Subjects returns the cells read during this cell's most recent rule run.
func (c *Cell[T]) Subjects() []*cellNode {
	out := make([]*cellNode, len(c.node.subjects))
	copy(out, c.node.subjects)
	return out
}

// EnsureRecalc forces the cell to be scheduled for recomputation even if
// none of its subjects have changed.
func (c *Cell[T]) EnsureRecalc() {
	c.node.engine.ensureRecalc(c.node)
}

func asT[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// defaultEqual compares with Go's == operator; values that panic on ==
// (e.g. slices) are compared with reflect.DeepEqual instead.
func defaultEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

// newNode allocates a bare cellNode of the given kind and registers it
// with the engine's id counter; callers finish initializing kind-specific
// fields.
func (e *Engine) newNode(name string, kind Kind) *cellNode {
	e.nextCellID++
	n := &cellNode{
		id:     e.nextCellID,
		name:   name,
		engine: e,
		kind:   kind,
		equal:  defaultEqual,
	}
	e.allNodes = append(e.allNodes, n)
	return n
}

// NewValue creates an eagerly-created input cell.
func NewValue[T any](e *Engine, name string, initial T) *Cell[T] {
	n := e.newNode(name, KindValue)
	n.value = initial
	n.prior = initial
	n.hasValue = true
	n.version = e.version
	return &Cell[T]{node: n}
}

// NewComputed creates a lazily-evaluated, read-only rule cell.
func NewComputed[T any](e *Engine, name string, rule func() T) *Cell[T] {
	n := e.newNode(name, KindComputed)
	n.rule = func() any { return rule() }
	return &Cell[T]{node: n}
}

// NewMaintain creates a computed cell whose value Write can override; the
// rule is expected to incorporate the override via a self-read of its
// prior value.
func NewMaintain[T any](e *Engine, name string, rule func() T) *Cell[T] {
	c := NewComputed(e, name, rule)
	c.node.writable = true
	return c
}

// NewDiscrete creates a cell that snaps back to default at the end of
// every sweep in which it held a non-default value.
func NewDiscrete[T any](e *Engine, name string, deflt T, rule func() T) *Cell[T] {
	n := e.newNode(name, KindDiscrete)
	n.rule = func() any { return rule() }
	n.defaultVal = deflt
	n.value = deflt
	n.prior = deflt
	n.hasValue = true
	e.discretes = append(e.discretes, n)
	return &Cell[T]{node: n}
}

// NewInputDiscrete creates a Discrete cell with no rule: its value is set
// directly via Write (e.g. an incoming byte buffer) and still snaps back
// to default at sweep end. Used by the line-receiver scenario.
func NewInputDiscrete[T any](e *Engine, name string, deflt T) *Cell[T] {
	n := e.newNode(name, KindDiscrete)
	n.defaultVal = deflt
	n.value = deflt
	n.prior = deflt
	n.hasValue = true
	n.version = e.version
	e.discretes = append(e.discretes, n)
	return &Cell[T]{node: n}
}

// NewConstant creates a cell that can never be written and is never
// recorded as a subject's rule-reentry target.
func NewConstant[T any](e *Engine, name string, v T) *Cell[T] {
	n := e.newNode(name, KindConstant)
	n.value = v
	n.prior = v
	n.hasValue = true
	n.version = e.version
	return &Cell[T]{node: n}
}

// Observer is a write-forbidden, side-effect-producing terminal cell; it
// is never recorded as a subject of any other rule.
type Observer struct {
	node *cellNode
}

// Node exposes the untyped node backing this observer.
func (o *Observer) Node() *cellNode { return o.node }

// NewObserver creates an observer cell. The rule is run for its side
// effects only; Trellis discards its return value.
func NewObserver(e *Engine, name string, rule func()) *Observer {
	n := e.newNode(name, KindObserver)
	n.rule = func() any { rule(); return nil }
	return &Observer{node: n}
}

// EnsureRecalc forces the observer to be scheduled for recomputation.
func (o *Observer) EnsureRecalc() { o.node.engine.ensureRecalc(o.node) }
