package trellis

// Attrs is a per-instance cache of cells keyed by attribute name, letting a
// domain type declare its reactive fields as ordinary struct methods
// instead of wiring up cell construction in a constructor: the first call
// for a given name builds the cell, every later call returns the cached
// one. This is sugar over NewValue/NewComputed/NewMaintain/NewObserver/
// NewEffector/NewPipe, not a new mechanism of its own.
//
// Grounded on the AnatoleLucet/sig reference's Context, which likewise
// memoizes per-identity reactive state instead of requiring the caller to
// thread cell handles through by hand, generalized here from a single
// global context to one cache per domain object.
type Attrs struct {
	engine *Engine
	cache  map[string]any
}

// NewAttrs creates an empty attribute cache bound to e. Embed an *Attrs
// field in a domain struct and call the builder functions below from its
// methods.
func NewAttrs(e *Engine) *Attrs {
	return &Attrs{engine: e, cache: map[string]any{}}
}

func cached[T any](a *Attrs, name string, build func() T) T {
	if v, ok := a.cache[name]; ok {
		return v.(T)
	}
	v := build()
	a.cache[name] = v
	return v
}

// Attr declares (or fetches) a plain writable Value attribute.
func Attr[T any](a *Attrs, name string, initial T) *Cell[T] {
	return cached(a, name, func() *Cell[T] { return NewValue(a.engine, name, initial) })
}

// Compute declares (or fetches) a read-only Computed attribute.
func Compute[T any](a *Attrs, name string, rule func() T) *Cell[T] {
	return cached(a, name, func() *Cell[T] { return NewComputed(a.engine, name, rule) })
}

// Maintain declares (or fetches) a Computed attribute whose value an
// external Write can override.
func Maintain[T any](a *Attrs, name string, rule func() T) *Cell[T] {
	return cached(a, name, func() *Cell[T] { return NewMaintain(a.engine, name, rule) })
}

// Perform declares (or fetches) a side-effecting Observer attribute: rule
// runs for effect only, with its return value discarded.
func Perform(a *Attrs, name string, rule func()) *Observer {
	return cached(a, name, func() *Observer { return NewObserver(a.engine, name, rule) })
}

// ObserverAttr declares (or fetches) an Effector attribute: rule's return
// value is forwarded to sink every time it is recomputed.
func ObserverAttr[T any](a *Attrs, name string, rule func() T, sink func(T) error) *Observer {
	return cached(a, name, func() *Observer { return NewEffector(a.engine, name, rule, sink) })
}

// Todo declares (or fetches) a Pipe attribute for handing work off to
// Modifier-side code and collecting its result on a later sweep.
func Todo[Req, Resp any](a *Attrs, name string, zeroReq Req, zeroResp Resp) *Pipe[Req, Resp] {
	return cached(a, name, func() *Pipe[Req, Resp] { return NewPipe(a.engine, name, zeroReq, zeroResp) })
}

// Make declares (or fetches) a Constant attribute: a value fixed for the
// lifetime of the instance, never writable and never counted as a subject.
func Make[T any](a *Attrs, name string, v T) *Cell[T] {
	return cached(a, name, func() *Cell[T] { return NewConstant(a.engine, name, v) })
}

// Eager forces a cell attribute to be scheduled for its first
// recomputation immediately rather than waiting for a caller's first
// Read. It accepts only a *Cell; the *Observer returned by Perform and
// ObserverAttr is scheduled through its own EnsureRecalc method instead.
func Eager[T any](c *Cell[T]) *Cell[T] {
	c.EnsureRecalc()
	return c
}
