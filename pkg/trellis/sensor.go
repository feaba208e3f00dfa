package trellis

// sensor.go bridges the reactive graph to the outside world. A Sensor cell
// is a subject with no rule of its own: its value only ever changes
// because external code pushes a reading in through SensorPush (or, for a
// polled sensor, because the scheduler re-invokes its poll function), and
// a pushed sensor only subscribes to its external source ("connects")
// while at least one listener still cares. An Effector
// is the mirror image, an Observer specialization that forwards whatever
// its rule computes out to a caller-supplied sink.
//
// Grounded on fd_monitor.go, whose SolverMonitor is deliberately
// nil-safe and side-effect-only — generalized here from "an optional
// stats collector bolted onto the solver" to "an optional, lazily
// (dis)connected external data source bolted onto a cell".

// NewSensor creates a cell whose value arrives exclusively through
// SensorPush. connect is invoked the moment the sensor gains its first
// listener and should arrange for future readings to arrive (e.g.
// subscribe to a channel, start a goroutine); it returns an opaque key
// passed back to disconnect when the last listener goes away.
func NewSensor[T any](e *Engine, name string, initial T, connect func(push func(T)) any, disconnect func(key any)) *Cell[T] {
	n := e.newNode(name, KindSensor)
	n.value = initial
	n.prior = initial
	n.hasValue = true
	n.version = e.version
	n.connect = func(node *cellNode) any {
		return connect(func(v T) {
			_ = SensorPush(e, &Cell[T]{node: node}, v)
		})
	}
	if disconnect != nil {
		n.disconnect = func(_ *cellNode, key any) { disconnect(key) }
	}
	return &Cell[T]{node: n}
}

// SensorPush delivers a new reading to a Sensor cell from outside the
// engine, opening an atomic section exactly like any other Modifier.
func SensorPush[T any](e *Engine, c *Cell[T], v T) error {
	return e.Atomically(func() error {
		return e.applyWrite(c.node, v, nil)
	})
}

// NewPolledSensor creates a Sensor cell whose reading is fetched by
// calling poll synchronously — no subscription plumbing, suited to a
// cheap register read rather than an asynchronous source. A rule that
// reads this cell and then calls Engine.Poll() asks the scheduler to
// re-invoke poll on its next pass.
func NewPolledSensor[T any](e *Engine, name string, poll func() T) *Cell[T] {
	n := e.newNode(name, KindSensor)
	v := poll()
	n.value = v
	n.prior = v
	n.hasValue = true
	n.version = e.version
	n.pollFn = func() any { return poll() }
	return &Cell[T]{node: n}
}

// NewEffector creates an observer-like cell whose rule's return value is
// forwarded to sink whenever it is recomputed. Errors from sink are logged
// rather than propagated: a sink failure never aborts a run.
func NewEffector[T any](e *Engine, name string, rule func() T, sink func(T) error) *Observer {
	n := e.newNode(name, KindEffector)
	n.rule = func() any {
		v := rule()
		if err := sink(v); err != nil {
			e.log.Warn().Err(err).Str("cell", n.displayName()).Msg("effector sink failed")
		}
		return nil
	}
	return &Observer{node: n}
}
