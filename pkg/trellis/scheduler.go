package trellis

// scheduler.go implements the recalculation sweep. A write enqueues
// only the subject's direct listeners; each enqueued cell is recomputed
// in turn, and whenever its rule reads a subject that is itself still
// pending, that subject is settled first, recursively, before the rule
// sees its value. This makes dependency order self-correcting regardless
// of which order cells happen to sit in the queue — a diamond-shaped
// graph (the "pentagram of death") converges without ever exposing a
// half-updated intermediate to a rule downstream of it — while a genuine
// cycle (a cell whose recompute is already in progress being read again
// through another cell's rule) is caught and reported rather than
// stack-overflowing. A rule reading its own cell directly is a self-read,
// not a cycle (see readNode).
//
// Once the queue is empty, the observer phase runs (so every side effect
// sees a fully settled graph), then the discrete-reset phase, and the
// whole cycle repeats if either phase queued more work, bounded by the
// convergence budget.
//
// Grounded on propagation.go's fixed-point loop (run constraints to
// quiescence, re-run any constraint whose variables changed),
// generalized from "propagate until no constraint fires" to "settle
// until no cell is still pending".

// enqueue places n on the ready queue, if it is not already queued.
// Observer cells go on their own queue since they are only recomputed in
// their dedicated phase, never inline while other cells are settling.
func (e *Engine) enqueue(n *cellNode) {
	if n.queued {
		return
	}
	n.queued = true
	if n.kind == KindObserver {
		e.readyObservers = append(e.readyObservers, n)
		return
	}
	e.ready = append(e.ready, n)
}

// enqueueListeners enqueues every live listener of subject — called after
// a write or recompute lands, so dependents settle this sweep.
func (e *Engine) enqueueListeners(subject *cellNode) {
	iterListenersOf(subject, func(l *cellNode) {
		if l.kind != KindConstant {
			e.enqueue(l)
		}
	})
}

// runSweep drives the ready queue to quiescence, then the observer phase,
// then the discrete-reset phase, repeating while any phase left more work
// queued, up to the engine's convergence budget. Called once per top-level
// Atomically, after the caller's function body has returned successfully.
func (e *Engine) runSweep() error {
	budget := e.convergenceBudget
	for {
		if budget <= 0 {
			e.stats.Conflicts++
			return &ConflictError{Budget: e.convergenceBudget}
		}
		budget--
		e.stats.SweepPasses++

		if err := e.drainReady(); err != nil {
			return err
		}

		observed, err := e.runObservers()
		if err != nil {
			return err
		}
		reset := e.resetDiscretes()

		if !observed && !reset && len(e.ready) == 0 {
			return nil
		}
	}
}

// drainReady processes the ready queue until empty. A cell already
// settled by another cell's recursive read (queued was cleared out from
// under it) is skipped rather than recomputed twice.
func (e *Engine) drainReady() error {
	for len(e.ready) > 0 {
		n := e.ready[0]
		e.ready = e.ready[1:]
		if !n.queued {
			continue
		}
		if err := e.recomputeGuarded(n); err != nil {
			return err
		}
	}
	return nil
}

// recomputeGuarded wraps recompute with the conflict-propagation plumbing
// Atomically's defer expects: a ConflictError or UserError raised here
// (directly or via a panic from deep in a recursive settle) aborts the
// whole section.
func (e *Engine) recomputeGuarded(n *cellNode) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *ConflictError:
				err = v
			case *UserError:
				err = v
			case error:
				err = &UserError{Cell: n.displayName(), Cause: v}
			default:
				err = &UserError{Cell: n.displayName(), Cause: r}
			}
		}
	}()

	if n.pollFn != nil {
		// A polled sensor has no rule; reaching the ready queue at all
		// (forced dirty, or another rule's Poll()) means refresh it now.
		n.queued = false
		e.pollSensor(n)
		n.forcedDirty = false
		n.wantsPoll = false
		return nil
	}

	e.recompute(n)
	n.forcedDirty = false
	if n.wantsRepeat {
		n.wantsRepeat = false
		e.enqueue(n)
	}
	if n.wantsPoll {
		n.wantsPoll = false
		e.ensureRecalcSubjectsPoll(n)
	}
	return nil
}

// ensureRecalcSubjectsPoll re-enqueues any polled-sensor subject of n so
// it refreshes on this same pass, fulfilling a rule's call to Poll().
func (e *Engine) ensureRecalcSubjectsPoll(n *cellNode) {
	for _, s := range n.subjects {
		if s.pollFn != nil {
			e.enqueue(s)
		}
	}
}

// recompute re-runs n's rule (if it has one), re-linking its subjects
// from scratch. Any subject read during the rule that is itself still
// queued is settled first via readNode's recursive call back into this
// same function, so rules never observe a half-updated subject. A rule
// whose own recompute is already on the call stack (a genuine dependency
// cycle, not just a reconverging diamond) causes a panic that unwinds to
// the nearest recomputeGuarded/Atomically boundary as a ConflictError.
func (e *Engine) recompute(n *cellNode) {
	if n.rule == nil {
		n.queued = false
		return
	}
	if n.computing {
		panic(&ConflictError{Cell: n.displayName(), Cycle: true})
	}
	n.computing = true
	defer func() { n.computing = false }()

	clearSubjects(n)
	prevCurrent := e.current
	e.current = n
	// prior must be in place before rule() runs: a self-read inside the
	// rule body needs to see the value as of the end of the last
	// successful recomputation, and n.value itself still holds exactly
	// that until the assignment below overwrites it.
	n.prior = n.value
	newVal := n.rule()
	e.current = prevCurrent

	n.value = newVal
	n.hasValue = true
	n.version = e.version
	n.queued = false
	n.layer = e.maxSubjectLayer(n) + 1 // diagnostic depth only; see DebugString.
	e.stats.Recomputes++
	if n.layer > e.stats.MaxLayer {
		e.stats.MaxLayer = n.layer
	}
	e.enqueueListeners(n)

	// Apply every write this rule issued during its run, to itself or to
	// any other cell, now that the rule has returned.
	for _, target := range e.allNodes {
		if target.hasPendingWrite && target.pendingWrite.from == n {
			if err := e.applyPendingWrite(target); err != nil {
				panic(err)
			}
		}
	}
}

// pollSensor re-fetches a polled sensor's external reading synchronously
// and, if it changed, records it and enqueues listeners.
func (e *Engine) pollSensor(n *cellNode) {
	if n.pollFn == nil {
		return
	}
	v := n.pollFn()
	if n.hasValue && n.equal(n.value, v) {
		return
	}
	n.prior = n.value
	n.value = v
	n.hasValue = true
	n.version = e.version
	e.enqueueListeners(n)
}

func (e *Engine) maxSubjectLayer(n *cellNode) int {
	max := -1
	for _, s := range n.subjects {
		if s.layer > max {
			max = s.layer
		}
	}
	return max
}

// applyPendingWrite applies a write a rule issued against itself or
// another cell during its own execution step, now that the rule has
// returned.
func (e *Engine) applyPendingWrite(n *cellNode) error {
	if !n.hasPendingWrite {
		return nil
	}
	pw := n.pendingWrite
	n.pendingWrite = nil
	n.hasPendingWrite = false
	return e.applyWrite(n, pw.value, pw.from)
}

// runObservers recomputes every queued observer cell, last in the sweep
// so they see a fully settled graph. Returns true if any observer ran.
func (e *Engine) runObservers() (bool, error) {
	if len(e.readyObservers) == 0 {
		return false, nil
	}
	queue := e.readyObservers
	e.readyObservers = nil
	for _, n := range queue {
		if !n.queued {
			continue
		}
		if err := e.recomputeGuarded(n); err != nil {
			return true, err
		}
	}
	return true, nil
}

// resetDiscretes snaps every Discrete cell that holds a non-default value
// back to its default, enqueuing its listeners so the reset itself
// propagates. Returns true if any cell was reset, so the caller knows to
// run another pass.
func (e *Engine) resetDiscretes() bool {
	reset := false
	for _, n := range e.discretes {
		if n.equal(n.value, n.defaultVal) {
			continue
		}
		n.prior = n.value
		n.value = n.defaultVal
		n.version = e.version
		e.enqueueListeners(n)
		reset = true
	}
	return reset
}
