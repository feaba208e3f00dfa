package trellis

// ScopeManager gives rules an RAII-style acquire/release pattern tied to
// the lifetime of the current atomic section. Enter runs as soon as the
// manager is registered; Exit runs
// when the section ends, in LIFO order of registration, and is passed the
// section's outcome (nil on commit).
//
// Grounded on constraint_manager.go's enter/exit-shaped scope handlers
// around constraint-store mutation, generalized from "constraint
// scopes" to arbitrary caller-supplied resources.
type ScopeManager interface {
	Enter()
	Exit(err error) error
}

type undoAction struct {
	fn   func(args ...any)
	args []any
}

// writeRecord is the STM substrate's memory of the single value written
// to a cell so far this section, used to detect a second, unequal write.
type writeRecord struct {
	value    any
	fromRule *cellNode // nil if the write originated outside any rule
}

// section is one atomic-section stack frame. Sections nest: Engine.Atomically
// called while already inside a section simply joins the existing one
// (shares its undo log and writer bookkeeping).
//
// Grounded on local_constraint_store.go: a store that is always cloned
// before mutation and only ever swapped in whole, never mutated through
// an old reference — generalized here from "clone the whole store" to
// "log the inverse of each individual mutation", an undo-log discipline
// that supports mutating one long-lived Engine in place.
type section struct {
	undoLog  []undoAction
	managers []ScopeManager
	seen     map[ScopeManager]bool
	writers  map[*cellNode]writeRecord
}

func newSection() *section {
	return &section{
		seen:    map[ScopeManager]bool{},
		writers: map[*cellNode]writeRecord{},
	}
}

// Savepoint is an opaque token capturing the current undo-log depth,
// usable to partially rewind an atomic section.
type Savepoint struct {
	depth int
}

// Atomically runs f within a new or joined atomic section. If the
// engine is already inside a section, f just runs within it. Otherwise a
// new section is opened: on a nil return the section commits (registered
// managers' Exit(nil) run in LIFO order and the undo log is discarded); on
// a non-nil return or panic the section aborts (the undo log replays in
// reverse, then managers' Exit(err) run in LIFO order) and the error
// propagates to the caller.
func (e *Engine) Atomically(f func() error) (err error) {
	if e.currentSection != nil {
		return e.runGuarded(f)
	}

	e.version++
	e.stats.Sections++
	e.currentSection = newSection()
	e.state = stateBuilding
	e.log.Trace().Uint64("version", e.version).Msg("atomic section opened")

	defer func() {
		sec := e.currentSection
		if err != nil {
			e.state = stateRollingBack
			e.rollbackSection(sec, err)
		} else {
			e.state = stateCommitting
			e.commitSection(sec)
		}
		e.currentSection = nil
		e.state = stateInactive
	}()

	err = e.runGuarded(f)
	if err == nil {
		err = e.runSweep()
	}
	return err
}

// runGuarded executes f, converting a panic raised by user code into a
// UserError.
func (e *Engine) runGuarded(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ue, ok := r.(*UserError); ok {
				err = ue
				return
			}
			if cause, ok := r.(error); ok {
				err = &UserError{Cause: wrapf(cause, "rule body panicked")}
				return
			}
			err = &UserError{Cause: r}
		}
	}()
	return f()
}

func (e *Engine) commitSection(sec *section) {
	for i := len(sec.managers) - 1; i >= 0; i-- {
		if exitErr := sec.managers[i].Exit(nil); exitErr != nil {
			e.log.Warn().Err(exitErr).Msg("scope manager exit failed during commit")
		}
	}
	e.log.Trace().Int("undo_entries", len(sec.undoLog)).Msg("atomic section committed")
}

func (e *Engine) rollbackSection(sec *section, cause error) {
	e.replayUndo(sec, 0)
	for i := len(sec.managers) - 1; i >= 0; i-- {
		if exitErr := sec.managers[i].Exit(cause); exitErr != nil {
			cause = exitErr
		}
	}
	// Nothing queued during a section that never commits should survive
	// it: a fresh section starts from a clean scheduler, never picking up
	// half-scheduled work from a section that aborted before its sweep
	// ran (or aborted mid-sweep).
	for _, n := range e.ready {
		n.queued = false
	}
	e.ready = nil
	for _, n := range e.readyObservers {
		n.queued = false
	}
	e.readyObservers = nil
	e.log.Debug().Err(cause).Msg("atomic section rolled back")
}

// replayUndo replays sec's undo log in reverse insertion order down to
// (but not including) index floor. Undo callables must not raise; if one
// does, the remaining entries below it are skipped rather than the engine
// propagating a second error.
func (e *Engine) replayUndo(sec *section, floor int) {
	for i := len(sec.undoLog) - 1; i >= floor; i-- {
		entry := sec.undoLog[i]
		if ok := e.runUndoEntry(entry); !ok {
			break
		}
	}
	sec.undoLog = sec.undoLog[:floor]
}

func (e *Engine) runUndoEntry(entry undoAction) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("undo action panicked; skipping remaining undo entries")
			ok = false
		}
	}()
	entry.fn(entry.args...)
	return true
}

// Manage registers a scope manager for the current atomic section. Enter
// runs immediately unless this manager is already registered in this
// section (duplicate registrations are idempotent); Exit runs at section
// end. Calling Manage outside any atomic section is an InvalidOperation.
func (e *Engine) Manage(m ScopeManager) error {
	if e.currentSection == nil {
		return &InvalidOperation{Op: "Manage", Reason: "no atomic section is open"}
	}
	sec := e.currentSection
	if sec.seen[m] {
		return nil
	}
	sec.seen[m] = true
	sec.managers = append(sec.managers, m)
	m.Enter()
	return nil
}

// OnUndo appends an entry to the current section's undo log. Outside any
// atomic section, OnUndo does nothing: no section is opened and the entry
// is not recorded.
func (e *Engine) OnUndo(fn func(args ...any), args ...any) {
	if e.currentSection == nil {
		// No section is open: there is nothing to undo against, so treat
		// this as a no-op registration scope of one. Rules always run
		// inside a section by construction, so this path is only reached
		// by direct, section-less API misuse; keep it harmless.
		return
	}
	e.currentSection.undoLog = append(e.currentSection.undoLog, undoAction{fn: fn, args: args})
}

// Savepoint records the current undo-log depth of the active section.
func (e *Engine) Savepoint() Savepoint {
	if e.currentSection == nil {
		return Savepoint{}
	}
	return Savepoint{depth: len(e.currentSection.undoLog)}
}

// RollbackTo replays and truncates the active section's undo log back to
// a previously recorded savepoint.
func (e *Engine) RollbackTo(sp Savepoint) {
	if e.currentSection == nil {
		return
	}
	e.replayUndo(e.currentSection, sp.depth)
}

// InCleanup is true while commit/abort is executing, for observers that
// must behave differently during teardown.
func (e *Engine) InCleanup() bool {
	return e.state == stateCommitting || e.state == stateRollingBack
}

// SetAttr is sugar that records the prior value of *ptr as an undo action
// before writing v through it, generalizing local_constraint_store.go's
// copy-then-mutate discipline to a single addressable field.
func SetAttr[T any](e *Engine, ptr *T, v T) {
	old := *ptr
	e.OnUndo(func(args ...any) { *ptr = args[0].(T) }, old)
	*ptr = v
}
