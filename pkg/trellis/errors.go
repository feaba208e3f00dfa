package trellis

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConflictError reports mutually inconsistent writes to the same cell within
// one atomic section, or a convergence iteration budget exceeded while
// resolving a value cycle. Mirrors constraint_types.go's
// ConstraintViolationError: a concrete, introspectable error value rather
// than a string sentinel.
type ConflictError struct {
	// Cell names the cell that received conflicting writes, if known.
	Cell string
	First, Second any
	// Budget is set instead of First/Second when the error represents an
	// exceeded convergence iteration budget rather than a dual write.
	Budget int
	// Cycle is set instead of First/Second when the error represents a
	// genuine dependency cycle (a rule reading a cell whose own recompute
	// is already in progress), as opposed to a diamond-shaped graph that
	// merely reconverges.
	Cycle bool
}

func (e *ConflictError) Error() string {
	switch {
	case e.Budget > 0:
		return fmt.Sprintf("trellis: convergence budget of %d sweeps exceeded on cell %q", e.Budget, e.Cell)
	case e.Cycle:
		return fmt.Sprintf("trellis: cell %q depends on its own recomputation", e.Cell)
	default:
		return fmt.Sprintf("trellis: conflicting writes to cell %q: %v != %v", e.Cell, e.First, e.Second)
	}
}

// ReadOnlyError reports a write to a rule-backed cell with no writable
// override, or to a Constant cell.
type ReadOnlyError struct {
	Cell string
	Kind Kind
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("trellis: cell %q of kind %s is read-only", e.Cell, e.Kind)
}

// InvalidOperation reports calling an API outside the state it requires.
// Engine.Manage returns it when no atomic section is open, and
// ObservableSeq.Pop returns it on an empty sequence; no other API in this
// package returns it. Repeat and Poll called outside a rule are silent
// no-ops, Pop on a non-empty sequence succeeds, and there is no .Future
// accessor.
type InvalidOperation struct {
	Op     string
	Reason string
}

func (e *InvalidOperation) Error() string {
	return fmt.Sprintf("trellis: invalid operation %q: %s", e.Op, e.Reason)
}

// UserError wraps an arbitrary panic value recovered from a rule body, so
// that it can propagate out of Engine.Atomically as a regular error. When
// Atomically's own guard recovers a panic whose value is an error, that
// error is wrapped with a stack trace first; other panic values are kept
// as they are.
type UserError struct {
	Cell  string
	Cause any
}

func (e *UserError) Error() string {
	return fmt.Sprintf("trellis: rule for cell %q panicked: %v", e.Cell, e.Cause)
}

func (e *UserError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

func wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}
