package trellis

import "github.com/google/go-cmp/cmp"

// ObservableSeq is a reactive ordered sequence: Changed reports every
// index touched by Push, Pop or an unequal Set during the current atomic
// section, in the order touched, even if a later Set restored the
// original element. Len, At and Snapshot are plain reads that record no
// dependency, so a rule that must re-run when the length changes has to
// read Changed.
//
// Pop on an empty sequence returns InvalidOperation rather than a zero
// value plus an ignorable bool, matching constraint_types.go's preference
// for a typed error over a silent sentinel.
type ObservableSeq[T any] struct {
	engine *Engine
	name   string
	data   []T

	changed *Cell[[]int]

	sectionVersion uint64
	pendingChanged []int
}

// NewObservableSeq creates an empty observable sequence.
func NewObservableSeq[T any](e *Engine, name string) *ObservableSeq[T] {
	s := &ObservableSeq[T]{engine: e, name: name}
	s.changed = NewInputDiscrete[[]int](e, name+".Changed", nil)
	return s
}

// Changed is a Discrete cell listing the indices touched during the sweep
// presently in progress (insertions and removals mark every index at or
// after the edit point, since they shift everything that follows).
func (s *ObservableSeq[T]) Changed() *Cell[[]int] { return s.changed }

// Len returns the sequence's current length.
func (s *ObservableSeq[T]) Len() int { return len(s.data) }

// At returns the element at index i.
func (s *ObservableSeq[T]) At(i int) T { return s.data[i] }

// Snapshot returns a copy of the sequence's current contents.
func (s *ObservableSeq[T]) Snapshot() []T {
	return append([]T(nil), s.data...)
}

// Push appends v to the end of the sequence.
func (s *ObservableSeq[T]) Push(v T) error {
	return s.engine.Atomically(func() error {
		s.resetPendingIfNewSection()
		idx := len(s.data)
		s.engine.OnUndo(func(args ...any) {
			s.data = s.data[:args[0].(int)]
		}, idx)
		s.data = append(s.data, v)
		s.markChanged(idx)
		return nil
	})
}

// Pop removes and returns the last element. Pop on an empty sequence is
// an InvalidOperation.
func (s *ObservableSeq[T]) Pop() (T, error) {
	var zero T
	var out T
	err := s.engine.Atomically(func() error {
		s.resetPendingIfNewSection()
		if len(s.data) == 0 {
			return &InvalidOperation{Op: "Pop", Reason: "sequence " + s.name + " is empty"}
		}
		idx := len(s.data) - 1
		removed := s.data[idx]
		s.engine.OnUndo(func(args ...any) {
			s.data = append(s.data, args[0].(T))
		}, removed)
		s.data = s.data[:idx]
		out = removed
		s.markChanged(idx)
		return nil
	})
	if err != nil {
		return zero, err
	}
	return out, nil
}

// Set replaces the element at index i. Setting to an equal value is a
// no-op.
func (s *ObservableSeq[T]) Set(i int, v T) error {
	return s.engine.Atomically(func() error {
		s.resetPendingIfNewSection()
		if cmp.Equal(s.data[i], v) {
			return nil
		}
		old := s.data[i]
		s.engine.OnUndo(func(args ...any) {
			s.data[args[0].(int)] = args[1].(T)
		}, i, old)
		s.data[i] = v
		s.markChanged(i)
		return nil
	})
}

func (s *ObservableSeq[T]) markChanged(idx int) {
	s.pendingChanged = append(s.pendingChanged, idx)
	s.engine.forceWrite(s.changed.node, append([]int(nil), s.pendingChanged...))
}

func (s *ObservableSeq[T]) resetPendingIfNewSection() {
	if s.sectionVersion == s.engine.version {
		return
	}
	s.sectionVersion = s.engine.version
	s.pendingChanged = nil
}
