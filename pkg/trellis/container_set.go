package trellis

// ObservableSet is a reactive unordered collection of distinct elements,
// the set-shaped sibling of ObservableMap: Added and Removed are Discrete
// cells that pulse for the one sweep in which an element actually entered
// or left the set.
//
// Grounded the same way as ObservableMap, on local_constraint_store.go's
// copy-on-write store discipline, narrowed to presence rather than
// key/value pairs.
type ObservableSet[T comparable] struct {
	engine *Engine
	name   string
	data   map[T]struct{}

	added   *Cell[[]T]
	removed *Cell[[]T]

	sectionVersion uint64
	pendingAdded   []T
	pendingRemoved []T
}

// NewObservableSet creates an empty observable set.
func NewObservableSet[T comparable](e *Engine, name string) *ObservableSet[T] {
	s := &ObservableSet[T]{engine: e, name: name, data: map[T]struct{}{}}
	s.added = NewInputDiscrete[[]T](e, name+".Added", nil)
	s.removed = NewInputDiscrete[[]T](e, name+".Removed", nil)
	return s
}

// Added is a Discrete cell listing the elements inserted during the sweep
// presently in progress.
func (s *ObservableSet[T]) Added() *Cell[[]T] { return s.added }

// Removed is a Discrete cell listing the elements removed during the
// sweep presently in progress.
func (s *ObservableSet[T]) Removed() *Cell[[]T] { return s.removed }

// Has reports whether v is currently a member.
func (s *ObservableSet[T]) Has(v T) bool {
	_, ok := s.data[v]
	return ok
}

// Len returns the number of members presently stored.
func (s *ObservableSet[T]) Len() int { return len(s.data) }

// Members returns a snapshot slice of the set's current elements, in no
// particular order.
func (s *ObservableSet[T]) Members() []T {
	out := make([]T, 0, len(s.data))
	for v := range s.data {
		out = append(out, v)
	}
	return out
}

// Add inserts v. Adding an already-present element is a no-op.
func (s *ObservableSet[T]) Add(v T) error {
	return s.engine.Atomically(func() error {
		s.resetPendingIfNewSection()
		if _, ok := s.data[v]; ok {
			return nil
		}
		s.engine.OnUndo(func(args ...any) { delete(s.data, args[0].(T)) }, v)
		s.data[v] = struct{}{}
		s.pendingAdded = append(s.pendingAdded, v)
		s.engine.forceWrite(s.added.node, append([]T(nil), s.pendingAdded...))
		return nil
	})
}

// Remove deletes v. Removing an absent element is a no-op.
func (s *ObservableSet[T]) Remove(v T) error {
	return s.engine.Atomically(func() error {
		s.resetPendingIfNewSection()
		if _, ok := s.data[v]; !ok {
			return nil
		}
		s.engine.OnUndo(func(args ...any) { s.data[args[0].(T)] = struct{}{} }, v)
		delete(s.data, v)
		s.pendingRemoved = append(s.pendingRemoved, v)
		s.engine.forceWrite(s.removed.node, append([]T(nil), s.pendingRemoved...))
		return nil
	})
}

func (s *ObservableSet[T]) resetPendingIfNewSection() {
	if s.sectionVersion == s.engine.version {
		return
	}
	s.sectionVersion = s.engine.version
	s.pendingAdded = nil
	s.pendingRemoved = nil
}
