package trellis

import "github.com/google/go-cmp/cmp"

// ObservableMap is a reactive associative container. Mutations go through
// Set/Delete, each wrapped in an atomic section; the keys touched during
// that section are exposed to rules as three ordinary Discrete cells
// (Added, Changed, Deleted) that pulse for exactly the one sweep in which
// the mutation happened, then reset — the same shape NewDiscrete already
// gives a single value, here fanned out per key.
//
// Grounded on local_constraint_store.go's discipline of cloning its
// backing map before every mutating operation rather than mutating
// through a shared reference; ObservableMap keeps that copy-on-write
// discipline for the entries themselves (via Engine.OnUndo) while adding
// a per-key change classification the original store never needed.
type ObservableMap[K comparable, V any] struct {
	engine *Engine
	name   string
	data   map[K]V

	added   *Cell[[]K]
	changed *Cell[[]K]
	deleted *Cell[[]K]

	sectionVersion uint64
	pendingAdded   []K
	pendingChanged []K
	pendingDeleted []K
}

// NewObservableMap creates an empty observable map.
func NewObservableMap[K comparable, V any](e *Engine, name string) *ObservableMap[K, V] {
	m := &ObservableMap[K, V]{engine: e, name: name, data: map[K]V{}}
	m.added = NewInputDiscrete[[]K](e, name+".Added", nil)
	m.changed = NewInputDiscrete[[]K](e, name+".Changed", nil)
	m.deleted = NewInputDiscrete[[]K](e, name+".Deleted", nil)
	return m
}

// Added is a Discrete cell listing the keys inserted for the first time
// during the sweep presently in progress.
func (m *ObservableMap[K, V]) Added() *Cell[[]K] { return m.added }

// Changed is a Discrete cell listing the keys whose value was replaced
// with an unequal value during the sweep presently in progress.
func (m *ObservableMap[K, V]) Changed() *Cell[[]K] { return m.changed }

// Deleted is a Discrete cell listing the keys removed during the sweep
// presently in progress.
func (m *ObservableMap[K, V]) Deleted() *Cell[[]K] { return m.deleted }

// Get reads the current committed value for k. Get does not participate in
// dependency tracking; read Added/Changed/Deleted (or Snapshot from inside
// a rule that also reads one of those) to react to mutations.
func (m *ObservableMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.data[k]
	return v, ok
}

// Len returns the number of entries presently stored.
func (m *ObservableMap[K, V]) Len() int { return len(m.data) }

// Snapshot returns a shallow copy of the map's current contents.
func (m *ObservableMap[K, V]) Snapshot() map[K]V {
	out := make(map[K]V, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// Set inserts or replaces k's value, opening an atomic section if none is
// already open. A set to an equal value is a no-op; it neither disturbs
// Changed nor requeues listeners.
func (m *ObservableMap[K, V]) Set(k K, v V) error {
	return m.engine.Atomically(func() error {
		m.resetPendingIfNewSection()
		old, existed := m.data[k]
		if existed && cmp.Equal(old, v) {
			return nil
		}
		m.engine.OnUndo(func(args ...any) {
			k, existed, old := args[0].(K), args[1].(bool), args[2].(V)
			if existed {
				m.data[k] = old
			} else {
				delete(m.data, k)
			}
		}, k, existed, old)
		m.data[k] = v
		if existed {
			m.pendingChanged = append(m.pendingChanged, k)
			m.engine.forceWrite(m.changed.node, append([]K(nil), m.pendingChanged...))
		} else {
			m.pendingAdded = append(m.pendingAdded, k)
			m.engine.forceWrite(m.added.node, append([]K(nil), m.pendingAdded...))
		}
		return nil
	})
}

// Delete removes k, if present. Deleting an absent key is a no-op.
func (m *ObservableMap[K, V]) Delete(k K) error {
	return m.engine.Atomically(func() error {
		m.resetPendingIfNewSection()
		old, existed := m.data[k]
		if !existed {
			return nil
		}
		m.engine.OnUndo(func(args ...any) {
			m.data[args[0].(K)] = args[1].(V)
		}, k, old)
		delete(m.data, k)
		m.pendingDeleted = append(m.pendingDeleted, k)
		m.engine.forceWrite(m.deleted.node, append([]K(nil), m.pendingDeleted...))
		return nil
	})
}

// resetPendingIfNewSection clears last section's change lists the first
// time this map is touched in a newer atomic section; the Discrete cells
// themselves already snapped back to their nil default at the end of that
// sweep, so this just keeps the map's own bookkeeping in step.
func (m *ObservableMap[K, V]) resetPendingIfNewSection() {
	if m.sectionVersion == m.engine.version {
		return
	}
	m.sectionVersion = m.engine.version
	m.pendingAdded = nil
	m.pendingChanged = nil
	m.pendingDeleted = nil
}
