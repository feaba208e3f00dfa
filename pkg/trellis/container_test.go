package trellis_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/trellis/pkg/trellis"
)

func TestObservableMapTracksAddedChangedDeleted(t *testing.T) {
	e := trellis.NewEngine()
	m := trellis.NewObservableMap[string, int](e, "scores")

	var added, changed, deleted []string
	trellis.NewObserver(e, "tap", func() {
		added = append(added, m.Added().Read()...)
		changed = append(changed, m.Changed().Read()...)
		deleted = append(deleted, m.Deleted().Read()...)
	}).EnsureRecalc()

	require.NoError(t, m.Set("alice", 1))
	require.Equal(t, []string{"alice"}, added)

	require.NoError(t, m.Set("alice", 1)) // equal value, no-op
	require.Equal(t, []string{"alice"}, added)
	require.Empty(t, changed)

	require.NoError(t, m.Set("alice", 2))
	require.Equal(t, []string{"alice"}, changed)

	require.NoError(t, m.Delete("alice"))
	require.Equal(t, []string{"alice"}, deleted)

	v, ok := m.Get("alice")
	require.False(t, ok)
	require.Zero(t, v)
}

func TestObservableSetAddedRemoved(t *testing.T) {
	e := trellis.NewEngine()
	s := trellis.NewObservableSet[int](e, "tags")

	var added, removed []int
	trellis.NewObserver(e, "tap", func() {
		added = append(added, s.Added().Read()...)
		removed = append(removed, s.Removed().Read()...)
	}).EnsureRecalc()

	require.NoError(t, s.Add(1))
	require.NoError(t, s.Add(1)) // no-op
	require.True(t, s.Has(1))
	require.Equal(t, 1, s.Len())
	require.Equal(t, []int{1}, added)

	require.NoError(t, s.Remove(1))
	require.False(t, s.Has(1))
	require.Equal(t, []int{1}, removed)
}

func TestObservableSeqPushSetPop(t *testing.T) {
	e := trellis.NewEngine()
	seq := trellis.NewObservableSeq[float64](e, "readings")

	var changedIdx []int
	trellis.NewObserver(e, "tap", func() {
		changedIdx = append(changedIdx, seq.Changed().Read()...)
	}).EnsureRecalc()

	require.NoError(t, seq.Push(10.0))
	require.Equal(t, 1, seq.Len())
	require.Equal(t, []int{0}, changedIdx, "Push touches index 0")

	require.NoError(t, seq.Set(0, 10.0)) // equal value, no-op
	require.Equal(t, []int{0}, changedIdx, "a no-op Set must not mark the index changed")

	require.NoError(t, seq.Set(0, 10.4))
	require.Equal(t, []int{0, 0}, changedIdx)

	require.Equal(t, 10.4, seq.At(0))

	popped, err := seq.Pop()
	require.NoError(t, err)
	require.Equal(t, 10.4, popped)
	require.Equal(t, 0, seq.Len())
}

func TestObservableSeqPopEmptyIsInvalidOperation(t *testing.T) {
	e := trellis.NewEngine()
	seq := trellis.NewObservableSeq[int](e, "empty")

	_, err := seq.Pop()
	require.Error(t, err)
	var ioErr *trellis.InvalidOperation
	require.ErrorAs(t, err, &ioErr)
}

func TestObservableMapSnapshotIsACopy(t *testing.T) {
	e := trellis.NewEngine()
	m := trellis.NewObservableMap[string, int](e, "scores")
	require.NoError(t, m.Set("a", 1))
	require.NoError(t, m.Set("b", 2))

	snap := m.Snapshot()
	snap["a"] = 999
	v, _ := m.Get("a")
	require.Equal(t, 1, v, "mutating the snapshot must not affect the map")

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	require.Equal(t, []string{"a", "b"}, keys)
}
