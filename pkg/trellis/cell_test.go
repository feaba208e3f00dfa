package trellis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/trellis/pkg/trellis"
)

func TestValueReadWrite(t *testing.T) {
	e := trellis.NewEngine()
	v := trellis.NewValue(e, "v", 1)
	require.Equal(t, 1, v.Read())

	require.NoError(t, v.Write(2))
	require.Equal(t, 2, v.Read())
}

func TestComputedTracksDependencies(t *testing.T) {
	e := trellis.NewEngine()
	a := trellis.NewValue(e, "a", 1)
	b := trellis.NewValue(e, "b", 10)
	sum := trellis.NewComputed(e, "sum", func() int { return a.Read() + b.Read() })

	require.Equal(t, 11, sum.Read())

	require.NoError(t, a.Write(5))
	require.Equal(t, 15, sum.Read())

	subjects := sum.Subjects()
	require.Len(t, subjects, 2)
}

func TestComputedIsReadOnly(t *testing.T) {
	e := trellis.NewEngine()
	c := trellis.NewComputed(e, "c", func() int { return 1 })
	err := c.Write(2)
	require.Error(t, err)
	var roErr *trellis.ReadOnlyError
	require.ErrorAs(t, err, &roErr)
}

func TestConstantIsReadOnlyAndUntracked(t *testing.T) {
	e := trellis.NewEngine()
	k := trellis.NewConstant(e, "k", 42)
	require.Error(t, k.Write(1))

	derived := trellis.NewComputed(e, "derived", func() int { return k.Read() * 2 })
	require.Equal(t, 84, derived.Read())
	require.Empty(t, derived.Subjects(), "a Constant must never be recorded as a subject")
}

func TestMaintainAcceptsOverrideAndResumesRule(t *testing.T) {
	e := trellis.NewEngine()
	base := trellis.NewValue(e, "base", 1)
	m := trellis.NewMaintain(e, "m", func() int { return base.Read() * 10 })

	require.Equal(t, 10, m.Read())
	require.NoError(t, m.Write(999))
	require.Equal(t, 999, m.Read())

	require.NoError(t, base.Write(2))
	require.Equal(t, 20, m.Read(), "a subject change re-runs the rule, superseding a prior override")
}

// TestMaintainSelfReadFoldsRunningMax exercises a rule that reads its own
// cell's prior value rather than an external subject's — the running-max
// pattern: each recompute folds the new input against whatever the cell
// last settled to, without tracking a full history itself.
func TestMaintainSelfReadFoldsRunningMax(t *testing.T) {
	e := trellis.NewEngine()
	price := trellis.NewValue(e, "price", 0.0)

	var high *trellis.Cell[float64]
	high = trellis.NewMaintain(e, "high", func() float64 {
		cur, p := high.Read(), price.Read()
		if p > cur {
			return p
		}
		return cur
	})
	require.Equal(t, 0.0, high.Read())

	for _, step := range []struct {
		price, wantHigh float64
	}{
		{10, 10}, {7, 10}, {15, 15}, {9, 15}, {20, 20}, {3, 20},
	} {
		require.NoError(t, price.Write(step.price))
		require.Equal(t, step.wantHigh, high.Read())
	}
}

func TestEnsureRecalcForcesRerunWithoutSubjectChange(t *testing.T) {
	e := trellis.NewEngine()
	runs := 0
	c := trellis.NewComputed(e, "c", func() int { runs++; return runs })

	require.Equal(t, 1, c.Read())
	c.EnsureRecalc()
	require.Equal(t, 2, c.Read())
}

func TestDiscreteResetsAfterSweep(t *testing.T) {
	e := trellis.NewEngine()
	chunk := trellis.NewInputDiscrete(e, "chunk", "")

	require.NoError(t, chunk.Write("hello"))
	require.Equal(t, "", chunk.Read(), "a Discrete cell is only visible for the sweep it fired in")
}

func TestObserverRunsForEffectOnSubjectChange(t *testing.T) {
	e := trellis.NewEngine()
	src := trellis.NewValue(e, "src", 1)
	var seen []int
	obs := trellis.NewObserver(e, "obs", func() { seen = append(seen, src.Read()) })
	obs.EnsureRecalc()
	require.Equal(t, []int{1}, seen)

	require.NoError(t, src.Write(2))
	require.Equal(t, []int{1, 2}, seen)
}
