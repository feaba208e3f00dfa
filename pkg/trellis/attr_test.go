package trellis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/trellis/pkg/trellis"
)

type counter struct {
	*trellis.Attrs
}

func newCounter(e *trellis.Engine) *counter {
	return &counter{Attrs: trellis.NewAttrs(e)}
}

func (c *counter) Value() *trellis.Cell[int] {
	return trellis.Attr(c.Attrs, "value", 0)
}

func (c *counter) Doubled() *trellis.Cell[int] {
	return trellis.Compute(c.Attrs, "doubled", func() int { return c.Value().Read() * 2 })
}

func TestAttrsCachesByName(t *testing.T) {
	e := trellis.NewEngine()
	c := newCounter(e)

	first := c.Value()
	second := c.Value()
	require.Same(t, first.Node(), second.Node(), "the same name must return the same cell")
}

func TestComputeAttrReactsToAttr(t *testing.T) {
	e := trellis.NewEngine()
	c := newCounter(e)

	require.Equal(t, 0, c.Doubled().Read())
	require.NoError(t, c.Value().Write(5))
	require.Equal(t, 10, c.Doubled().Read())
}

func TestMakeAttrIsConstant(t *testing.T) {
	e := trellis.NewEngine()
	a := trellis.NewAttrs(e)
	k := trellis.Make(a, "limit", 100)
	require.Error(t, k.Write(1))
	require.Equal(t, 100, k.Read())
}

func TestEagerForcesImmediateRun(t *testing.T) {
	e := trellis.NewEngine()
	a := trellis.NewAttrs(e)
	runs := 0
	trellis.Eager(trellis.Compute(a, "probe", func() int { runs++; return runs }))
	require.Equal(t, 1, runs, "Eager must trigger the first recompute without a caller ever reading it")
}

func TestTodoAttrBuildsAPipe(t *testing.T) {
	e := trellis.NewEngine()
	a := trellis.NewAttrs(e)
	p := trellis.Todo[string, int](a, "lookup", "", 0)
	require.NoError(t, p.Send("x"))
	require.NoError(t, p.Fulfill(1))
	require.Equal(t, 1, p.Response().Read())
}
