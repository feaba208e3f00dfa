package trellis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/trellis/pkg/trellis"
)

type recordingScope struct {
	entered, exited bool
	exitErr         error
}

func (s *recordingScope) Enter() { s.entered = true }
func (s *recordingScope) Exit(err error) error {
	s.exited = true
	s.exitErr = err
	return nil
}

func TestManageRunsEnterImmediatelyAndExitAtCommit(t *testing.T) {
	e := trellis.NewEngine()
	scope := &recordingScope{}

	err := e.Atomically(func() error {
		require.NoError(t, e.Manage(scope))
		require.True(t, scope.entered)
		require.False(t, scope.exited, "Exit must not run until the section ends")
		return nil
	})

	require.NoError(t, err)
	require.True(t, scope.exited)
	require.NoError(t, scope.exitErr)
}

func TestManageExitSeesAbortCause(t *testing.T) {
	e := trellis.NewEngine()
	scope := &recordingScope{}
	sentinel := &trellis.InvalidOperation{Op: "test", Reason: "boom"}

	err := e.Atomically(func() error {
		require.NoError(t, e.Manage(scope))
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	require.True(t, scope.exited)
	require.Equal(t, sentinel, scope.exitErr)
}

func TestManageOutsideSectionIsInvalidOperation(t *testing.T) {
	e := trellis.NewEngine()
	err := e.Manage(&recordingScope{})
	require.Error(t, err)
	var ioErr *trellis.InvalidOperation
	require.ErrorAs(t, err, &ioErr)
}

func TestSavepointRollsBackOnlyToMark(t *testing.T) {
	e := trellis.NewEngine()
	a := trellis.NewValue(e, "a", 0)
	b := trellis.NewValue(e, "b", 0)

	err := e.Atomically(func() error {
		if err := a.Write(1); err != nil {
			return err
		}
		sp := e.Savepoint()
		if err := b.Write(1); err != nil {
			return err
		}
		e.RollbackTo(sp)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, a.Read(), "writes before the savepoint survive")
	require.Equal(t, 0, b.Read(), "writes after the savepoint are undone")
}

func TestSetAttrRecordsUndo(t *testing.T) {
	e := trellis.NewEngine()
	var field int

	err := e.Atomically(func() error {
		trellis.SetAttr(e, &field, 5)
		return &trellis.InvalidOperation{Op: "test", Reason: "force rollback"}
	})

	require.Error(t, err)
	require.Equal(t, 0, field, "SetAttr's mutation must be undone on rollback")
}

type cleanupProbe struct {
	e          *trellis.Engine
	sawCleanup bool
}

func (p *cleanupProbe) Enter() {}
func (p *cleanupProbe) Exit(error) error {
	p.sawCleanup = p.e.InCleanup()
	return nil
}

func TestInCleanupDuringExit(t *testing.T) {
	e := trellis.NewEngine()
	probe := &cleanupProbe{e: e}

	require.NoError(t, e.Atomically(func() error { return e.Manage(probe) }))
	require.True(t, probe.sawCleanup)
	require.False(t, e.InCleanup())
}
