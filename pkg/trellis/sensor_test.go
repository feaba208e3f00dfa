package trellis_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/trellis/pkg/trellis"
)

func TestSensorConnectsOnlyOnFirstListener(t *testing.T) {
	e := trellis.NewEngine()
	var connectCount, disconnectCount int

	sensor := trellis.NewSensor[int](e, "temp", 0,
		func(push func(int)) any {
			connectCount++
			return "key"
		},
		func(key any) {
			disconnectCount++
			require.Equal(t, "key", key)
		},
	)

	require.Equal(t, 0, connectCount, "a sensor with no listeners must not connect")

	derived := trellis.NewComputed(e, "derived", func() int { return sensor.Read() + 1 })
	require.Equal(t, 1, derived.Read())
	require.Equal(t, 1, connectCount)

	derived2 := trellis.NewComputed(e, "derived2", func() int { return sensor.Read() + 2 })
	require.Equal(t, 2, derived2.Read())
	require.Equal(t, 1, connectCount, "a second listener must not reconnect")
}

func TestSensorPushDeliversReading(t *testing.T) {
	e := trellis.NewEngine()
	var pushFn func(int)

	sensor := trellis.NewSensor[int](e, "temp", 0,
		func(push func(int)) any { pushFn = push; return nil },
		nil,
	)
	derived := trellis.NewComputed(e, "derived", func() int { return sensor.Read() * 10 })
	require.Equal(t, 0, derived.Read())

	pushFn(7)
	require.Equal(t, 70, derived.Read())
}

func TestSensorPushHelperOpensOwnSection(t *testing.T) {
	e := trellis.NewEngine()
	sensor := trellis.NewSensor[int](e, "temp", 0, func(func(int)) any { return nil }, nil)
	derived := trellis.NewComputed(e, "derived", func() int { return sensor.Read() })
	require.Equal(t, 0, derived.Read())

	require.NoError(t, trellis.SensorPush(e, sensor, 3))
	require.Equal(t, 3, derived.Read())
}

func TestPolledSensorRefreshesOnPoll(t *testing.T) {
	e := trellis.NewEngine()
	reading := 1
	poll := trellis.NewPolledSensor(e, "poll", func() int { return reading })

	var seen int
	trellis.NewObserver(e, "watcher", func() {
		seen = poll.Read()
		e.Poll()
	}).EnsureRecalc()
	require.Equal(t, 1, seen)

	reading = 99
	poll.EnsureRecalc()
	require.Equal(t, 99, seen)
}

func TestEffectorForwardsRuleResultToSink(t *testing.T) {
	e := trellis.NewEngine()
	src := trellis.NewValue(e, "src", 1)
	var sunk []int
	eff := trellis.NewEffector(e, "eff", func() int { return src.Read() * 2 }, func(v int) error {
		sunk = append(sunk, v)
		return nil
	})
	eff.EnsureRecalc()
	require.Equal(t, []int{2}, sunk)

	require.NoError(t, src.Write(5))
	require.Equal(t, []int{2, 10}, sunk)
}
