// Package extloop runs a single background goroutine that serializes
// external work onto a Trellis engine. An Engine is not safe for
// concurrent calls (see pkg/trellis's doc comment), so anything outside
// the main goroutine that wants to push a sensor reading or run a
// Modifier — a timer tick, a line arriving on a socket, a completed
// generator-task step — submits a closure here instead of calling the
// engine directly.
//
// Adapted from a worker-pool shape built for many goroutines pulling
// search tasks off one channel, with dynamic scaling and a deadlock
// detector sized for that workload. Trellis's idle loop needs exactly
// one worker (the engine forbids more), so the scaling and detector
// machinery has no job to do here; what carries over is the
// channel-plus-lifecycle shape, rebuilt on golang.org/x/sync's errgroup
// instead of a hand-rolled WaitGroup/shutdown-channel pair.
package extloop

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Loop runs submitted tasks one at a time, in submission order, on its own
// goroutine.
type Loop struct {
	tasks  chan func()
	group  *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc
}

// Start launches the loop's goroutine. Call Stop to shut it down.
func Start(ctx context.Context, queueDepth int) *Loop {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	l := &Loop{
		tasks:  make(chan func(), queueDepth),
		group:  g,
		gctx:   gctx,
		cancel: cancel,
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case task := <-l.tasks:
				runGuarded(task)
			}
		}
	})
	return l
}

func runGuarded(task func()) {
	defer func() { _ = recover() }()
	task()
}

// Submit enqueues a task for the loop's goroutine, blocking if the queue
// is full. Submit returns ctx.Err() if ctx is cancelled first, and
// context.Canceled once the loop has been stopped — Stop cancels the same
// internal context Submit selects on, so a send racing a shutdown fails
// rather than blocking forever.
func (l *Loop) Submit(ctx context.Context, task func()) error {
	if l.gctx.Err() != nil {
		return context.Canceled
	}
	select {
	case l.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.gctx.Done():
		return context.Canceled
	}
}

// Stop cancels the loop's goroutine and waits for the in-flight task, if
// any, to finish. Must be called exactly once.
func (l *Loop) Stop() error {
	l.cancel()
	err := l.group.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}
