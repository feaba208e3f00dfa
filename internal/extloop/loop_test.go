package extloop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmitRunsTasksInOrder(t *testing.T) {
	ctx := context.Background()
	loop := Start(ctx, 4)
	defer func() {
		if err := loop.Stop(); err != nil {
			t.Errorf("Stop returned %v", err)
		}
	}()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		i := i
		last := i == 2
		if err := loop.Submit(ctx, func() {
			got = append(got, i)
			if last {
				close(done)
			}
		}); err != nil {
			t.Fatalf("Submit returned %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not complete in time")
	}

	for i, v := range got {
		if v != i {
			t.Errorf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestTaskPanicDoesNotStopTheLoop(t *testing.T) {
	ctx := context.Background()
	loop := Start(ctx, 1)
	defer func() {
		if err := loop.Stop(); err != nil {
			t.Errorf("Stop returned %v", err)
		}
	}()

	if err := loop.Submit(ctx, func() { panic("boom") }); err != nil {
		t.Fatalf("Submit returned %v", err)
	}

	ran := make(chan struct{})
	if err := loop.Submit(ctx, func() { close(ran) }); err != nil {
		t.Fatalf("Submit returned %v", err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("loop did not process the task after the panic")
	}
}

func TestSubmitAfterStopReturnsError(t *testing.T) {
	ctx := context.Background()
	loop := Start(ctx, 0)
	if err := loop.Stop(); err != nil {
		t.Fatalf("Stop returned %v", err)
	}

	err := loop.Submit(ctx, func() {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled after Stop, got %v", err)
	}
}

func TestSubmitRespectsContextCancellation(t *testing.T) {
	loop := Start(context.Background(), 0)
	defer func() { _ = loop.Stop() }()

	block := make(chan struct{})
	if err := loop.Submit(context.Background(), func() { <-block }); err != nil {
		t.Fatalf("Submit returned %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := loop.Submit(ctx, func() {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(block)
}
