package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSync_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls int32
	failure := errors.New("handler failed")

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return failure
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, failure) {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d", calls)
	}
}

func TestPublish_IgnoresOtherEvents(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls int32
	bus.Subscribe("other.event", HandlerFunc(func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if calls != 0 {
		t.Fatalf("expected no handler calls, got %d", calls)
	}
}

func TestPublish_RunsHandlersAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(nil)
	var calls int32
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if calls != 1 {
		t.Fatalf("expected one handler call, got %d", calls)
	}
}
