package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/airwarden/airwarden/pkg/plugin"
	"go.uber.org/zap"
)

func TestPublish_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []string
	bus.Subscribe("a.topic", func(_ context.Context, e plugin.Event) {
		got = append(got, e.Topic)
	})
	bus.Subscribe("other.topic", func(_ context.Context, e plugin.Event) {
		t.Error("handler for unrelated topic invoked")
	})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "a.topic"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0] != "a.topic" {
		t.Errorf("got %v", got)
	}
}

func TestPublish_WildcardSubscriber(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var count int
	bus.SubscribeAll(func(_ context.Context, _ plugin.Event) {
		count++
	})

	ctx := context.Background()
	bus.Publish(ctx, plugin.Event{Topic: "one"})
	bus.Publish(ctx, plugin.Event{Topic: "two"})

	if count != 2 {
		t.Errorf("wildcard handler called %d times, want 2", count)
	}
}

func TestPublish_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var called bool
	bus.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		panic("boom")
	})
	bus.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		called = true
	})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "t"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !called {
		t.Error("second handler not called after first panicked")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var count int
	unsub := bus.Subscribe("t", func(_ context.Context, _ plugin.Event) {
		count++
	})

	ctx := context.Background()
	bus.Publish(ctx, plugin.Event{Topic: "t"})
	unsub()
	bus.Publish(ctx, plugin.Event{Topic: "t"})

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(zap.NewNop())

	done := make(chan plugin.Event, 1)
	bus.Subscribe("t", func(_ context.Context, e plugin.Event) {
		done <- e
	})

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "t", Source: "test"})

	select {
	case e := <-done:
		if e.Source != "test" {
			t.Errorf("Source = %q", e.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never invoked")
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus(zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe("t", func(_ context.Context, _ plugin.Event) {})
			unsub()
		}()
		go func() {
			defer wg.Done()
			bus.Publish(ctx, plugin.Event{Topic: "t"})
		}()
	}
	wg.Wait()
}
