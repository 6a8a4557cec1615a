package ws

import (
	"context"
	"testing"
	"time"

	"github.com/airwarden/airwarden/internal/event"
	"github.com/airwarden/airwarden/internal/sentry"
	"github.com/airwarden/airwarden/pkg/plugin"
	"go.uber.org/zap"
)

func testClient(buffer int) *Client {
	return &Client{
		clientID: "test-client",
		send:     make(chan Message, buffer),
		logger:   zap.NewNop(),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testClient(1)

	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}

	// The send channel is closed on unregister.
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestHub_UnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testClient(1)

	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c) // must not panic on double close
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := testClient(1)
	b := testClient(1)
	hub.Register(a)
	hub.Register(b)

	hub.Broadcast(Message{Type: MessageAlertEmitted})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageAlertEmitted {
				t.Errorf("message type = %q", msg.Type)
			}
		default:
			t.Errorf("client %s received nothing", c.clientID)
		}
	}
}

func TestHub_BroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := testClient(1)
	hub.Register(c)

	hub.Broadcast(Message{Type: "first"})
	hub.Broadcast(Message{Type: "second"}) // buffer full, dropped

	msg := <-c.send
	if msg.Type != "first" {
		t.Errorf("got %q, want first", msg.Type)
	}
	select {
	case msg := <-c.send:
		t.Errorf("unexpected second message %q", msg.Type)
	default:
	}
}

func TestHandler_BroadcastsAlertEvents(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	h := NewHandler(nil, bus, zap.NewNop())

	c := testClient(8)
	h.hub.Register(c)

	bus.Publish(context.Background(), plugin.Event{
		Topic:     sentry.TopicAlertEmitted,
		Source:    "sentry",
		Timestamp: time.Now(),
		Payload: sentry.Alert{
			ID:       "surveillance-abc",
			Type:     sentry.TypeSurveillance,
			Priority: sentry.PriorityCritical,
		},
	})

	select {
	case msg := <-c.send:
		if msg.Type != MessageAlertEmitted {
			t.Errorf("message type = %q", msg.Type)
		}
		data, ok := msg.Data.(AlertData)
		if !ok {
			t.Fatalf("data type = %T", msg.Data)
		}
		if data.Alert.ID != "surveillance-abc" {
			t.Errorf("alert ID = %q", data.Alert.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestHandler_IgnoresForeignPayloads(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	h := NewHandler(nil, bus, zap.NewNop())

	c := testClient(1)
	h.hub.Register(c)

	bus.Publish(context.Background(), plugin.Event{
		Topic:   sentry.TopicAlertEmitted,
		Payload: "not an alert",
	})

	select {
	case msg := <-c.send:
		t.Errorf("unexpected broadcast %v", msg)
	default:
	}
}
