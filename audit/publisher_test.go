package audit

import (
	"context"
	"testing"
	"time"

	"github.com/wyfcoding/fixmonitor/contextx"
	"github.com/wyfcoding/fixmonitor/messagequeue"
)

type recordingBus struct {
	events []messagequeue.Event
}

func (b *recordingBus) Publish(_ context.Context, event messagequeue.Event) error {
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func TestEventBusWriterPublishesAuditEvent(t *testing.T) {
	bus := &recordingBus{}
	w := NewEventBusWriter(bus)

	err := w.Write(context.Background(), Event{
		Action:     "MESSAGE_INGEST",
		Resource:   "fix-message",
		ResourceID: "m-1",
		Result:     ResultSuccess,
		Timestamp:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if len(bus.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.events))
	}
	got := bus.events[0]
	if got.Type != "audit.event" {
		t.Errorf("expected type audit.event, got %q", got.Type)
	}
	if got.AggregateID != "m-1" {
		t.Errorf("expected aggregate id from resource id, got %q", got.AggregateID)
	}
	if !got.OccurredAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("expected event timestamp preserved, got %v", got.OccurredAt)
	}
}

func TestEventBusWriterFillsActorFromContext(t *testing.T) {
	bus := &recordingBus{}
	w := NewEventBusWriter(bus)
	ctx := contextx.WithUserID(context.Background(), "operator-1")

	if err := w.Write(ctx, Event{Action: "MESSAGE_INGEST"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	payload, ok := bus.events[0].Data.(Event)
	if !ok {
		t.Fatalf("expected audit event payload, got %T", bus.events[0].Data)
	}
	if payload.ActorID != "operator-1" {
		t.Errorf("expected actor filled from context, got %q", payload.ActorID)
	}
}

func TestEventBusWriterWithoutBus(t *testing.T) {
	w := &EventBusWriter{}
	if err := w.Write(context.Background(), Event{Action: "x"}); err != ErrBusUnavailable {
		t.Fatalf("expected ErrBusUnavailable, got %v", err)
	}
}

func TestFanoutWriterReachesAllOutputs(t *testing.T) {
	bus1, bus2 := &recordingBus{}, &recordingBus{}
	w := NewFanoutWriter(NewEventBusWriter(bus1), nil, NewEventBusWriter(bus2))

	if err := w.Write(context.Background(), Event{Action: "MESSAGE_INGEST"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(bus1.events) != 1 || len(bus2.events) != 1 {
		t.Fatalf("expected both outputs written, got %d and %d", len(bus1.events), len(bus2.events))
	}
}
