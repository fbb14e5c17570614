package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wyfcoding/fixmonitor/breaker"
	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/messagequeue"
	"github.com/wyfcoding/fixmonitor/store"
)

// captureBus 记录发布的事件, 可注入固定错误。
type captureBus struct {
	mu     sync.Mutex
	events []messagequeue.Event
	err    error
}

func (b *captureBus) Publish(_ context.Context, event messagequeue.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) Close() error { return nil }

func (b *captureBus) published() []messagequeue.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messagequeue.Event(nil), b.events...)
}

func testLogger() *logging.Logger {
	return logging.NewFromConfig(logging.Config{Service: "test", Module: "events", Level: "error"})
}

func TestMessageIngestedPublishesEvent(t *testing.T) {
	bus := &captureBus{}
	p := NewPublisher(bus, testLogger(), nil)

	p.MessageIngested(context.Background(), &store.Message{ID: "m-1", Source: "api"})

	events := bus.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != TypeMessageIngested {
		t.Errorf("expected type %q, got %q", TypeMessageIngested, events[0].Type)
	}
	if events[0].AggregateID != "m-1" {
		t.Errorf("expected aggregate id m-1, got %q", events[0].AggregateID)
	}
}

func TestMessageIngestedNilMessage(t *testing.T) {
	bus := &captureBus{}
	p := NewPublisher(bus, testLogger(), nil)

	p.MessageIngested(context.Background(), nil)

	if got := len(bus.published()); got != 0 {
		t.Fatalf("nil message must not publish, got %d events", got)
	}
}

func TestPublisherBreakerShedsAfterBusFailures(t *testing.T) {
	bus := &captureBus{err: errors.New("broker unreachable")}
	cb := breaker.NewDynamicBreaker("events-test", nil, 0.5, 2)
	cb.Update(config.CircuitBreakerConfig{
		Enabled:     true,
		Timeout:     time.Minute,
		MaxRequests: 1,
	})
	p := NewPublisher(bus, testLogger(), nil).WithBreaker(cb)

	msg := &store.Message{ID: "m-2", Source: "api"}
	for i := 0; i < 10; i++ {
		p.MessageIngested(context.Background(), msg)
	}

	// 熔断打开后总线恢复, 但请求应被快速拒绝而不触达总线。
	bus.mu.Lock()
	bus.err = nil
	bus.mu.Unlock()

	p.MessageIngested(context.Background(), msg)
	if got := len(bus.published()); got != 0 {
		t.Fatalf("open breaker should shed publishes, bus received %d", got)
	}
}

func TestPublisherBreakerDisabledPassthrough(t *testing.T) {
	bus := &captureBus{}
	cb := breaker.NewDynamicBreaker("events-test-off", nil, 0.5, 2)
	cb.Update(config.CircuitBreakerConfig{Enabled: false})
	p := NewPublisher(bus, testLogger(), nil).WithBreaker(cb)

	p.MessageIngested(context.Background(), &store.Message{ID: "m-3", Source: "api"})

	if got := len(bus.published()); got != 1 {
		t.Fatalf("disabled breaker should publish normally, got %d", got)
	}
}
