package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wyfcoding/fixmonitor/logging"
)

func testLogger() *logging.Logger {
	return logging.NewFromConfig(logging.Config{Service: "test", Module: "broadcast", Level: "error"})
}

func TestHubPublishToSubscribedTopic(t *testing.T) {
	hub := NewHub(8, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sub := hub.Subscribe([]string{TopicMessages}, "sse")
	if sub == nil {
		t.Fatal("Subscribe returned nil")
	}
	defer hub.Unsubscribe(sub)

	hub.Publish(TopicMessages, map[string]string{"id": "M1"})

	select {
	case event := <-sub.C:
		if event.Topic != TopicMessages {
			t.Errorf("Unexpected topic %q", event.Topic)
		}
		var payload map[string]string
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			t.Fatalf("Bad payload: %v", err)
		}
		if payload["id"] != "M1" {
			t.Errorf("Unexpected payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

func TestHubTopicFiltering(t *testing.T) {
	hub := NewHub(8, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sub := hub.Subscribe([]string{TopicAlerts}, "sse")
	defer hub.Unsubscribe(sub)

	hub.Publish(TopicMessages, "ignored")
	hub.Publish(TopicAlerts, "wanted")

	select {
	case event := <-sub.C:
		if event.Topic != TopicAlerts {
			t.Errorf("Filter leak: received topic %q", event.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for alert event")
	}

	select {
	case event := <-sub.C:
		t.Errorf("Unexpected extra event on topic %q", event.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubEmptyTopicsReceivesAll(t *testing.T) {
	hub := NewHub(8, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sub := hub.Subscribe(nil, "ws")
	defer hub.Unsubscribe(sub)

	for _, topic := range []string{TopicMessages, TopicAlerts, TopicValidation} {
		hub.Publish(topic, topic)
	}

	received := map[string]bool{}
	timeout := time.After(time.Second)
	for len(received) < 3 {
		select {
		case event := <-sub.C:
			received[event.Topic] = true
		case <-timeout:
			t.Fatalf("Only received %v", received)
		}
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sub := hub.Subscribe(nil, "sse")
	defer hub.Unsubscribe(sub)

	// 订阅者缓冲只有 1, 连发多条必须快速返回而不是卡死。
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			hub.Publish(TopicMessages, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestHubShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub(8, testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sub := hub.Subscribe(nil, "sse")
	cancel()

	select {
	case _, ok := <-sub.C:
		if ok {
			return // 关闭前残留的事件, 继续等关闭。
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber channel not closed on shutdown")
	}
}
