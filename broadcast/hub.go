// Package broadcast 提供按主题的实时事件推送: 摄取/告警/校验事件
// 通过 SSE 或 WebSocket 扇出到仪表盘订阅者。
// 慢消费者的缓冲写满时丢弃事件并计数, 绝不反压摄取链路。
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/metrics"
)

// 内置主题。订阅方可以只挑选自己关心的子集。
const (
	TopicMessages   = "messages"
	TopicAlerts     = "alerts"
	TopicValidation = "validation"
)

// Event 推送给订阅者的单个事件, Payload 为已序列化的 JSON。
type Event struct {
	Topic   string
	Payload []byte
}

// Subscriber 一个活跃的流式订阅。
// 事件经带缓冲的 C 异步投递, 关闭后通道会被 hub 关闭。
type Subscriber struct {
	C         chan Event
	topics    map[string]struct{}
	transport string
	mu        sync.Mutex
}

// Wants 判断订阅者是否关心该主题。空主题集表示订阅全部。
func (s *Subscriber) Wants(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// SetTopics 重置订阅主题集 (WebSocket 客户端可在连接期间改选)。
func (s *Subscriber) SetTopics(topics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = make(map[string]struct{}, len(topics))
	for _, t := range topics {
		if t != "" {
			s.topics[t] = struct{}{}
		}
	}
}

// Hub 主题广播中心。注册/注销/广播都经由 Run 的单 goroutine 处理,
// 订阅者集合无需额外加锁。
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan Event
	subs       map[*Subscriber]struct{}
	buffer     int
	logger     *logging.Logger
	metrics    *metrics.Metrics
	closeOnce  sync.Once
	done       chan struct{}
}

// NewHub 创建广播中心。buffer 为每个订阅者的事件缓冲大小。
func NewHub(buffer int, logger *logging.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		broadcast:  make(chan Event, 256),
		subs:       make(map[*Subscriber]struct{}),
		buffer:     buffer,
		logger:     logger,
		metrics:    m,
		done:       make(chan struct{}),
	}
}

// Run 处理注册与扇出, 阻塞直到 ctx 取消。
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-h.register:
			h.subs[sub] = struct{}{}
			h.gauge(sub.transport, 1)
			h.logger.Debug("stream subscriber registered", "transport", sub.transport, "total", len(h.subs))
		case sub := <-h.unregister:
			if _, ok := h.subs[sub]; ok {
				delete(h.subs, sub)
				close(sub.C)
				h.gauge(sub.transport, -1)
				h.logger.Debug("stream subscriber unregistered", "transport", sub.transport, "total", len(h.subs))
			}
		case event := <-h.broadcast:
			for sub := range h.subs {
				if !sub.Wants(event.Topic) {
					continue
				}
				select {
				case sub.C <- event:
				default:
					// 缓冲满说明消费者跟不上, 丢事件保摄取。
					if h.metrics != nil && h.metrics.BroadcastDroppedTotal != nil {
						h.metrics.BroadcastDroppedTotal.WithLabelValues(sub.transport).Inc()
					}
				}
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.closeOnce.Do(func() {
		close(h.done)
		for sub := range h.subs {
			delete(h.subs, sub)
			close(sub.C)
			h.gauge(sub.transport, -1)
		}
	})
}

func (h *Hub) gauge(transport string, delta float64) {
	if h.metrics != nil && h.metrics.BroadcastSubscribers != nil {
		h.metrics.BroadcastSubscribers.WithLabelValues(transport).Add(delta)
	}
}

// Subscribe 注册一个新订阅并返回它。hub 已停止时返回 nil。
func (h *Hub) Subscribe(topics []string, transport string) *Subscriber {
	sub := &Subscriber{
		C:         make(chan Event, h.buffer),
		transport: transport,
	}
	sub.SetTopics(topics)

	select {
	case h.register <- sub:
		return sub
	case <-h.done:
		return nil
	}
}

// Unsubscribe 注销订阅, 幂等。
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish 将任意值序列化为 JSON 后广播到主题。
// 广播缓冲满时直接丢弃, 不阻塞调用方。
func (h *Hub) Publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to marshal broadcast event", "topic", topic, "error", err)
		return
	}
	select {
	case h.broadcast <- Event{Topic: topic, Payload: payload}:
	case <-h.done:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "topic", topic)
	}
}

// heartbeatInterval SSE/WS 保活周期的兜底值。
const heartbeatInterval = 15 * time.Second
