// Package messagequeue 提供了统一的事件总线接口与事件模型定义。
package messagequeue

import (
	"context"
	"time"
)

// Event 对外发布的领域事件。Data 为具体载荷, 序列化为 JSON 后投递。
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Data        any       `json:"data"`
}

// EventBus 事件总线接口。
// 用于在服务间或模块间异步发布领域事件。
type EventBus interface {
	// Publish 发布单个领域事件。
	Publish(ctx context.Context, event Event) error
	// Close 关闭总线连接。
	Close() error
}

// EventHandler 事件处理函数类型。
type EventHandler func(ctx context.Context, event Event) error

var defaultEventBus EventBus = NopBus{}

// DefaultBus 返回全局默认事件总线实例。
func DefaultBus() EventBus {
	return defaultEventBus
}

// SetDefaultBus 设置全局默认事件总线实例。
func SetDefaultBus(eventBus EventBus) {
	if eventBus == nil {
		eventBus = NopBus{}
	}
	defaultEventBus = eventBus
}

// NopBus 空实现, 消息队列未启用时挂载。
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) error { return nil }
func (NopBus) Close() error                         { return nil }
