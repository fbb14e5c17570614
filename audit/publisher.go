// Package audit 提供审计事件的统一模型与写入器接口。
// 生成摘要:
// 1) 新增基于消息总线的审计事件写入器。
// 2) 自动注入请求上下文元数据，便于跨服务追踪。
// 假设:
// 1) 消息总线已初始化并支持领域事件发布。
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/fixmonitor/contextx"
	"github.com/wyfcoding/fixmonitor/idgen"
	"github.com/wyfcoding/fixmonitor/messagequeue"
	"github.com/wyfcoding/fixmonitor/tracing"
)

var (
	// ErrBusUnavailable 表示审计消息总线不可用。
	ErrBusUnavailable = errors.New("audit event bus unavailable")
)

const defaultAuditEventType = "audit.event"

// EventBusWriter 将审计事件发布到统一消息总线。
type EventBusWriter struct {
	Bus       messagequeue.EventBus
	EventType string
}

// NewEventBusWriter 创建审计事件总线写入器。
func NewEventBusWriter(bus messagequeue.EventBus) *EventBusWriter {
	return &EventBusWriter{Bus: bus}
}

// Write 发布审计事件到消息总线。
// 请求 ID、Trace ID 与操作人若事件中未填, 从上下文补齐。
func (w *EventBusWriter) Write(ctx context.Context, event Event) error {
	if w == nil || w.Bus == nil {
		return ErrBusUnavailable
	}

	eventType := w.EventType
	if eventType == "" {
		eventType = defaultAuditEventType
	}

	if event.RequestID == "" {
		event.RequestID = contextx.GetRequestID(ctx)
	}
	if event.TraceID == "" {
		event.TraceID = tracing.GetTraceID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = contextx.GetUserID(ctx)
	}
	if event.Source == "" {
		event.Source = contextx.GetSource(ctx)
	}

	occurredAt := event.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return w.Bus.Publish(ctx, messagequeue.Event{
		ID:          idgen.GenIDString(),
		Type:        eventType,
		AggregateID: chooseAggregateID(event),
		OccurredAt:  occurredAt,
		Data:        event,
	})
}

func chooseAggregateID(event Event) string {
	if event.ResourceID != "" {
		return event.ResourceID
	}
	if event.ActorID != "" {
		return event.ActorID
	}
	if event.Action != "" {
		return event.Action
	}
	return "audit"
}
