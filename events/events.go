// Package events 把摄取链路的关键节点发布为领域事件:
// 报文入库、严格校验失败、告警触发。底层走 messagequeue 总线,
// Kafka 未启用时为 Nop, 发布失败只计数告警, 从不阻断摄取。
package events

import (
	"context"
	"time"

	"github.com/wyfcoding/fixmonitor/alert"
	"github.com/wyfcoding/fixmonitor/breaker"
	"github.com/wyfcoding/fixmonitor/fix"
	"github.com/wyfcoding/fixmonitor/idgen"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/messagequeue"
	"github.com/wyfcoding/fixmonitor/metrics"
	"github.com/wyfcoding/fixmonitor/store"
)

// 事件类型。
const (
	TypeMessageIngested  = "message.ingested"
	TypeValidationFailed = "validation.failed"
	TypeAlertFired       = "alert.fired"
)

// Publisher 领域事件出口。
type Publisher struct {
	bus     messagequeue.EventBus
	cb      *breaker.DynamicBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewPublisher 创建发布器。bus 为 nil 时退化为全局默认总线 (Nop)。
func NewPublisher(bus messagequeue.EventBus, logger *logging.Logger, m *metrics.Metrics) *Publisher {
	if bus == nil {
		bus = messagequeue.DefaultBus()
	}
	return &Publisher{bus: bus, logger: logger, metrics: m}
}

// WithBreaker 给发布链路套上动态熔断器, 总线持续失败时快速拒绝,
// 避免每条报文都等 Kafka 超时。cb 为 nil 时直通。
func (p *Publisher) WithBreaker(cb *breaker.DynamicBreaker) *Publisher {
	p.cb = cb
	return p
}

// ingestedPayload message.ingested 的事件载荷。
type ingestedPayload struct {
	MessageID    string `json:"messageId"`
	Source       string `json:"source"`
	MsgType      string `json:"msgType,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
	OrderKey     string `json:"orderKey,omitempty"`
	WarningCount int    `json:"warningCount"`
}

// validationPayload validation.failed 的事件载荷。
type validationPayload struct {
	Error      string           `json:"error"`
	IssueCount int              `json:"issueCount"`
	Issues     []fix.ParseIssue `json:"issues"`
}

// MessageIngested 发布报文入库事件。
func (p *Publisher) MessageIngested(ctx context.Context, msg *store.Message) {
	if msg == nil {
		return
	}
	p.publish(ctx, messagequeue.Event{
		ID:          idgen.GenIDString(),
		Type:        TypeMessageIngested,
		AggregateID: msg.ID,
		OccurredAt:  time.Now(),
		Data: ingestedPayload{
			MessageID:    msg.ID,
			Source:       msg.Source,
			MsgType:      msg.Summary.MsgType,
			Symbol:       msg.Summary.Symbol,
			OrderKey:     msg.OrderKey,
			WarningCount: len(msg.Warnings),
		},
	})
}

// ValidationFailed 发布严格校验失败事件。
func (p *Publisher) ValidationFailed(ctx context.Context, result fix.StrictResult) {
	if result.Success {
		return
	}
	p.publish(ctx, messagequeue.Event{
		ID:          idgen.GenIDString(),
		Type:        TypeValidationFailed,
		AggregateID: idgen.GenBatchID(),
		OccurredAt:  time.Now(),
		Data: validationPayload{
			Error:      result.Err,
			IssueCount: len(result.Issues),
			Issues:     result.Issues,
		},
	})
}

// AlertFired 发布告警触发事件。
func (p *Publisher) AlertFired(ctx context.Context, a alert.Alert) {
	p.publish(ctx, messagequeue.Event{
		ID:          idgen.GenIDString(),
		Type:        TypeAlertFired,
		AggregateID: a.ID,
		OccurredAt:  time.Now(),
		Data:        a,
	})
}

func (p *Publisher) publish(ctx context.Context, event messagequeue.Event) {
	_, err := p.cb.Execute(func() (any, error) {
		return nil, p.bus.Publish(ctx, event)
	})
	status := "success"
	if err != nil {
		status = "failed"
		p.logger.WarnContext(ctx, "failed to publish domain event",
			"type", event.Type, "aggregate_id", event.AggregateID, "error", err)
	}
	if p.metrics != nil && p.metrics.EventsPublishedTotal != nil {
		p.metrics.EventsPublishedTotal.WithLabelValues(event.Type, status).Inc()
	}
}

// Close 关闭底层总线。
func (p *Publisher) Close() error {
	return p.bus.Close()
}
