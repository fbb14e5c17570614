// Package alert 基于 expr 表达式规则对摄取的报文摘要做实时告警。
// 规则在启动时编译一次, 非法表达式直接让启动失败而不是运行期静默跳过。
package alert

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/idgen"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/metrics"
	"github.com/wyfcoding/fixmonitor/store"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const defaultBuffer = 500

// Alert 一次规则命中记录。
type Alert struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"ruleId"`
	RuleName  string    `json:"ruleName"`
	Severity  string    `json:"severity"`
	MessageID string    `json:"messageId"`
	OrderKey  string    `json:"orderKey,omitempty"`
	Symbol    string    `json:"symbol,omitempty"`
	MsgType   string    `json:"msgType,omitempty"`
	FiredAt   time.Time `json:"firedAt"`
}

// compiledRule 规则定义与其编译产物。
type compiledRule struct {
	rule    config.AlertRule
	program *vm.Program
}

// Engine 告警引擎: 规则集 + 有界命中环形日志。
type Engine struct {
	mu      sync.RWMutex
	rules   []compiledRule
	ring    []Alert
	head    int
	size    int
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewEngine 编译配置中的规则并创建引擎。
// 任何一条表达式编译失败都返回错误。
func NewEngine(cfg config.AlertsConfig, logger *logging.Logger, m *metrics.Metrics) (*Engine, error) {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	e := &Engine{
		ring:    make([]Alert, buffer),
		logger:  logger,
		metrics: m,
	}
	for _, rule := range cfg.Rules {
		if rule.Expression == "" {
			continue
		}
		// 动态 env (map[string]any), 编译期不绑定具体类型。
		program, err := expr.Compile(rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("failed to compile alert rule [%s]: %w", rule.ID, err)
		}
		e.rules = append(e.rules, compiledRule{rule: rule, program: program})
	}

	logger.Info("alert engine initialized", "rules", len(e.rules), "buffer", buffer)
	return e, nil
}

// toNumber 容错数值转换, 供表达式里做数值比较。
func toNumber(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// env 把一条已存储的报文铺成表达式环境。
func env(msg *store.Message) map[string]any {
	s := msg.Summary
	return map[string]any{
		"msg_type":      s.MsgType,
		"symbol":        s.Symbol,
		"side":          s.Side,
		"qty":           toNumber(s.Qty),
		"price":         toNumber(s.Price),
		"ord_status":    s.OrdStatus,
		"trans_type":    s.TransType,
		"order_key":     msg.OrderKey,
		"source":        msg.Source,
		"field_count":   len(msg.Fields),
		"warning_count": len(msg.Warnings),
		"warnings":      msg.Warnings,
	}
}

// Evaluate 对一条报文执行全部规则, 返回命中的告警并写入命中日志。
// 单条规则求值失败只记日志, 不影响其余规则。
func (e *Engine) Evaluate(ctx context.Context, msg *store.Message) []Alert {
	if msg == nil {
		return nil
	}

	facts := env(msg)
	var fired []Alert

	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	for _, cr := range rules {
		output, err := expr.Run(cr.program, facts)
		if err != nil {
			e.logger.WarnContext(ctx, "alert rule evaluation failed",
				"rule", cr.rule.ID, "error", err)
			continue
		}
		passed, ok := output.(bool)
		if !ok || !passed {
			continue
		}

		a := Alert{
			ID:        idgen.GenAlertID(),
			RuleID:    cr.rule.ID,
			RuleName:  cr.rule.Name,
			Severity:  cr.rule.Severity,
			MessageID: msg.ID,
			OrderKey:  msg.OrderKey,
			Symbol:    msg.Summary.Symbol,
			MsgType:   msg.Summary.MsgType,
			FiredAt:   time.Now(),
		}
		fired = append(fired, a)

		if e.metrics != nil && e.metrics.AlertsFiredTotal != nil {
			e.metrics.AlertsFiredTotal.WithLabelValues(cr.rule.ID, cr.rule.Severity).Inc()
		}
	}

	if len(fired) > 0 {
		e.record(fired)
	}
	return fired
}

func (e *Engine) record(alerts []Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range alerts {
		e.ring[e.head] = a
		e.head = (e.head + 1) % len(e.ring)
		if e.size < len(e.ring) {
			e.size++
		}
	}
}

// Recent 按触发时间倒序返回最近最多 limit 条告警。
func (e *Engine) Recent(limit int) []Alert {
	if limit <= 0 || limit > defaultBuffer {
		limit = 100
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	n := limit
	if n > e.size {
		n = e.size
	}
	result := make([]Alert, 0, n)
	for i := 0; i < n; i++ {
		idx := (e.head - 1 - i + len(e.ring)*2) % len(e.ring)
		result = append(result, e.ring[idx])
	}
	return result
}

// Prune 丢弃触发时间早于 olderThan 的告警, 返回删除数量。
func (e *Engine) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	kept := make([]Alert, 0, e.size)
	for i := e.size - 1; i >= 0; i-- {
		idx := (e.head - 1 - i + len(e.ring)*2) % len(e.ring)
		if !e.ring[idx].FiredAt.Before(olderThan) {
			kept = append(kept, e.ring[idx])
		}
	}
	pruned := e.size - len(kept)

	buffer := len(e.ring)
	e.ring = make([]Alert, buffer)
	e.head = 0
	e.size = 0
	for _, a := range kept {
		e.ring[e.head] = a
		e.head = (e.head + 1) % buffer
		e.size++
	}
	return pruned, nil
}

// RuleCount 当前已编译的规则数。
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}
