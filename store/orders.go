package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderFlow 以 orderKey 聚合的订单流视图。
// 摘要字段取最近一条报文, 数量/价格为十进制解析结果, 非法数字降级为零值。
type OrderFlow struct {
	OrderKey     string          `json:"orderKey"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	MsgType      string          `json:"msgType"`
	OrdStatus    string          `json:"ordStatus"`
	Qty          decimal.Decimal `json:"qty"`
	Price        decimal.Decimal `json:"price"`
	Notional     decimal.Decimal `json:"notional"`
	MessageCount int             `json:"messageCount"`
	FirstSeen    time.Time       `json:"firstSeen"`
	LastSeen     time.Time       `json:"lastSeen"`
	LastID       string          `json:"lastId"`
}

// OrderProjection 内存中的订单流投影。
// 只索引带 orderKey (ClOrdID) 的报文, 随留存任务一起清理。
type OrderProjection struct {
	mu     sync.RWMutex
	orders map[string]*OrderFlow
}

// NewOrderProjection 创建空投影。
func NewOrderProjection() *OrderProjection {
	return &OrderProjection{orders: make(map[string]*OrderFlow)}
}

// parseDecimal 容错十进制解析, 空串与非法数字均返回零值。
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Apply 用一条已存储的报文更新投影。无 orderKey 的报文直接忽略。
func (p *OrderProjection) Apply(msg *Message) {
	if msg == nil || msg.OrderKey == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	flow, ok := p.orders[msg.OrderKey]
	if !ok {
		flow = &OrderFlow{OrderKey: msg.OrderKey, FirstSeen: msg.ReceivedAt}
		p.orders[msg.OrderKey] = flow
	}

	s := msg.Summary
	if s.Symbol != "" {
		flow.Symbol = s.Symbol
	}
	if s.Side != "" {
		flow.Side = s.Side
	}
	if s.MsgType != "" {
		flow.MsgType = s.MsgType
	}
	if s.OrdStatus != "" {
		flow.OrdStatus = s.OrdStatus
	}
	if s.Qty != "" {
		flow.Qty = parseDecimal(s.Qty)
	}
	if s.Price != "" {
		flow.Price = parseDecimal(s.Price)
	}
	flow.Notional = flow.Qty.Mul(flow.Price)
	flow.MessageCount++
	flow.LastSeen = msg.ReceivedAt
	flow.LastID = msg.ID
	if flow.FirstSeen.IsZero() || msg.ReceivedAt.Before(flow.FirstSeen) {
		flow.FirstSeen = msg.ReceivedAt
	}
}

// Get 按 orderKey 查询, 返回副本。
func (p *OrderProjection) Get(orderKey string) (*OrderFlow, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	flow, ok := p.orders[orderKey]
	if !ok {
		return nil, false
	}
	cp := *flow
	return &cp, true
}

// List 按最近活跃时间倒序返回全部订单流副本。
func (p *OrderProjection) List() []*OrderFlow {
	p.mu.RLock()
	result := make([]*OrderFlow, 0, len(p.orders))
	for _, flow := range p.orders {
		cp := *flow
		result = append(result, &cp)
	}
	p.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastSeen.Equal(result[j].LastSeen) {
			return result[i].OrderKey < result[j].OrderKey
		}
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	return result
}

// Prune 删除最近活跃时间早于 olderThan 的订单流, 返回删除数量。
func (p *OrderProjection) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pruned := 0
	for key, flow := range p.orders {
		if flow.LastSeen.Before(olderThan) {
			delete(p.orders, key)
			pruned++
		}
	}
	return pruned, nil
}

// Len 当前订单流数量。
func (p *OrderProjection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.orders)
}
