package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fixmonitor/fix"
)

func orderMessage(id, orderKey string, summary fix.MessageSummary, at time.Time) *Message {
	return &Message{
		ID:         id,
		ReceivedAt: at,
		ParsedMessage: fix.ParsedMessage{
			Summary:  summary,
			OrderKey: orderKey,
		},
	}
}

func TestOrderProjectionApply(t *testing.T) {
	p := NewOrderProjection()
	now := time.Now()

	p.Apply(orderMessage("M1", "ORD1", fix.MessageSummary{
		MsgType: "D", Symbol: "AAPL", Side: "1", Qty: "100", Price: "150.5",
	}, now))

	flow, ok := p.Get("ORD1")
	if !ok {
		t.Fatal("Expected order flow for ORD1")
	}
	if flow.Symbol != "AAPL" || flow.Side != "1" {
		t.Errorf("Unexpected flow: %+v", flow)
	}
	if !flow.Qty.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected qty 100, got %s", flow.Qty)
	}
	if !flow.Notional.Equal(decimal.RequireFromString("15050")) {
		t.Errorf("Expected notional 15050, got %s", flow.Notional)
	}
	if flow.MessageCount != 1 {
		t.Errorf("Expected 1 message, got %d", flow.MessageCount)
	}
}

func TestOrderProjectionLastWriteWins(t *testing.T) {
	p := NewOrderProjection()
	now := time.Now()

	p.Apply(orderMessage("M1", "ORD1", fix.MessageSummary{
		MsgType: "D", Symbol: "AAPL", OrdStatus: "0", Qty: "100", Price: "10",
	}, now))
	// 执行回报只带状态, 不应清掉已知的 symbol/qty。
	p.Apply(orderMessage("M2", "ORD1", fix.MessageSummary{
		MsgType: "8", OrdStatus: "2",
	}, now.Add(time.Second)))

	flow, _ := p.Get("ORD1")
	if flow.OrdStatus != "2" {
		t.Errorf("Expected status 2, got %q", flow.OrdStatus)
	}
	if flow.Symbol != "AAPL" {
		t.Errorf("Empty summary field must not erase symbol, got %q", flow.Symbol)
	}
	if !flow.Qty.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Qty should persist, got %s", flow.Qty)
	}
	if flow.MessageCount != 2 {
		t.Errorf("Expected 2 messages, got %d", flow.MessageCount)
	}
	if flow.LastID != "M2" {
		t.Errorf("Expected last id M2, got %s", flow.LastID)
	}
}

func TestOrderProjectionInvalidNumbersDegrade(t *testing.T) {
	p := NewOrderProjection()

	p.Apply(orderMessage("M1", "ORD1", fix.MessageSummary{Qty: "abc", Price: "1e"}, time.Now()))

	flow, _ := p.Get("ORD1")
	if !flow.Qty.IsZero() || !flow.Price.IsZero() {
		t.Errorf("Invalid numerics must degrade to zero: qty=%s price=%s", flow.Qty, flow.Price)
	}
}

func TestOrderProjectionIgnoresMissingKey(t *testing.T) {
	p := NewOrderProjection()
	p.Apply(orderMessage("M1", "", fix.MessageSummary{MsgType: "0"}, time.Now()))
	p.Apply(nil)

	if p.Len() != 0 {
		t.Errorf("Messages without orderKey must be ignored, got %d flows", p.Len())
	}
}

func TestOrderProjectionListOrder(t *testing.T) {
	p := NewOrderProjection()
	now := time.Now()

	p.Apply(orderMessage("M1", "ORD1", fix.MessageSummary{Symbol: "AAPL"}, now.Add(-time.Minute)))
	p.Apply(orderMessage("M2", "ORD2", fix.MessageSummary{Symbol: "MSFT"}, now))

	list := p.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 flows, got %d", len(list))
	}
	if list[0].OrderKey != "ORD2" {
		t.Errorf("Expected most recent first, got %s", list[0].OrderKey)
	}
}

func TestOrderProjectionPrune(t *testing.T) {
	p := NewOrderProjection()
	now := time.Now()

	p.Apply(orderMessage("M1", "stale", fix.MessageSummary{}, now.Add(-2*time.Hour)))
	p.Apply(orderMessage("M2", "fresh", fix.MessageSummary{}, now))

	pruned, err := p.Prune(context.Background(), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned, got %d", pruned)
	}
	if _, ok := p.Get("stale"); ok {
		t.Error("Stale flow should be removed")
	}
	if _, ok := p.Get("fresh"); !ok {
		t.Error("Fresh flow should remain")
	}
}
