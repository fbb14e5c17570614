package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/wyfcoding/fixmonitor/fix"
)

func newTestMessage(id, symbol, orderKey string, receivedAt time.Time) *Message {
	return &Message{
		ID:         id,
		Source:     "api",
		ReceivedAt: receivedAt,
		ParsedMessage: fix.ParsedMessage{
			Summary:  fix.MessageSummary{MsgType: "D", Symbol: symbol, ClOrdID: orderKey},
			OrderKey: orderKey,
			Raw:      "8=FIX.4.4\x0135=D\x01",
		},
	}
}

func TestMemoryStoreAppendAndGet(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	msg := newTestMessage("M1", "AAPL", "ORD1", time.Now())
	if err := s.Append(ctx, msg); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if msg.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", msg.Seq)
	}

	got, err := s.Get(ctx, "M1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Summary.Symbol != "AAPL" {
		t.Errorf("Unexpected message: %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); err != ErrMessageNotFound {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}
}

func TestMemoryStoreAppendNil(t *testing.T) {
	s := NewMemoryStore(4)
	if err := s.Append(context.Background(), nil); err != ErrNilMessage {
		t.Errorf("Expected ErrNilMessage, got %v", err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		msg := newTestMessage(fmt.Sprintf("M%d", i), "AAPL", "ORD1", time.Now())
		if err := s.Append(ctx, msg); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	list, err := s.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Seq <= list[i].Seq {
			t.Errorf("List not newest-first at %d: %d then %d", i, list[i-1].Seq, list[i].Seq)
		}
	}
}

func TestMemoryStoreListFilterAndPagination(t *testing.T) {
	s := NewMemoryStore(20)
	ctx := context.Background()

	symbols := []string{"AAPL", "MSFT", "AAPL", "GOOG", "AAPL"}
	for i, sym := range symbols {
		if err := s.Append(ctx, newTestMessage(fmt.Sprintf("M%d", i), sym, "ORD1", time.Now())); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	list, err := s.List(ctx, Query{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 AAPL messages, got %d", len(list))
	}

	page, err := s.List(ctx, Query{Symbol: "AAPL", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(page))
	}
	if page[0].ID != list[1].ID {
		t.Errorf("Offset skipped wrong record: got %s, want %s", page[0].ID, list[1].ID)
	}
}

func TestMemoryStoreRingEviction(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.Append(ctx, newTestMessage(fmt.Sprintf("M%d", i), "AAPL", "ORD1", time.Now())); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if n, _ := s.Len(ctx); n != 3 {
		t.Errorf("Expected size 3 after eviction, got %d", n)
	}
	if _, err := s.Get(ctx, "M1"); err != ErrMessageNotFound {
		t.Errorf("Oldest record should be evicted, got %v", err)
	}
	if _, err := s.Get(ctx, "M5"); err != nil {
		t.Errorf("Newest record should survive: %v", err)
	}

	// 覆盖写之后序号仍然单调。
	msg := newTestMessage("M6", "AAPL", "ORD1", time.Now())
	if err := s.Append(ctx, msg); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if msg.Seq != 6 {
		t.Errorf("Sequence must keep increasing, got %d", msg.Seq)
	}
}

func TestMemoryStorePrune(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	now := time.Now()

	if err := s.Append(ctx, newTestMessage("old", "AAPL", "ORD1", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(ctx, newTestMessage("new", "AAPL", "ORD1", now)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	pruned, err := s.Prune(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned, got %d", pruned)
	}
	if _, err := s.Get(ctx, "old"); err != ErrMessageNotFound {
		t.Errorf("Pruned record should be gone, got %v", err)
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Errorf("Fresh record should remain: %v", err)
	}
}

func TestQueryMatch(t *testing.T) {
	msg := newTestMessage("M1", "AAPL", "ORD1", time.Now())

	cases := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty query", Query{}, true},
		{"symbol match", Query{Symbol: "AAPL"}, true},
		{"symbol mismatch", Query{Symbol: "MSFT"}, false},
		{"msgType match", Query{MsgType: "D"}, true},
		{"msgType mismatch", Query{MsgType: "8"}, false},
		{"orderKey match", Query{OrderKey: "ORD1"}, true},
		{"orderKey mismatch", Query{OrderKey: "ORD2"}, false},
		{"source match", Query{Source: "api"}, true},
		{"source mismatch", Query{Source: "upload"}, false},
	}
	for _, tc := range cases {
		if got := tc.q.Match(msg); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if (Query{}).Match(nil) {
		t.Error("nil message must never match")
	}
}
