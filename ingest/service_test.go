package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/wyfcoding/fixmonitor/fix"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/store"
	"github.com/wyfcoding/fixmonitor/xerrors"
)

const validRaw = "8=FIX.4.4\x019=100\x0135=D\x0111=ORDER123\x0155=AAPL\x0154=1\x0138=100\x01"

func newTestService() (*Service, store.Store, *store.OrderProjection) {
	logger := logging.NewFromConfig(logging.Config{Service: "test", Module: "ingest", Level: "error"})
	s := store.NewMemoryStore(100)
	orders := store.NewOrderProjection()
	svc := NewService(s, orders, 0, Options{}, logger)
	return svc, s, orders
}

func TestIngestStoresMessage(t *testing.T) {
	svc, s, orders := newTestService()
	ctx := context.Background()

	msg, err := svc.Ingest(ctx, validRaw, "api")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if msg.ID == "" || msg.Seq != 1 {
		t.Errorf("Unexpected message identity: id=%q seq=%d", msg.ID, msg.Seq)
	}
	if msg.Source != "api" {
		t.Errorf("Expected source api, got %q", msg.Source)
	}
	if msg.Summary.MsgType != "D" || msg.OrderKey != "ORDER123" {
		t.Errorf("Unexpected parse result: %+v", msg.Summary)
	}
	if msg.Fingerprint == "" {
		t.Error("Expected a fingerprint")
	}

	stored, err := s.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Stored message not found: %v", err)
	}
	if stored.Raw != validRaw {
		t.Errorf("Raw mismatch: %q", stored.Raw)
	}

	if flow, ok := orders.Get("ORDER123"); !ok || flow.Symbol != "AAPL" {
		t.Errorf("Order projection not updated: %+v", flow)
	}
}

func TestIngestRejectsEmpty(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Ingest(context.Background(), "", "api"); err != xerrors.ErrEmptyBody {
		t.Errorf("Expected ErrEmptyBody, got %v", err)
	}
}

func TestIngestRejectsOversized(t *testing.T) {
	logger := logging.NewFromConfig(logging.Config{Service: "test", Module: "ingest", Level: "error"})
	svc := NewService(store.NewMemoryStore(10), store.NewOrderProjection(), 16, Options{}, logger)

	if _, err := svc.Ingest(context.Background(), strings.Repeat("x", 17), "api"); err != xerrors.ErrBodyTooLarge {
		t.Errorf("Expected ErrBodyTooLarge, got %v", err)
	}
}

func TestIngestMalformedStillStored(t *testing.T) {
	svc, _, _ := newTestService()

	msg, err := svc.Ingest(context.Background(), "garbage without structure", "upload")
	if err != nil {
		t.Fatalf("Relaxed ingestion must accept malformed input: %v", err)
	}
	if len(msg.Fields) != 1 || msg.Fields[0].Tag != "?" {
		t.Errorf("Expected one unknown field, got %+v", msg.Fields)
	}
	if len(msg.Warnings) == 0 {
		t.Error("Expected warnings for malformed input")
	}
}

func TestValidateSuccess(t *testing.T) {
	svc, s, _ := newTestService()

	report := svc.Validate(context.Background(), validRaw)
	if !report.Result.Success {
		t.Fatalf("Expected success, got %+v", report.Result)
	}
	if len(report.Suggestions) != 0 {
		t.Errorf("No suggestions expected on success, got %v", report.Suggestions)
	}

	// 校验不落库。
	if n, _ := s.Len(context.Background()); n != 0 {
		t.Errorf("Validate must not store messages, store has %d", n)
	}
}

func TestValidateFailureCarriesSuggestions(t *testing.T) {
	svc, _, _ := newTestService()

	report := svc.Validate(context.Background(), "8=FIX.4.4|35=D|11=X|")
	if report.Result.Success {
		t.Fatal("Expected validation failure")
	}
	if len(report.Result.Issues) == 0 {
		t.Fatal("Expected issues")
	}
	found := false
	for _, sg := range report.Suggestions {
		if sg.Type == fix.SuggestNormalizeDelimiters {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected normalize_delimiters suggestion, got %+v", report.Suggestions)
	}
}

func TestSuggestOnValidMessage(t *testing.T) {
	svc, _, _ := newTestService()
	if got := svc.Suggest(validRaw); len(got) != 0 {
		t.Errorf("Expected no suggestions for valid message, got %v", got)
	}
}

func TestAutoRepair(t *testing.T) {
	svc, _, _ := newTestService()

	result := svc.AutoRepair(" 8=FIX.4.4|35=D| ")
	if !result.Changed || result.Repaired == nil {
		t.Fatalf("Expected repair, got %+v", result)
	}
	if strings.Contains(*result.Repaired, "|") || strings.HasPrefix(*result.Repaired, " ") {
		t.Errorf("Repair incomplete: %q", *result.Repaired)
	}

	clean := svc.AutoRepair("8=FIX.4.4\x0135=D\x01")
	if clean.Changed || clean.Repaired != nil {
		t.Errorf("Expected no-op repair, got %+v", clean)
	}
}

func TestIngestBulkPreservesOrder(t *testing.T) {
	svc, _, _ := newTestService()

	lines := []string{
		"8=FIX.4.4\x0135=D\x0111=A\x01",
		"8=FIX.4.4\x0135=D\x0111=B\x01",
		"8=FIX.4.4\x0135=D\x0111=C\x01",
	}
	result := svc.IngestBulk(context.Background(), "B1", lines, "upload", BulkLimits{Parallelism: 2})

	if result.Total != 3 || result.Accepted != 3 || result.Rejected != 0 {
		t.Fatalf("Unexpected counts: %+v", result)
	}
	for i, r := range result.Results {
		if r.Line != i+1 {
			t.Errorf("Result %d out of order: line %d", i, r.Line)
		}
		if r.MessageID == "" {
			t.Errorf("Line %d missing message id", r.Line)
		}
	}
}

func TestIngestBulkTruncatesToMaxLines(t *testing.T) {
	svc, _, _ := newTestService()

	lines := []string{"8=FIX.4.4\x01", "8=FIX.4.4\x01", "8=FIX.4.4\x01"}
	result := svc.IngestBulk(context.Background(), "B2", lines, "upload", BulkLimits{MaxLines: 2})
	if result.Total != 2 {
		t.Errorf("Expected truncation to 2 lines, got %d", result.Total)
	}
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("a\r\nb\n\nc\n")
	if len(lines) != 3 || lines[0] != "a" || lines[1] != "b" || lines[2] != "c" {
		t.Errorf("Unexpected lines: %v", lines)
	}
	if got := SplitLines(""); len(got) != 0 {
		t.Errorf("Empty body must yield no lines, got %v", got)
	}
}
