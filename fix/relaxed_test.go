package fix

import (
	"strings"
	"testing"
)

func TestParseRelaxedStandardMessage(t *testing.T) {
	raw := "8=FIX.4.4\x0135=D\x0111=ORDER123\x0155=AAPL\x0154=1\x0138=100\x01"

	msg := ParseRelaxed(raw)

	if len(msg.Fields) != 6 {
		t.Fatalf("Expected 6 fields, got %d", len(msg.Fields))
	}
	if msg.Fields[0].Tag != "8" || msg.Fields[0].Name != "BeginString" || msg.Fields[0].Value != "FIX.4.4" {
		t.Errorf("Unexpected first field: %+v", msg.Fields[0])
	}
	if msg.Summary.MsgType != "D" {
		t.Errorf("Expected msgType D, got %q", msg.Summary.MsgType)
	}
	if msg.Summary.ClOrdID != "ORDER123" {
		t.Errorf("Expected clOrdId ORDER123, got %q", msg.Summary.ClOrdID)
	}
	if msg.OrderKey != "ORDER123" {
		t.Errorf("Expected orderKey ORDER123, got %q", msg.OrderKey)
	}
	if msg.Summary.Symbol != "AAPL" || msg.Summary.Side != "1" || msg.Summary.Qty != "100" {
		t.Errorf("Unexpected summary: %+v", msg.Summary)
	}
	if len(msg.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", msg.Warnings)
	}
	if msg.Raw != raw {
		t.Errorf("SOH input must pass through unchanged, got %q", msg.Raw)
	}
}

func TestParseRelaxedPipeDelimiter(t *testing.T) {
	msg := ParseRelaxed("8=FIX.4.4|35=D|11=X|55=MSFT")

	if len(msg.Fields) != 4 {
		t.Fatalf("Expected 4 fields, got %d", len(msg.Fields))
	}
	if strings.Contains(msg.Raw, "|") {
		t.Errorf("Raw should have pipes normalized, got %q", msg.Raw)
	}
	if !strings.Contains(msg.Raw, SOH) {
		t.Errorf("Raw should be SOH joined, got %q", msg.Raw)
	}
	found := false
	for _, w := range msg.Warnings {
		if strings.Contains(w, "'|'") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected delimiter warning, got %v", msg.Warnings)
	}
}

func TestParseRelaxedCaretDelimiter(t *testing.T) {
	msg := ParseRelaxed("8=FIX.4.4^35=8^150=F")

	if len(msg.Fields) != 3 {
		t.Fatalf("Expected 3 fields, got %d", len(msg.Fields))
	}
	if msg.Summary.MsgType != "8" {
		t.Errorf("Expected msgType 8, got %q", msg.Summary.MsgType)
	}
	if msg.Summary.TransType != "F" {
		t.Errorf("Expected transType F from ExecType, got %q", msg.Summary.TransType)
	}
}

func TestParseRelaxedSingleDelimiterWins(t *testing.T) {
	// 混用分隔符时只替换优先级高的竖线, 插入符留在字段值里。
	msg := ParseRelaxed("8=FIX.4.4|35=D^55=AAPL|10=000")

	if len(msg.Fields) != 3 {
		t.Fatalf("Expected 3 fields, got %d: %+v", len(msg.Fields), msg.Fields)
	}
	if msg.Fields[1].Value != "D^55=AAPL" {
		t.Errorf("Caret should survive as literal, got %q", msg.Fields[1].Value)
	}
	if msg.Summary.Symbol != "" {
		t.Errorf("Symbol should not be extracted from caret fragment, got %q", msg.Summary.Symbol)
	}
}

func TestParseRelaxedUnknownFragment(t *testing.T) {
	msg := ParseRelaxed("8=FIX.4.4\x01garbage\x0135=D\x01")

	if len(msg.Fields) != 3 {
		t.Fatalf("Expected 3 fields, got %d", len(msg.Fields))
	}
	frag := msg.Fields[1]
	if frag.Tag != "?" || frag.Name != "Unknown" || frag.Value != "garbage" {
		t.Errorf("Fragment not preserved: %+v", frag)
	}
}

func TestParseRelaxedEmptyInput(t *testing.T) {
	msg := ParseRelaxed("")

	if msg.Fields == nil || len(msg.Fields) != 0 {
		t.Errorf("Expected empty field slice, got %v", msg.Fields)
	}
	if len(msg.Warnings) != 2 {
		t.Errorf("Expected missing 8 and 35 warnings, got %v", msg.Warnings)
	}
	if msg.Summary.MsgType != "" || msg.OrderKey != "" {
		t.Errorf("Expected empty summary, got %+v", msg.Summary)
	}
}

func TestParseRelaxedDuplicateTags(t *testing.T) {
	msg := ParseRelaxed("8=FIX.4.4\x0135=D\x0155=AAPL\x0155=MSFT\x01")

	if len(msg.Fields) != 4 {
		t.Fatalf("Field list must keep duplicates, got %d", len(msg.Fields))
	}
	// 摘要后写覆盖。
	if msg.Summary.Symbol != "MSFT" {
		t.Errorf("Expected last-write-wins MSFT, got %q", msg.Summary.Symbol)
	}
	found := false
	for _, w := range msg.Warnings {
		if strings.Contains(w, "Duplicate tag 55") && strings.Contains(w, "2") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected duplicate warning for tag 55, got %v", msg.Warnings)
	}
}

func TestParseRelaxedEmptyValues(t *testing.T) {
	msg := ParseRelaxed("8=FIX.4.4\x0135=D\x0155=\x0154=\x01")

	var combined string
	for _, w := range msg.Warnings {
		if strings.Contains(w, "Empty value") {
			combined = w
		}
	}
	if combined == "" {
		t.Fatalf("Expected combined empty-value warning, got %v", msg.Warnings)
	}
	if !strings.Contains(combined, "55") || !strings.Contains(combined, "54") {
		t.Errorf("Warning should list both tags, got %q", combined)
	}
	count := 0
	for _, w := range msg.Warnings {
		if strings.Contains(w, "Empty value") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Empty values must be one combined warning, got %d", count)
	}
}

func TestParseRelaxedTransTypeFallback(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"prefers TransactTime", "8=FIX.4.4\x0135=8\x0160=20240102-10:00:00\x01150=F\x0139=2\x01", "20240102-10:00:00"},
		{"falls back to ExecType", "8=FIX.4.4\x0135=8\x01150=F\x0139=2\x01", "F"},
		{"falls back to OrdStatus", "8=FIX.4.4\x0135=8\x0139=2\x01", "2"},
		{"empty when none", "8=FIX.4.4\x0135=D\x01", ""},
	}
	for _, tc := range cases {
		msg := ParseRelaxed(tc.raw)
		if msg.Summary.TransType != tc.want {
			t.Errorf("%s: expected transType %q, got %q", tc.name, tc.want, msg.Summary.TransType)
		}
	}
}

func TestParseRelaxedNormalizationIdempotent(t *testing.T) {
	inputs := []string{
		"8=FIX.4.4|35=D|11=X|",
		"8=FIX.4.4^35=D^11=X",
		"8=FIX.4.4\x0135=D\x01",
		"garbage with no delimiters",
		"",
	}
	for _, raw := range inputs {
		first := ParseRelaxed(raw)
		second := ParseRelaxed(first.Raw)
		if second.Raw != first.Raw {
			t.Errorf("Normalization not idempotent for %q: %q vs %q", raw, first.Raw, second.Raw)
		}
	}
}

func TestParseRelaxedTotality(t *testing.T) {
	inputs := []string{
		"",
		"   \t\n  ",
		"===",
		"\x01\x01\x01",
		"\x00\xff\xfe binary",
		"|||^^^",
		"=value\x01=another\x01",
		strings.Repeat("55=AAPL\x01", 1000),
	}
	for _, raw := range inputs {
		msg := ParseRelaxed(raw)
		if msg.Fields == nil {
			t.Errorf("Fields must never be nil for %q", raw)
		}
		if msg.Warnings == nil {
			t.Errorf("Warnings must never be nil for %q", raw)
		}
	}
}
