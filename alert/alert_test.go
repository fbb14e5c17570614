package alert

import (
	"context"
	"testing"
	"time"

	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/fix"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/store"
)

func testEngine(t *testing.T, rules ...config.AlertRule) *Engine {
	t.Helper()
	logger := logging.NewFromConfig(logging.Config{Service: "test", Module: "alert", Level: "error"})
	e, err := NewEngine(config.AlertsConfig{Enabled: true, Buffer: 16, Rules: rules}, logger, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func alertMessage(id string, summary fix.MessageSummary, warnings []string) *store.Message {
	return &store.Message{
		ID:         id,
		Source:     "api",
		ReceivedAt: time.Now(),
		ParsedMessage: fix.ParsedMessage{
			Summary:  summary,
			Warnings: warnings,
			OrderKey: summary.ClOrdID,
		},
	}
}

func TestEngineRejectsInvalidExpression(t *testing.T) {
	logger := logging.NewFromConfig(logging.Config{Service: "test", Module: "alert", Level: "error"})
	_, err := NewEngine(config.AlertsConfig{Rules: []config.AlertRule{
		{ID: "bad", Expression: "qty >"},
	}}, logger, nil)
	if err == nil {
		t.Fatal("Expected compile error for malformed expression")
	}
}

func TestEngineEvaluateMatch(t *testing.T) {
	e := testEngine(t,
		config.AlertRule{ID: "big-order", Name: "Large order", Expression: `qty >= 1000 && msg_type == "D"`, Severity: "warning"},
		config.AlertRule{ID: "rejects", Name: "Order rejected", Expression: `ord_status == "8"`, Severity: "critical"},
	)

	fired := e.Evaluate(context.Background(), alertMessage("M1", fix.MessageSummary{
		MsgType: "D", Symbol: "AAPL", Qty: "5000", ClOrdID: "ORD1",
	}, nil))

	if len(fired) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(fired))
	}
	if fired[0].RuleID != "big-order" || fired[0].Severity != "warning" {
		t.Errorf("Unexpected alert: %+v", fired[0])
	}
	if fired[0].MessageID != "M1" || fired[0].Symbol != "AAPL" {
		t.Errorf("Alert missing message context: %+v", fired[0])
	}
	if fired[0].ID == "" {
		t.Error("Alert must carry a generated id")
	}
}

func TestEngineNoMatch(t *testing.T) {
	e := testEngine(t, config.AlertRule{ID: "big-order", Expression: "qty >= 1000"})

	fired := e.Evaluate(context.Background(), alertMessage("M1", fix.MessageSummary{Qty: "10"}, nil))
	if len(fired) != 0 {
		t.Errorf("Expected no alerts, got %v", fired)
	}
	if len(e.Recent(10)) != 0 {
		t.Errorf("Recent log should be empty")
	}
}

func TestEngineWarningCountEnv(t *testing.T) {
	e := testEngine(t, config.AlertRule{ID: "noisy", Expression: "warning_count > 1", Severity: "info"})

	fired := e.Evaluate(context.Background(), alertMessage("M1", fix.MessageSummary{}, []string{"w1", "w2"}))
	if len(fired) != 1 {
		t.Fatalf("Expected alert on warning_count, got %d", len(fired))
	}
}

func TestEngineInvalidQtyDegradesToZero(t *testing.T) {
	e := testEngine(t, config.AlertRule{ID: "big", Expression: "qty > 0"})

	fired := e.Evaluate(context.Background(), alertMessage("M1", fix.MessageSummary{Qty: "garbage"}, nil))
	if len(fired) != 0 {
		t.Errorf("Non-numeric qty must evaluate as zero, got %v", fired)
	}
}

func TestEngineRecentNewestFirst(t *testing.T) {
	e := testEngine(t, config.AlertRule{ID: "all", Expression: "true"})

	for _, id := range []string{"M1", "M2", "M3"} {
		e.Evaluate(context.Background(), alertMessage(id, fix.MessageSummary{}, nil))
	}

	recent := e.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Expected 2 alerts, got %d", len(recent))
	}
	if recent[0].MessageID != "M3" || recent[1].MessageID != "M2" {
		t.Errorf("Expected newest first, got %s then %s", recent[0].MessageID, recent[1].MessageID)
	}
}

func TestEnginePrune(t *testing.T) {
	e := testEngine(t, config.AlertRule{ID: "all", Expression: "true"})

	e.Evaluate(context.Background(), alertMessage("M1", fix.MessageSummary{}, nil))
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	e.Evaluate(context.Background(), alertMessage("M2", fix.MessageSummary{}, nil))

	pruned, err := e.Prune(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned, got %d", pruned)
	}
	recent := e.Recent(10)
	if len(recent) != 1 || recent[0].MessageID != "M2" {
		t.Errorf("Unexpected survivors: %+v", recent)
	}
}

func TestEngineSkipsEmptyExpressions(t *testing.T) {
	e := testEngine(t, config.AlertRule{ID: "empty"}, config.AlertRule{ID: "real", Expression: "true"})
	if e.RuleCount() != 1 {
		t.Errorf("Expected 1 compiled rule, got %d", e.RuleCount())
	}
}
