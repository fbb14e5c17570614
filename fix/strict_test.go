package fix

import (
	"reflect"
	"strings"
	"testing"
)

func hasIssue(issues []ParseIssue, typ IssueType) bool {
	for _, issue := range issues {
		if issue.Type == typ {
			return true
		}
	}
	return false
}

func findIssue(issues []ParseIssue, typ IssueType) *ParseIssue {
	for i := range issues {
		if issues[i].Type == typ {
			return &issues[i]
		}
	}
	return nil
}

func TestParseStrictValidMessage(t *testing.T) {
	raw := "8=FIX.4.4\x019=123\x0135=D\x0111=ORDER123\x0155=AAPL\x0154=1\x0138=100\x01"

	result := ParseStrict(raw)

	if !result.Success {
		t.Fatalf("Expected success, got error %q with issues %v", result.Err, result.Issues)
	}
	if result.Message == nil {
		t.Fatal("Success result must carry a message")
	}
	if result.Message.Summary.MsgType != "D" {
		t.Errorf("Expected msgType D, got %q", result.Message.Summary.MsgType)
	}
	if result.Message.Summary.ClOrdID != "ORDER123" {
		t.Errorf("Expected clOrdId ORDER123, got %q", result.Message.Summary.ClOrdID)
	}
	if result.Message.OrderKey != "ORDER123" {
		t.Errorf("Expected orderKey ORDER123, got %q", result.Message.OrderKey)
	}
	if result.Err != "" || len(result.Issues) != 0 {
		t.Errorf("Success result must not carry issues: %q %v", result.Err, result.Issues)
	}
}

func TestParseStrictMissingBodyLength(t *testing.T) {
	// 缺 9=BodyLength, 其余完好。
	result := ParseStrict("8=FIX.4.4\x0135=D\x0111=ORDER123\x0155=AAPL\x0154=1\x0138=100\x01")

	if result.Success {
		t.Fatal("Expected failure for message without BodyLength")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Expected exactly 1 issue, got %v", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Type != IssueMissingRequired {
		t.Errorf("Expected missing_required_field, got %s", issue.Type)
	}
	if !strings.Contains(issue.Message, "BodyLength (9)") {
		t.Errorf("Issue should name BodyLength (9), got %q", issue.Message)
	}
	if issue.Position != nil {
		t.Errorf("Message-level issue must have no position, got %d", *issue.Position)
	}
	if result.Err != "FIX message validation failed with 1 issue(s)" {
		t.Errorf("Unexpected error string %q", result.Err)
	}
}

func TestParseStrictPipeDelimiter(t *testing.T) {
	result := ParseStrict("8=FIX.4.4|35=D|11=X|")

	if result.Success {
		t.Fatal("Expected failure for pipe-delimited message")
	}
	delim := findIssue(result.Issues, IssueInvalidDelimiter)
	if delim == nil {
		t.Fatal("Expected invalid_delimiter issue")
	}
	if delim.Position == nil || *delim.Position != 9 {
		t.Errorf("Expected pipe position 9, got %v", delim.Position)
	}
	// 无 SOH 时整条报文是一个 token, 只有 tag 8 被识别为存在。
	var missing []string
	for _, issue := range result.Issues {
		if issue.Type == IssueMissingRequired {
			missing = append(missing, issue.Message)
		}
	}
	if len(missing) != 2 {
		t.Fatalf("Expected missing 9 and 35, got %v", missing)
	}
	if !strings.Contains(missing[0], "BodyLength (9)") || !strings.Contains(missing[1], "MsgType (35)") {
		t.Errorf("Unexpected missing-field messages: %v", missing)
	}
	if len(result.Issues) != 3 {
		t.Errorf("Expected 3 issues, got %d: %v", len(result.Issues), result.Issues)
	}
}

func TestParseStrictWhitespace(t *testing.T) {
	raw := " 8=FIX.4.4\x019=100\x0135=D\x01 "

	result := ParseStrict(raw)

	if result.Success {
		t.Fatal("Expected failure for padded message")
	}
	var ws []ParseIssue
	for _, issue := range result.Issues {
		if issue.Type == IssueWhitespace {
			ws = append(ws, issue)
		}
	}
	if len(ws) != 2 {
		t.Fatalf("Expected leading and trailing whitespace issues, got %v", ws)
	}
	if ws[0].Position == nil || *ws[0].Position != 0 {
		t.Errorf("Leading issue should be at 0, got %v", ws[0].Position)
	}
	if ws[1].Position == nil || *ws[1].Position != len(raw)-1 {
		t.Errorf("Trailing issue should be at %d, got %v", len(raw)-1, ws[1].Position)
	}
}

func TestParseStrictMissingEquals(t *testing.T) {
	result := ParseStrict("8=FIX.4.4\x019=100\x0135D\x01")

	if result.Success {
		t.Fatal("Expected failure")
	}
	issue := findIssue(result.Issues, IssueMissingEquals)
	if issue == nil {
		t.Fatal("Expected missing_equals issue")
	}
	if !strings.Contains(issue.Message, `"35D"`) {
		t.Errorf("Issue should quote the offending token, got %q", issue.Message)
	}
	if issue.Position == nil || *issue.Position != 2 {
		t.Errorf("Expected token position 2, got %v", issue.Position)
	}
	// token "35D" 整体算作 tag, 35 因而缺席。
	if !hasIssue(result.Issues, IssueMissingRequired) {
		t.Errorf("Expected missing_required_field for 35, got %v", result.Issues)
	}
}

func TestParseStrictFieldOrder(t *testing.T) {
	raw := "35=D\x018=FIX.4.4\x019=100\x01"

	result := ParseStrict(raw)

	if result.Success {
		t.Fatal("Expected failure for misordered message")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Expected 1 issue, got %v", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Type != IssueInvalidOrder || !strings.Contains(issue.Message, "must be first") {
		t.Errorf("Unexpected issue: %+v", issue)
	}
	if issue.Position == nil || *issue.Position != 0 {
		t.Errorf("Expected position 0, got %v", issue.Position)
	}
	// 宽松解析不关心顺序, 摘要仍可提取。
	msg := ParseRelaxed(raw)
	if msg.Summary.MsgType != "D" {
		t.Errorf("Relaxed parse should still extract msgType D, got %q", msg.Summary.MsgType)
	}
}

func TestParseStrictChecksumMustBeLast(t *testing.T) {
	result := ParseStrict("8=FIX.4.4\x019=5\x0110=000\x0135=D\x01")

	if result.Success {
		t.Fatal("Expected failure")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Expected 1 issue, got %v", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Type != IssueInvalidOrder || !strings.Contains(issue.Message, "must be last") {
		t.Errorf("Unexpected issue: %+v", issue)
	}
	if issue.Position == nil || *issue.Position != 3 {
		t.Errorf("Expected position 3 (last token), got %v", issue.Position)
	}
}

func TestParseStrictChecksumLastPasses(t *testing.T) {
	// 末尾 SOH 产生的空段被丢弃, 不会顶掉 CheckSum 的队尾位置。
	result := ParseStrict("8=FIX.4.4\x019=5\x0135=D\x0110=000\x01")

	if !result.Success {
		t.Fatalf("Expected success, got %v", result.Issues)
	}
}

func TestParseStrictAggregatesIndependentDefects(t *testing.T) {
	// 首部空白 + 竖线分隔 + 非数字 tag + 缺失必填字段 + 顺序违规同时存在。
	result := ParseStrict(" XY=1|35=D")

	if result.Success {
		t.Fatal("Expected failure")
	}
	for _, typ := range []IssueType{
		IssueInvalidDelimiter,
		IssueInvalidTag,
		IssueMissingRequired,
		IssueInvalidOrder,
		IssueWhitespace,
	} {
		if !hasIssue(result.Issues, typ) {
			t.Errorf("Expected issue type %s, got %v", typ, result.Issues)
		}
	}
	if len(result.Issues) != 7 {
		t.Errorf("Expected 7 aggregated issues, got %d: %v", len(result.Issues), result.Issues)
	}
	if !strings.Contains(result.Err, "7 issue(s)") {
		t.Errorf("Error should carry issue count, got %q", result.Err)
	}
}

func TestParseStrictEmptyTag(t *testing.T) {
	result := ParseStrict("8=FIX.4.4\x019=12\x0135=D\x01=value\x01")

	if result.Success {
		t.Fatal("Expected failure")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Expected 1 issue, got %v", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Type != IssueEmptyTag {
		t.Errorf("Expected empty_tag, got %s", issue.Type)
	}
	if issue.Position == nil || *issue.Position != 3 {
		t.Errorf("Expected token position 3, got %v", issue.Position)
	}
}

func TestParseStrictEmptyInput(t *testing.T) {
	result := ParseStrict("")

	if result.Success {
		t.Fatal("Empty input must fail validation")
	}
	if len(result.Issues) != 3 {
		t.Fatalf("Expected 3 missing-field issues, got %v", result.Issues)
	}
	for _, issue := range result.Issues {
		if issue.Type != IssueMissingRequired {
			t.Errorf("Unexpected issue type %s", issue.Type)
		}
		if issue.Position != nil {
			t.Errorf("Expected no position, got %d", *issue.Position)
		}
	}
	if result.Err != "FIX message validation failed with 3 issue(s)" {
		t.Errorf("Unexpected error string %q", result.Err)
	}
}

func TestParseStrictSuccessMatchesRelaxed(t *testing.T) {
	inputs := []string{
		"8=FIX.4.4\x019=123\x0135=D\x0111=ORDER123\x0155=AAPL\x0154=1\x0138=100\x01",
		"8=FIX.4.4\x019=5\x0135=0\x01",
		"8=FIX.4.4\x019=42\x0135=8\x0137=EX1\x01150=F\x0110=017\x01",
	}
	for _, raw := range inputs {
		result := ParseStrict(raw)
		if !result.Success {
			t.Fatalf("Expected success for %q, got %v", raw, result.Issues)
		}
		relaxed := ParseRelaxed(raw)
		if !reflect.DeepEqual(result.Message.Fields, relaxed.Fields) {
			t.Errorf("Strict and relaxed fields diverge for %q", raw)
		}
	}
}

func TestParseStrictNeverPanics(t *testing.T) {
	inputs := []string{
		"", " ", "\x01", "|", "^", "===", "\x00\xff", "10=x",
		strings.Repeat("|", 500),
	}
	for _, raw := range inputs {
		result := ParseStrict(raw)
		if result.Success && result.Message == nil {
			t.Errorf("Success without message for %q", raw)
		}
		if !result.Success && len(result.Issues) == 0 {
			t.Errorf("Failure without issues for %q", raw)
		}
	}
}
