package fix

import (
	"strings"
	"testing"
)

func TestRepairSuggestionsFromPipeFailure(t *testing.T) {
	raw := "8=FIX.4.4|35=D|11=X|"
	result := ParseStrict(raw)
	if result.Success {
		t.Fatal("Expected validation failure")
	}

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %v", suggestions)
	}
	if suggestions[0].Type != SuggestNormalizeDelimiters {
		t.Errorf("Expected normalize_delimiters first, got %s", suggestions[0].Type)
	}
	if !strings.Contains(suggestions[0].Preview, SOH) || strings.Contains(suggestions[0].Preview, "|") {
		t.Errorf("Preview should be SOH-joined, got %q", suggestions[0].Preview)
	}
	if suggestions[1].Type != SuggestAddRequiredFields {
		t.Errorf("Expected add_required_fields second, got %s", suggestions[1].Type)
	}
	if !strings.Contains(suggestions[1].Description, "BodyLength (9)") {
		t.Errorf("Expected BodyLength (9) listed, got %q", suggestions[1].Description)
	}
}

func TestRepairSuggestionsPriorityOrder(t *testing.T) {
	// 六类问题同时在场, 建议按固定优先级输出, 与 issue 顺序无关。
	raw := " XX=1\x0135D\x01|9=2\x01 "
	result := ParseStrict(raw)
	if result.Success {
		t.Fatal("Expected validation failure")
	}

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	want := []SuggestionType{
		SuggestNormalizeDelimiters,
		SuggestTrimWhitespace,
		SuggestAddEquals,
		SuggestFixTagFormat,
		SuggestAddRequiredFields,
		SuggestReorderFields,
	}
	if len(suggestions) != len(want) {
		t.Fatalf("Expected %d suggestions, got %d: %v", len(want), len(suggestions), suggestions)
	}
	for i, typ := range want {
		if suggestions[i].Type != typ {
			t.Errorf("Position %d: expected %s, got %s", i, typ, suggestions[i].Type)
		}
	}
}

func TestRepairSuggestionsAddEqualsPreview(t *testing.T) {
	raw := "8=FIX.4.4\x019=100\x0135D\x01"
	result := ParseStrict(raw)

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	var addEquals *RepairSuggestion
	for i := range suggestions {
		if suggestions[i].Type == SuggestAddEquals {
			addEquals = &suggestions[i]
		}
	}
	if addEquals == nil {
		t.Fatalf("Expected add_equals suggestion, got %v", suggestions)
	}
	if addEquals.Preview != "35=D" {
		t.Errorf("Preview should show the corrected fragment, got %q", addEquals.Preview)
	}
	if !strings.Contains(addEquals.Description, `"35D"`) {
		t.Errorf("Description should quote the token, got %q", addEquals.Description)
	}
}

func TestRepairSuggestionsInvalidTagGeneric(t *testing.T) {
	raw := "8=FIX.4.4\x019=1\x0135=D\x01AB=5\x01"
	result := ParseStrict(raw)

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	if len(suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %v", suggestions)
	}
	if suggestions[0].Type != SuggestFixTagFormat {
		t.Errorf("Expected fix_tag_format, got %s", suggestions[0].Type)
	}
	if suggestions[0].Preview != "" {
		t.Errorf("Generic guidance has no preview, got %q", suggestions[0].Preview)
	}
}

func TestRepairSuggestionsRequiredAggregated(t *testing.T) {
	result := ParseStrict("")

	suggestions := GenerateRepairSuggestions("", result.Issues)

	if len(suggestions) != 1 {
		t.Fatalf("Expected one aggregated suggestion, got %v", suggestions)
	}
	s := suggestions[0]
	if s.Type != SuggestAddRequiredFields {
		t.Fatalf("Expected add_required_fields, got %s", s.Type)
	}
	for _, part := range []string{"BeginString (8)", "BodyLength (9)", "MsgType (35)"} {
		if !strings.Contains(s.Description, part) {
			t.Errorf("Description should list %s, got %q", part, s.Description)
		}
	}
}

func TestRepairSuggestionsReorderBoth(t *testing.T) {
	raw := "35=D\x0110=000\x018=FIX.4.4\x019=1\x01"
	result := ParseStrict(raw)

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 reorder suggestions, got %v", suggestions)
	}
	if suggestions[0].Type != SuggestReorderFields || suggestions[1].Type != SuggestReorderFields {
		t.Errorf("Expected reorder_fields pair, got %v", suggestions)
	}
	if !strings.Contains(suggestions[0].Description, "BeginString") {
		t.Errorf("First should move BeginString, got %q", suggestions[0].Description)
	}
	if !strings.Contains(suggestions[1].Description, "CheckSum") {
		t.Errorf("Second should move CheckSum, got %q", suggestions[1].Description)
	}
}

func TestRepairSuggestionsGeneralFallback(t *testing.T) {
	// empty_tag 没有专属映射, 单独出现时落到 general 兜底。
	raw := "8=FIX.4.4\x019=12\x0135=D\x01=value\x01"
	result := ParseStrict(raw)

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	if len(suggestions) != 1 {
		t.Fatalf("Expected fallback only, got %v", suggestions)
	}
	if suggestions[0].Type != SuggestGeneral {
		t.Errorf("Expected general, got %s", suggestions[0].Type)
	}
	if !strings.Contains(suggestions[0].Description, "1 validation issue(s)") {
		t.Errorf("Fallback should state the count, got %q", suggestions[0].Description)
	}
}

func TestRepairSuggestionsEmptyIssues(t *testing.T) {
	suggestions := GenerateRepairSuggestions("8=FIX.4.4\x01", nil)

	if suggestions == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(suggestions) != 0 {
		t.Errorf("Nothing to repair should yield no suggestions, got %v", suggestions)
	}
}

func TestRepairSuggestionsPreviewTruncation(t *testing.T) {
	raw := "8=FIX.4.4|" + strings.Repeat("55=AAPL|", 20)
	result := ParseStrict(raw)

	suggestions := GenerateRepairSuggestions(raw, result.Issues)

	if len(suggestions) == 0 || suggestions[0].Type != SuggestNormalizeDelimiters {
		t.Fatalf("Expected normalize_delimiters, got %v", suggestions)
	}
	preview := suggestions[0].Preview
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Long preview should be truncated, got %q", preview)
	}
	if len(preview) != previewLimit+3 {
		t.Errorf("Expected %d bytes, got %d", previewLimit+3, len(preview))
	}
}

func TestSuggestionTypesExplainedByIssues(t *testing.T) {
	explains := map[SuggestionType]IssueType{
		SuggestNormalizeDelimiters: IssueInvalidDelimiter,
		SuggestTrimWhitespace:      IssueWhitespace,
		SuggestAddEquals:           IssueMissingEquals,
		SuggestFixTagFormat:        IssueInvalidTag,
		SuggestAddRequiredFields:   IssueMissingRequired,
		SuggestReorderFields:       IssueInvalidOrder,
	}
	inputs := []string{
		"8=FIX.4.4|35=D|11=X|",
		" XX=1\x0135D\x01|9=2\x01 ",
		"35=D\x0110=000\x018=FIX.4.4\x019=1\x01",
		"8=FIX.4.4\x019=12\x0135=D\x01=value\x01",
		"",
		"10=x\x01",
	}
	for _, raw := range inputs {
		result := ParseStrict(raw)
		if result.Success {
			continue
		}
		present := make(map[IssueType]bool)
		for _, issue := range result.Issues {
			present[issue.Type] = true
		}
		for _, s := range GenerateRepairSuggestions(raw, result.Issues) {
			if s.Type == SuggestGeneral {
				continue
			}
			if !present[explains[s.Type]] {
				t.Errorf("Suggestion %s not explained by issues of %q: %v", s.Type, raw, result.Issues)
			}
		}
	}
}

func TestAutoRepairTrims(t *testing.T) {
	raw := " 8=FIX.4.4\x019=100\x0135=D\x01 "

	repaired, changed := AutoRepair(raw)

	if !changed {
		t.Fatal("Expected repair to apply")
	}
	if repaired != "8=FIX.4.4\x019=100\x0135=D\x01" {
		t.Errorf("Unexpected repaired text %q", repaired)
	}
}

func TestAutoRepairNormalizesBothDelimiters(t *testing.T) {
	repaired, changed := AutoRepair("8=FIX.4.4|35=D^55=X")

	if !changed {
		t.Fatal("Expected repair to apply")
	}
	if repaired != "8=FIX.4.4\x0135=D\x0155=X" {
		t.Errorf("Both delimiter kinds should normalize, got %q", repaired)
	}
}

func TestAutoRepairNothingToRepair(t *testing.T) {
	repaired, changed := AutoRepair("8=FIX.4.4\x0135=D\x01")

	if changed {
		t.Errorf("Clean input must report nothing to repair, got %q", repaired)
	}
	if repaired != "" {
		t.Errorf("Unchanged result must be empty, got %q", repaired)
	}
}

func TestAutoRepairNullSafety(t *testing.T) {
	inputs := []string{
		"8=FIX.4.4\x0135=D\x01",
		" 8=FIX.4.4\x01",
		"8=FIX.4.4\x01\t",
		"8=FIX.4.4|35=D",
		"8=FIX.4.4^35=D",
		"  ",
		"",
		"8=FI X.4.4\x01",
		"\r8=FIX.4.4\x01",
	}
	for _, raw := range inputs {
		_, changed := AutoRepair(raw)
		needs := strings.Trim(raw, whitespaceCutset) != raw || strings.ContainsAny(raw, "|^")
		if changed != needs {
			t.Errorf("AutoRepair(%q) changed=%v, expected %v", raw, changed, needs)
		}
	}
}
