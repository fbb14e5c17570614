package fix

import (
	"fmt"
	"regexp"
	"strings"
)

// previewLimit 是建议预览的最大字节数, 超出部分以 "..." 截断。
const previewLimit = 100

var (
	// tagValuePattern 从缺失 '=' 的 token 中拆出数字 tag 与剩余 value。
	tagValuePattern = regexp.MustCompile(`^(\d+)(.+)$`)
	// requiredFieldPattern 从必填字段问题文案中提取字段名与 tag。
	requiredFieldPattern = regexp.MustCompile(`Missing required field: (\w+) \((\d+)\)`)
)

// GenerateRepairSuggestions 将问题清单映射为确定性修复建议。
// 纯函数: 输出只取决于 raw 与 issues, 顺序固定为
// 分隔符 > 空白 > 缺失等号 > 非法 tag > 必填字段 > 字段顺序,
// 与 issues 的供给顺序无关。同类问题至多产出一条建议
// (字段顺序除外, 每种违规文案各一条); 全部未命中时落到 general 兜底。
func GenerateRepairSuggestions(raw string, issues []ParseIssue) []RepairSuggestion {
	suggestions := make([]RepairSuggestion, 0, 4)
	if len(issues) == 0 {
		return suggestions
	}

	byType := make(map[IssueType][]ParseIssue, len(issues))
	for _, issue := range issues {
		byType[issue.Type] = append(byType[issue.Type], issue)
	}

	if len(byType[IssueInvalidDelimiter]) > 0 {
		if s, ok := delimiterSuggestion(raw); ok {
			suggestions = append(suggestions, s)
		}
	}
	if len(byType[IssueWhitespace]) > 0 {
		suggestions = append(suggestions, RepairSuggestion{
			Type:        SuggestTrimWhitespace,
			Description: "Remove leading and trailing whitespace",
			Preview:     truncatePreview(strings.Trim(raw, whitespaceCutset)),
		})
	}
	if equalsIssues := byType[IssueMissingEquals]; len(equalsIssues) > 0 {
		if s, ok := equalsSuggestion(equalsIssues[0]); ok {
			suggestions = append(suggestions, s)
		}
	}
	if len(byType[IssueInvalidTag]) > 0 {
		suggestions = append(suggestions, RepairSuggestion{
			Type:        SuggestFixTagFormat,
			Description: "FIX tags must be numeric; use the numeric tag before '=' (e.g. 35=D)",
		})
	}
	if requiredIssues := byType[IssueMissingRequired]; len(requiredIssues) > 0 {
		if s, ok := requiredFieldsSuggestion(requiredIssues); ok {
			suggestions = append(suggestions, s)
		}
	}
	suggestions = append(suggestions, orderSuggestions(byType[IssueInvalidOrder])...)

	if len(suggestions) == 0 {
		suggestions = append(suggestions, RepairSuggestion{
			Type:        SuggestGeneral,
			Description: fmt.Sprintf("Message has %d validation issue(s); review the tag=value structure against the FIX specification", len(issues)),
		})
	}
	return suggestions
}

// delimiterSuggestion 重新扫描原文判定实际使用的分隔符 (不信任 issue 数据),
// 竖线优先于插入符, 每次只建议替换一种。
func delimiterSuggestion(raw string) (RepairSuggestion, bool) {
	var delim byte
	switch {
	case strings.IndexByte(raw, pipeChar) >= 0:
		delim = pipeChar
	case strings.IndexByte(raw, caretChar) >= 0:
		delim = caretChar
	default:
		return RepairSuggestion{}, false
	}
	normalized := strings.ReplaceAll(raw, string(delim), SOH)
	return RepairSuggestion{
		Type:        SuggestNormalizeDelimiters,
		Description: fmt.Sprintf("Replace all '%c' delimiters with SOH (0x01)", delim),
		Preview:     truncatePreview(normalized),
	}, true
}

// equalsSuggestion 从首条缺失等号问题的文案中取出引号内的 token,
// 再按 <数字><剩余> 拆分并在中间补 '='。预览只展示修复后的片段。
func equalsSuggestion(issue ParseIssue) (RepairSuggestion, bool) {
	token := quotedFragment(issue.Message)
	if token == "" {
		return RepairSuggestion{}, false
	}
	m := tagValuePattern.FindStringSubmatch(token)
	if m == nil {
		return RepairSuggestion{}, false
	}
	fixed := m[1] + "=" + m[2]
	return RepairSuggestion{
		Type:        SuggestAddEquals,
		Description: `Insert '=' between tag and value in "` + token + `"`,
		Preview:     truncatePreview(fixed),
	}, true
}

// requiredFieldsSuggestion 聚合全部缺失必填字段为一条建议。
func requiredFieldsSuggestion(issues []ParseIssue) (RepairSuggestion, bool) {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		if m := requiredFieldPattern.FindStringSubmatch(issue.Message); m != nil {
			parts = append(parts, fmt.Sprintf("%s (%s)", m[1], m[2]))
		}
	}
	if len(parts) == 0 {
		return RepairSuggestion{}, false
	}
	return RepairSuggestion{
		Type:        SuggestAddRequiredFields,
		Description: "Add missing required field(s): " + strings.Join(parts, ", "),
	}, true
}

// orderSuggestions 对每种不同的顺序违规文案各产出一条建议。
func orderSuggestions(issues []ParseIssue) []RepairSuggestion {
	var suggestions []RepairSuggestion
	seen := make(map[string]bool, len(issues))
	for _, issue := range issues {
		if seen[issue.Message] {
			continue
		}
		seen[issue.Message] = true
		switch {
		case strings.Contains(issue.Message, "BeginString"):
			suggestions = append(suggestions, RepairSuggestion{
				Type:        SuggestReorderFields,
				Description: "Move BeginString (8) to the front of the message",
			})
		case strings.Contains(issue.Message, "CheckSum"):
			suggestions = append(suggestions, RepairSuggestion{
				Type:        SuggestReorderFields,
				Description: "Move CheckSum (10) to the end of the message",
			})
		}
	}
	return suggestions
}

// quotedFragment 取文案中第一个与最后一个双引号之间的内容,
// token 自带引号时也能整体还原。
func quotedFragment(message string) string {
	first := strings.IndexByte(message, '"')
	last := strings.LastIndexByte(message, '"')
	if first < 0 || last <= first {
		return ""
	}
	return message[first+1 : last]
}

// truncatePreview 将预览限制在 100 字节内, 超长追加省略号。
func truncatePreview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	return s[:previewLimit] + "..."
}

// AutoRepair 只应用两类确定安全的修复: 裁剪首尾空白、把竖线与插入符全部
// 替换为 SOH (两种都替换, 与宽松解析的单分隔符策略不同)。至少一项变换生效时
// 返回修复文本与 true; 原文本已定形时返回 ("", false), 以区分
// "无需修复" 与 "修复后恰好等于原文"。不改写 tag/value 结构,
// 不调整字段顺序, 也不补造必填字段, 那些需要人工判断意图。
func AutoRepair(raw string) (string, bool) {
	repaired := strings.Trim(raw, whitespaceCutset)
	repaired = strings.ReplaceAll(repaired, "|", SOH)
	repaired = strings.ReplaceAll(repaired, "^", SOH)
	if repaired == raw {
		return "", false
	}
	return repaired, true
}
