package fix

import (
	"fmt"
	"strings"
)

// requiredTags 是严格校验要求的报文头字段, 按检查顺序排列。
var requiredTags = []string{TagBeginString, TagBodyLength, TagMsgType}

// ParseStrict 对原始报文做严格校验。五组规则全部执行且互不短路,
// 聚合所有问题后一次性判定: 有问题返回失败与完整问题清单,
// 无问题则复用宽松解析的字段提取并包装为成功。永不 panic。
func ParseStrict(raw string) StrictResult {
	issues := make([]ParseIssue, 0, 4)
	issues = append(issues, checkDelimiters(raw)...)
	issues = append(issues, checkFieldFormat(raw)...)
	issues = append(issues, checkRequiredFields(raw)...)
	issues = append(issues, checkFieldOrder(raw)...)
	issues = append(issues, checkWhitespace(raw)...)

	if len(issues) > 0 {
		return StrictResult{
			Success: false,
			Err:     fmt.Sprintf("FIX message validation failed with %d issue(s)", len(issues)),
			Issues:  issues,
		}
	}

	msg := ParseRelaxed(raw)
	return StrictResult{Success: true, Message: &msg}
}

// checkDelimiters 在原始文本中查找竖线与插入符。两项独立判定,
// 可同时命中; Position 为各自首次出现的字符偏移。
func checkDelimiters(raw string) []ParseIssue {
	var issues []ParseIssue
	if idx := strings.IndexByte(raw, pipeChar); idx >= 0 {
		issues = append(issues, ParseIssue{
			Type:     IssueInvalidDelimiter,
			Message:  "Invalid delimiter '|' found, expected SOH (0x01)",
			Position: charPos(idx),
		})
	}
	if idx := strings.IndexByte(raw, caretChar); idx >= 0 {
		issues = append(issues, ParseIssue{
			Type:     IssueInvalidDelimiter,
			Message:  "Invalid delimiter '^' found, expected SOH (0x01)",
			Position: charPos(idx),
		})
	}
	return issues
}

// checkFieldFormat 按 SOH 切分 (不做分隔符归一) 后逐 token 检查 tag=value 形态。
// 使用非标分隔符的报文在这里只会看到一个大 token, 分隔符问题由 checkDelimiters
// 单独上报。Position 为 token 在切分数组中的序号。
func checkFieldFormat(raw string) []ParseIssue {
	var issues []ParseIssue
	for i, token := range splitFields(raw) {
		idx := strings.IndexByte(token, '=')
		switch {
		case idx < 0:
			issues = append(issues, ParseIssue{
				Type:     IssueMissingEquals,
				Message:  `Field missing '=' separator: "` + token + `"`,
				Position: tokenPos(i),
			})
		case idx == 0:
			issues = append(issues, ParseIssue{
				Type:     IssueEmptyTag,
				Message:  `Empty tag in field: "` + token + `"`,
				Position: tokenPos(i),
			})
		case !isNumericTag(token[:idx]):
			issues = append(issues, ParseIssue{
				Type:     IssueInvalidTag,
				Message:  `Invalid tag "` + token[:idx] + `": tag must be numeric`,
				Position: tokenPos(i),
			})
		}
	}
	return issues
}

// checkRequiredFields 收集出现过的 Tag 集合并检查 8/9/35 是否齐备。
// 缺失项各自上报一条, 属于报文级问题, 不带位置。
func checkRequiredFields(raw string) []ParseIssue {
	present := make(map[string]bool)
	for _, token := range splitFields(raw) {
		if idx := strings.IndexByte(token, '='); idx >= 0 {
			present[token[:idx]] = true
		} else {
			present[token] = true
		}
	}

	var issues []ParseIssue
	for _, tag := range requiredTags {
		if !present[tag] {
			issues = append(issues, ParseIssue{
				Type:    IssueMissingRequired,
				Message: fmt.Sprintf("Missing required field: %s (%s)", ResolveTagName(tag), tag),
			})
		}
	}
	return issues
}

// checkFieldOrder 校验 BeginString 居首、CheckSum 居尾 (仅当 CheckSum 出现时)。
// 空 token 数组时跳过。Position 为 token 序号。
func checkFieldOrder(raw string) []ParseIssue {
	tokens := splitFields(raw)
	if len(tokens) == 0 {
		return nil
	}

	var issues []ParseIssue
	if !strings.HasPrefix(tokens[0], TagBeginString+"=") {
		issues = append(issues, ParseIssue{
			Type:     IssueInvalidOrder,
			Message:  "BeginString (8) must be first field",
			Position: tokenPos(0),
		})
	}
	hasChecksum := false
	for _, token := range tokens {
		if strings.HasPrefix(token, TagCheckSum+"=") {
			hasChecksum = true
			break
		}
	}
	if hasChecksum && !strings.HasPrefix(tokens[len(tokens)-1], TagCheckSum+"=") {
		issues = append(issues, ParseIssue{
			Type:     IssueInvalidOrder,
			Message:  "CheckSum (10) must be last field",
			Position: tokenPos(len(tokens) - 1),
		})
	}
	return issues
}

// checkWhitespace 检查原始文本 (切分与归一之前) 的首尾空白,
// 首尾各自独立上报; Position 为字符偏移。
func checkWhitespace(raw string) []ParseIssue {
	if raw == "" {
		return nil
	}
	var issues []ParseIssue
	if strings.IndexByte(whitespaceCutset, raw[0]) >= 0 {
		issues = append(issues, ParseIssue{
			Type:     IssueWhitespace,
			Message:  "Message has leading whitespace",
			Position: charPos(0),
		})
	}
	if strings.IndexByte(whitespaceCutset, raw[len(raw)-1]) >= 0 {
		issues = append(issues, ParseIssue{
			Type:     IssueWhitespace,
			Message:  "Message has trailing whitespace",
			Position: charPos(len(raw) - 1),
		})
	}
	return issues
}

// isNumericTag 判断 tag 是否为纯数字 (ASCII), 空串不合法。
func isNumericTag(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
