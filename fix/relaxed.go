package fix

import (
	"fmt"
	"strings"
)

// SOH 是 FIX 标准字段分隔符 (0x01)。
const SOH = "\x01"

const (
	sohChar   = byte(0x01)
	pipeChar  = byte('|')
	caretChar = byte('^')
)

// whitespaceCutset 是空白规则与 AutoRepair 共用的裁剪字符集,
// 两处保持一致才能保证 "严格校验通过的报文无可自动修复项" 成立。
const whitespaceCutset = " \t\n\r"

// 摘要与必填字段涉及的 Tag。
const (
	TagBeginString  = "8"
	TagBodyLength   = "9"
	TagCheckSum     = "10"
	TagClOrdID      = "11"
	TagMsgType      = "35"
	TagOrderID      = "37"
	TagOrderQty     = "38"
	TagOrdStatus    = "39"
	TagPrice        = "44"
	TagSide         = "54"
	TagSymbol       = "55"
	TagTransactTime = "60"
	TagExecType     = "150"
)

// detectDelimiter 按 SOH > '|' > '^' 的优先级探测分隔符, 都未出现时默认 SOH。
func detectDelimiter(raw string) byte {
	if strings.IndexByte(raw, sohChar) >= 0 {
		return sohChar
	}
	if strings.IndexByte(raw, pipeChar) >= 0 {
		return pipeChar
	}
	if strings.IndexByte(raw, caretChar) >= 0 {
		return caretChar
	}
	return sohChar
}

// normalizeDelimiter 将探测到的单一分隔符全部替换为 SOH。
// 每次调用只替换一种分隔符: 混用 '|' 与 '^' 的报文只替换优先级高的那种,
// 另一种作为普通字符保留在字段值里。
func normalizeDelimiter(raw string) (string, byte) {
	delim := detectDelimiter(raw)
	if delim == sohChar {
		return raw, delim
	}
	return strings.ReplaceAll(raw, string(delim), SOH), delim
}

// splitFields 按 SOH 切分并丢弃空段, 末尾或连续的分隔符不会产生幻影字段。
func splitFields(normalized string) []string {
	parts := strings.Split(normalized, SOH)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// parseToken 按第一个 '=' 拆出 tag 与 value, 没有 '=' 的片段降级为 Unknown 字段。
func parseToken(token string) Field {
	if idx := strings.IndexByte(token, '='); idx >= 0 {
		tag := token[:idx]
		return Field{Tag: tag, Name: ResolveTagName(tag), Value: token[idx+1:]}
	}
	return Field{Tag: "?", Name: "Unknown", Value: token}
}

// ParseRelaxed 对原始报文做宽松解析。全函数: 任何输入都不会失败,
// 最坏情形是空字段表加多条告警。畸形内容只降级, 不报错。
func ParseRelaxed(raw string) ParsedMessage {
	normalized, delim := normalizeDelimiter(raw)
	tokens := splitFields(normalized)

	fields := make([]Field, 0, len(tokens))
	values := make(map[string]string, len(tokens))
	counts := make(map[string]int, len(tokens))
	tagOrder := make([]string, 0, len(tokens))
	emptyValueTags := make([]string, 0)
	emptySeen := make(map[string]bool)

	for _, token := range tokens {
		f := parseToken(token)
		fields = append(fields, f)
		if counts[f.Tag] == 0 {
			tagOrder = append(tagOrder, f.Tag)
		}
		counts[f.Tag]++
		// 摘要取值对重复 Tag 采用后写覆盖, 字段表仍保留全部出现。
		values[f.Tag] = f.Value
		if f.Value == "" && !emptySeen[f.Tag] {
			emptySeen[f.Tag] = true
			emptyValueTags = append(emptyValueTags, f.Tag)
		}
	}

	warnings := make([]string, 0, 4)
	if delim != sohChar {
		warnings = append(warnings, fmt.Sprintf("Non-standard delimiter '%c' detected, normalized to SOH", delim))
	}
	if values[TagBeginString] == "" {
		warnings = append(warnings, "Missing BeginString (tag 8)")
	}
	if values[TagMsgType] == "" {
		warnings = append(warnings, "Missing MsgType (tag 35)")
	}
	for _, tag := range tagOrder {
		if n := counts[tag]; n > 1 {
			warnings = append(warnings, fmt.Sprintf("Duplicate tag %s appears %d times", tag, n))
		}
	}
	if len(emptyValueTags) > 0 {
		warnings = append(warnings, fmt.Sprintf("Empty value for tag(s): %s", strings.Join(emptyValueTags, ", ")))
	}

	summary := MessageSummary{
		MsgType:   values[TagMsgType],
		ClOrdID:   values[TagClOrdID],
		OrderID:   values[TagOrderID],
		Symbol:    values[TagSymbol],
		Side:      values[TagSide],
		Qty:       values[TagOrderQty],
		Price:     values[TagPrice],
		OrdStatus: values[TagOrdStatus],
	}
	switch {
	case values[TagTransactTime] != "":
		summary.TransType = values[TagTransactTime]
	case values[TagExecType] != "":
		summary.TransType = values[TagExecType]
	default:
		summary.TransType = values[TagOrdStatus]
	}

	return ParsedMessage{
		Fields:   fields,
		Summary:  summary,
		Warnings: warnings,
		OrderKey: summary.ClOrdID,
		Raw:      normalized,
	}
}
