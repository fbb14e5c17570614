package security

import (
	"strings"
)

// MaskString 提供通用的字符串掩码逻辑，用于日志中隐藏令牌等敏感值。
// 参数：s 原始字符串，prefixLen 前部保留长度，suffixLen 后部保留长度。
func MaskString(s string, prefixLen, suffixLen int) string {
	runes := []rune(s)
	length := len(runes)
	if length <= prefixLen+suffixLen {
		return s
	}
	return string(runes[:prefixLen]) + "****" + string(runes[length-suffixLen:])
}

// MaskToken 针对 Bearer 令牌的脱敏处理。
// 规则：保留前 6 位，其余部分丢弃 (例如: eyJhbG****)。
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 6 {
		return "****"
	}
	return token[:6] + "****"
}
