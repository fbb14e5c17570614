// Package fix 提供 FIX 报文的宽松解析、严格校验与确定性修复建议核心。
// 四个入口 (ParseRelaxed / ParseStrict / GenerateRepairSuggestions / AutoRepair)
// 均为纯函数, 无共享可变状态, 可被任意数量的调用方并发使用。
package fix

// IssueType 标识严格校验规则命中的问题类别, 取值为固定闭集。
type IssueType string

const (
	IssueInvalidDelimiter IssueType = "invalid_delimiter"
	IssueMissingEquals    IssueType = "missing_equals"
	IssueInvalidTag       IssueType = "invalid_tag"
	IssueEmptyTag         IssueType = "empty_tag"
	IssueMissingRequired  IssueType = "missing_required_field"
	IssueInvalidOrder     IssueType = "invalid_field_order"
	IssueWhitespace       IssueType = "whitespace_issue"
)

// SuggestionType 标识修复建议的类别。
type SuggestionType string

const (
	SuggestNormalizeDelimiters SuggestionType = "normalize_delimiters"
	SuggestTrimWhitespace      SuggestionType = "trim_whitespace"
	SuggestAddEquals           SuggestionType = "add_equals"
	SuggestFixTagFormat        SuggestionType = "fix_tag_format"
	SuggestAddRequiredFields   SuggestionType = "add_required_fields"
	SuggestReorderFields       SuggestionType = "reorder_fields"
	SuggestGeneral             SuggestionType = "general"
)

// Field 表示报文中的单个 tag=value 字段, 字段序列保留报文内的出现顺序。
// 无法解析的片段 Tag 为 "?"、Name 为 "Unknown"。重复 Tag 合法, 仅产生告警。
type Field struct {
	Tag   string `json:"tag"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageSummary 是从字段流投影出的订单摘要。
// TransType 按 60(TransactTime) > 150(ExecType) > 39(OrdStatus) 的顺序回退取值。
type MessageSummary struct {
	MsgType   string `json:"msgType"`
	ClOrdID   string `json:"clOrdId"`
	OrderID   string `json:"orderId"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	Qty       string `json:"qty"`
	Price     string `json:"price"`
	OrdStatus string `json:"ordStatus"`
	TransType string `json:"transType"`
}

// ParsedMessage 是宽松解析的完整结果。Raw 保存分隔符规范化 (SOH 连接) 后的文本,
// 而非原始字节。每次解析都构造新值, 返回后不再变更。
type ParsedMessage struct {
	Fields   []Field        `json:"fields"`
	Summary  MessageSummary `json:"summary"`
	Warnings []string       `json:"warnings"`
	OrderKey string         `json:"orderKey,omitempty"`
	Raw      string         `json:"raw"`
}

// ParseIssue 是严格校验发现的单个结构问题。
// Position 分属两个索引空间: 分隔符/空白规则用原始文本字符偏移,
// 格式/顺序规则用 SOH 切分后的 token 序号; 对外统一为一个可选数值。
type ParseIssue struct {
	Type     IssueType `json:"type"`
	Message  string    `json:"message"`
	Position *int      `json:"position,omitempty"`
}

// RepairSuggestion 是针对一类问题的确定性修复建议。
// Preview 为修复后文本的截断展示, 上限 100 字节, 超出追加 "..."。
type RepairSuggestion struct {
	Type        SuggestionType `json:"type"`
	Description string         `json:"description"`
	Preview     string         `json:"preview,omitempty"`
}

// StrictResult 是严格解析的判定结果: 成功携带 Message, 失败携带 Err 与全部 Issues。
// 不存在部分成功状态, 也不通过 error 返回值表达校验失败。
type StrictResult struct {
	Success bool           `json:"success"`
	Message *ParsedMessage `json:"message,omitempty"`
	Err     string         `json:"error,omitempty"`
	Issues  []ParseIssue   `json:"issues,omitempty"`
}

// tokenPos 构造 token 序号空间的位置 (格式/顺序规则)。
func tokenPos(i int) *int { return &i }

// charPos 构造字符偏移空间的位置 (分隔符/空白规则)。
func charPos(i int) *int { return &i }
