package fix

// 进程级静态字典, 启动时初始化一次, 运行期只读, 无需加锁。
// 仅覆盖 FIX 4.4 的最小常用子集, 完整协议字典不在目标范围内。

// TagDictionary 将数字 Tag 映射为字段名。
var TagDictionary = map[string]string{
	"1":   "Account",
	"6":   "AvgPx",
	"8":   "BeginString",
	"9":   "BodyLength",
	"10":  "CheckSum",
	"11":  "ClOrdID",
	"14":  "CumQty",
	"17":  "ExecID",
	"21":  "HandlInst",
	"31":  "LastPx",
	"32":  "LastQty",
	"34":  "MsgSeqNum",
	"35":  "MsgType",
	"37":  "OrderID",
	"38":  "OrderQty",
	"39":  "OrdStatus",
	"40":  "OrdType",
	"41":  "OrigClOrdID",
	"44":  "Price",
	"48":  "SecurityID",
	"49":  "SenderCompID",
	"52":  "SendingTime",
	"54":  "Side",
	"55":  "Symbol",
	"56":  "TargetCompID",
	"58":  "Text",
	"59":  "TimeInForce",
	"60":  "TransactTime",
	"99":  "StopPx",
	"150": "ExecType",
	"151": "LeavesQty",
}

// MsgTypes 将 MsgType 代码映射为可读标签, 供展示层使用。
var MsgTypes = map[string]string{
	"0": "Heartbeat",
	"1": "TestRequest",
	"2": "ResendRequest",
	"3": "Reject",
	"4": "SequenceReset",
	"5": "Logout",
	"8": "ExecutionReport",
	"9": "OrderCancelReject",
	"A": "Logon",
	"D": "NewOrderSingle",
	"F": "OrderCancelRequest",
	"G": "OrderCancelReplaceRequest",
	"V": "MarketDataRequest",
	"W": "MarketDataSnapshotFullRefresh",
	"X": "MarketDataIncrementalRefresh",
}

// SideCodes 将 Side(54) 代码映射为可读标签。
var SideCodes = map[string]string{
	"1": "Buy",
	"2": "Sell",
	"3": "BuyMinus",
	"4": "SellPlus",
	"5": "SellShort",
	"6": "SellShortExempt",
}

// OrdStatusCodes 将 OrdStatus(39) 代码映射为可读标签。
var OrdStatusCodes = map[string]string{
	"0": "New",
	"1": "PartiallyFilled",
	"2": "Filled",
	"3": "DoneForDay",
	"4": "Canceled",
	"6": "PendingCancel",
	"8": "Rejected",
	"A": "PendingNew",
	"C": "Expired",
	"E": "PendingReplace",
}

// ExecTypeCodes 将 ExecType(150) 代码映射为可读标签。
var ExecTypeCodes = map[string]string{
	"0": "New",
	"4": "Canceled",
	"5": "Replaced",
	"8": "Rejected",
	"C": "Expired",
	"D": "Restated",
	"F": "Trade",
}

// ResolveTagName 返回 Tag 对应的字段名, 未收录时原样返回 Tag 本身。
func ResolveTagName(tag string) string {
	if name, ok := TagDictionary[tag]; ok {
		return name
	}
	return tag
}
