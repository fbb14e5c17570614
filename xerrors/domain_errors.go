package xerrors

var (
	// ErrEmptyBody 请求体为空或缺少 raw 字段。
	ErrEmptyBody = New(ErrInvalidArg, 400001, "empty message body", "request must carry a raw FIX message", nil)
	// ErrBodyTooLarge 单条报文超过大小上限。
	ErrBodyTooLarge = New(ErrInvalidArg, 400002, "message too large", "raw message exceeds the configured size limit", nil)
	// ErrMessageNotFound 按 ID 查询不到报文。
	ErrMessageNotFound = New(ErrNotFound, 404001, "message not found", "no stored message for the given id", nil)
	// ErrOrderNotFound 按 orderKey 查询不到订单流。
	ErrOrderNotFound = New(ErrNotFound, 404002, "order not found", "no order flow for the given order key", nil)
	// ErrArchiveDisabled 归档功能未开启。
	ErrArchiveDisabled = New(ErrNotFound, 404003, "archive disabled", "enable data.database to query archived messages", nil)
	// ErrStoreUnavailable 存储后端暂不可用 (熔断或连接故障)。
	ErrStoreUnavailable = New(ErrUnavailable, 503001, "message store unavailable", "storage backend is temporarily unavailable", nil)
	// ErrPipelineSaturated 摄取流水线已满, 当前报文被拒绝。
	ErrPipelineSaturated = New(ErrUnavailable, 503002, "ingest pipeline saturated", "side-effect queue is full, retry later", nil)
	// ErrBadCredentials 用户名或密码错误。
	ErrBadCredentials = New(ErrUnauthenticated, 401001, "invalid credentials", "username or password mismatch", nil)
)
