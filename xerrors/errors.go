package xerrors

import (
	"fmt"
	"net/http"
	"runtime"

	"google.golang.org/grpc/codes"
)

// ErrorType 错误大类, 决定对外协议状态码的映射。
type ErrorType uint

const (
	ErrUnknown ErrorType = iota
	ErrInternal
	ErrInvalidArg
	ErrNotFound
	ErrAlreadyExists
	ErrPermissionDenied
	ErrUnauthenticated
	ErrDeadlineExceeded
	ErrUnavailable
	ErrLimitExceeded
	ErrUnprocessable
)

func (t ErrorType) String() string {
	return [...]string{
		"Unknown", "Internal", "InvalidArg", "NotFound", "AlreadyExists",
		"PermissionDenied", "Unauthenticated", "DeadlineExceeded",
		"Unavailable", "LimitExceeded", "Unprocessable",
	}[t]
}

// Error 携带业务码、对外消息、对内明细与调用栈的错误。
// 注意: FIX 报文校验失败不是 Error, 校验结果由解析核心以结构化返回值表达;
// 这里只承载程序性故障 (存储不可用、配置非法、上游超时等)。
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Detail  string         `json:"detail"`
	Cause   error          `json:"-"`
	Stack   []string       `json:"stack"`
	Context map[string]any `json:"context"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %d: %s (Cause: %v)", e.Type.String(), e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %d: %s", e.Type.String(), e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorDetail 返回对内调试明细, 响应层按需透出。
func (e *Error) ErrorDetail() string {
	return e.Detail
}

// New 构造错误并捕获调用栈。
func New(errType ErrorType, code int, message string, detail string, cause error) *Error {
	e := &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
		Context: make(map[string]any),
	}
	e.captureStack()
	return e
}

// captureStack 记录最多 10 层调用栈, 跳过构造函数自身。
func (e *Error) captureStack() {
	const depth = 10
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		e.Stack = append(e.Stack, fmt.Sprintf("%s:%d (%s)", frame.File, frame.Line, frame.Function))
		if !more || len(e.Stack) >= depth {
			break
		}
	}
}

// WithContext 附加排查用的上下文键值 (message_id, order_key 等)。
func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// WithDetail 设置对内调试明细。
func (e *Error) WithDetail(format string, args ...any) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// 快捷构造。

func Internal(msg string, cause error) *Error {
	return New(ErrInternal, 500, msg, "", cause)
}

func InvalidArg(msg string) *Error {
	return New(ErrInvalidArg, 400, msg, "", nil)
}

func NotFound(msg string) *Error {
	return New(ErrNotFound, 404, msg, "", nil)
}

func Unauthenticated(msg string) *Error {
	return New(ErrUnauthenticated, 401, msg, "", nil)
}

func Unavailable(msg string, cause error) *Error {
	return New(ErrUnavailable, 503, msg, "", cause)
}

func Unprocessable(msg string) *Error {
	return New(ErrUnprocessable, 422, msg, "", nil)
}

// Wrap 包装既有错误。已是 *Error 的保留原类型与堆栈, 仅更新 Message 与 Cause。
func Wrap(err error, errType ErrorType, msg string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := FromError(err); ok {
		e.Cause = err
		e.Message = msg
		return e
	}
	return New(errType, int(errType), msg, "", err)
}

// WrapInternal 包装为内部错误。
func WrapInternal(err error, msg string) *Error {
	return Wrap(err, ErrInternal, msg)
}

// HTTPStatus 映射 HTTP 状态码。
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case ErrInvalidArg:
		return http.StatusBadRequest
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrPermissionDenied:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAlreadyExists:
		return http.StatusConflict
	case ErrUnprocessable:
		return http.StatusUnprocessableEntity
	case ErrLimitExceeded:
		return http.StatusTooManyRequests
	case ErrDeadlineExceeded:
		return http.StatusGatewayTimeout
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode 映射 gRPC 状态码。
func (e *Error) GRPCCode() codes.Code {
	switch e.Type {
	case ErrInvalidArg, ErrUnprocessable:
		return codes.InvalidArgument
	case ErrUnauthenticated:
		return codes.Unauthenticated
	case ErrPermissionDenied:
		return codes.PermissionDenied
	case ErrNotFound:
		return codes.NotFound
	case ErrAlreadyExists:
		return codes.AlreadyExists
	case ErrLimitExceeded:
		return codes.ResourceExhausted
	case ErrDeadlineExceeded:
		return codes.DeadlineExceeded
	case ErrUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// FromError 判断并取回 *Error。
func FromError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	e, ok := err.(*Error)
	return e, ok
}
