// Package response 统一 HTTP 响应外壳: code/msg/data 包装、分页包装、
// 业务错误与 gRPC 状态的状态码映射。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HTTPStatusProvider 由可自述 HTTP 状态码的错误实现 (xerrors.Error)。
type HTTPStatusProvider interface {
	HTTPStatus() int
}

// DetailProvider 由携带对内调试明细的错误实现。
type DetailProvider interface {
	ErrorDetail() string
}

// Success 发送 HTTP 200, 业务码 0。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// SuccessWithStatus 发送指定状态码与消息的成功响应 (201 入库、202 受理等)。
func SuccessWithStatus(c *gin.Context, statusCode int, msg string, data any) {
	c.JSON(statusCode, gin.H{
		"code": 0,
		"msg":  msg,
		"data": data,
	})
}

// SuccessWithPagination 发送带分页元数据的列表响应。
func SuccessWithPagination(c *gin.Context, data any, total int64, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"code":   0,
		"msg":    "success",
		"data":   data,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// SuccessWithRawData 原样发送数据, 不套 code/msg 外壳。
// 校验结果与健康检查等自带结构的负载走这里。
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送错误响应: 业务错误按 HTTPStatusProvider 映射状态码,
// gRPC 错误按标准协议映射, 其余兜底 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	statusCode := http.StatusInternalServerError
	msg := err.Error()
	detail := ""

	if e, ok := err.(HTTPStatusProvider); ok {
		statusCode = e.HTTPStatus()
	} else if st, ok := status.FromError(err); ok {
		statusCode = grpcCodeToHTTP(st.Code())
		msg = st.Message()
	}
	if d, ok := err.(DetailProvider); ok {
		detail = d.ErrorDetail()
	}

	c.JSON(statusCode, gin.H{
		"code":   statusCode,
		"msg":    msg,
		"detail": detail,
	})
}

// ErrorWithStatus 发送指定状态码的错误响应。
func ErrorWithStatus(c *gin.Context, statusCode int, msg string, detail string) {
	c.JSON(statusCode, gin.H{
		"code":   statusCode,
		"msg":    msg,
		"detail": detail,
	})
}

// grpcCodeToHTTP gRPC 到 HTTP 的标准映射。
func grpcCodeToHTTP(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499 // Client Closed Request
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
