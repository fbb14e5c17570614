// Package middleware 提供了 Gin 的通用中间件实现。
// 生成摘要:
// 1) 新增 HTTP 审计中间件，统一采集动作、主体与结果信息。
// 2) 支持扩展资源标识与元数据，便于落库或异步投递。
// 假设:
// 1) 上游已注入来源/用户/请求 ID 等上下文字段。
package middleware

import (
	"time"

	"github.com/wyfcoding/fixmonitor/audit"
	"github.com/wyfcoding/fixmonitor/contextx"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/tracing"

	"github.com/gin-gonic/gin"
)

// AuditOptions 定义 HTTP 审计中间件的可配置项。
type AuditOptions struct {
	Action     string
	Resource   string
	ResourceID func(c *gin.Context) string
	Metadata   func(c *gin.Context) map[string]string
	SkipPaths  []string
}

// AuditMiddleware 创建 HTTP 审计中间件。
func AuditMiddleware(writer audit.Writer, opts AuditOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if writer == nil || pathSkipped(opts.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		result := audit.ResultSuccess
		if status < 200 || status >= 400 {
			result = audit.ResultFailure
		}

		event := audit.Event{
			Action:     auditAction(opts.Action, c.Request.Method, c.Request.URL.Path),
			Resource:   opts.Resource,
			ActorID:    contextx.GetUserID(ctx),
			Source:     contextx.GetSource(ctx),
			Result:     result,
			StatusCode: status,
			RequestID:  contextx.GetRequestID(ctx),
			TraceID:    tracing.GetTraceID(ctx),
			IP:         contextx.GetIP(ctx),
			UserAgent:  contextx.GetUserAgent(ctx),
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
		}

		if opts.ResourceID != nil {
			event.ResourceID = opts.ResourceID(c)
		}
		if opts.Metadata != nil {
			event.Metadata = opts.Metadata(c)
		}
		if len(c.Errors) > 0 {
			event.Error = c.Errors.String()
		}

		if err := writer.Write(ctx, event); err != nil {
			logging.Error(ctx, "audit writer failed", "error", err)
		}
	}
}

func auditAction(action, method, path string) string {
	if action != "" {
		return action
	}
	return method + " " + path
}

func pathSkipped(paths []string, target string) bool {
	if len(paths) == 0 {
		return false
	}
	for _, p := range paths {
		if p == target {
			return true
		}
	}
	return false
}
