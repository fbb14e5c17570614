// Package middleware 提供了通用的 Gin 中间件实现。
// 生成摘要:
// 1) 新增 HTTP 上下文增强中间件，自动注入 IP/UA/来源信息。
// 假设:
// 1) 摄取来源使用请求头 X-Source 传递。
package middleware

import (
	"github.com/wyfcoding/fixmonitor/contextx"

	"github.com/gin-gonic/gin"
)

// HeaderXSource 定义摄取来源的请求头名称。
const HeaderXSource = "X-Source"

// RequestContextEnricher 返回一个 Gin 中间件，用于注入常用上下文字段。
func RequestContextEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = contextx.WithIP(ctx, c.ClientIP())
		ctx = contextx.WithUserAgent(ctx, c.Request.UserAgent())

		if source := c.GetHeader(HeaderXSource); source != "" {
			ctx = contextx.WithSource(ctx, source)
		}

		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
