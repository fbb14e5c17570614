package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/fixmonitor/config"
)

const defaultAllowHeaders = "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-Source"

// CORS 是一个 Gin 中间件，用于处理跨域资源共享 (CORS) 请求.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", defaultAllowHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}

// CORSWithConfig 根据配置构造 CORS 中间件, 配置为空的字段回退到宽松默认值。
func CORSWithConfig(cfg config.CORSConfig) gin.HandlerFunc {
	allowOrigins := cfg.AllowOrigins
	allowAll := len(allowOrigins) == 0
	for _, origin := range allowOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}

	originSet := make(map[string]struct{}, len(allowOrigins))
	for _, origin := range allowOrigins {
		originSet[origin] = struct{}{}
	}

	allowMethods := "POST, OPTIONS, GET, PUT, DELETE, PATCH"
	if len(cfg.AllowMethods) > 0 {
		allowMethods = strings.Join(cfg.AllowMethods, ", ")
	}

	allowHeaders := defaultAllowHeaders
	if len(cfg.AllowHeaders) > 0 {
		allowHeaders = strings.Join(cfg.AllowHeaders, ", ")
	}

	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := originSet[origin]; !ok {
				// 非白名单来源不下发 CORS 头, 浏览器侧拦截。
				c.Next()
				return
			}
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", allowMethods)
		if exposeHeaders != "" {
			c.Writer.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}
