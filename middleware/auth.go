package middleware

import (
	"net/http"
	"strings"

	"github.com/wyfcoding/fixmonitor/contextx"
	"github.com/wyfcoding/fixmonitor/jwt"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/response"
	"github.com/wyfcoding/fixmonitor/security"

	"github.com/gin-gonic/gin"
)

// JWTAuth 解析 Bearer 令牌并注入用户信息。
// 用户名同时写入请求上下文, 供日志与审计链路使用。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing authorization header", "")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid authorization format", "")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			// 令牌脱敏后记录, 便于排查而不落盘完整凭据。
			logging.Default().WarnContext(c.Request.Context(), "jwt rejected",
				"token", security.MaskToken(parts[1]), "error", err)
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid or expired token", "")
			c.Abort()
			return
		}

		// 注入上下文
		c.Set("username", claims.Username)
		c.Set(security.RolesContextKey, claims.Roles)
		ctx := contextx.WithUserID(c.Request.Context(), claims.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetUsername 从 gin 上下文读取认证后的用户名。
func GetUsername(c *gin.Context) (string, bool) {
	val, exists := c.Get("username")
	if !exists {
		return "", false
	}
	name, ok := val.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
