package security

import (
	"net/http"

	"github.com/wyfcoding/fixmonitor/response"

	"github.com/gin-gonic/gin"
)

// RolesContextKey 鉴权中间件写入 gin 上下文的角色清单键。
const RolesContextKey = "user_roles"

// RequireRoles 检查当前用户是否持有任一允许的角色。
// 角色清单由鉴权中间件从 JWT 载荷注入, 未登录请求直接拒绝。
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		val, exists := c.Get(RolesContextKey)
		if !exists {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "authentication required", "no roles in request context")
			c.Abort()
			return
		}

		roles, ok := val.([]string)
		if !ok {
			response.ErrorWithStatus(c, http.StatusForbidden, "insufficient permissions", "malformed role claims")
			c.Abort()
			return
		}

		for _, role := range roles {
			if _, ok := allowed[role]; ok {
				c.Next()
				return
			}
		}

		response.ErrorWithStatus(c, http.StatusForbidden, "insufficient permissions", "role not allowed for this operation")
		c.Abort()
	}
}
