package api

import (
	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/jwt"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/response"
	"github.com/wyfcoding/fixmonitor/security"
	"github.com/wyfcoding/fixmonitor/xerrors"

	"github.com/gin-gonic/gin"
)

// AuthHandler 登录签发 JWT。用户表来自配置, 密码为 bcrypt 哈希。
type AuthHandler struct {
	Users  []config.UserCredential
	JWT    config.JWTConfig
	Logger *logging.Logger
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Login POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, xerrors.InvalidArg("username and password are required"))
		return
	}

	var matched *config.UserCredential
	for i := range h.Users {
		if h.Users[i].Username == req.Username {
			matched = &h.Users[i]
			break
		}
	}
	// 未知用户也走一次哈希比较的时间, 不泄露用户是否存在。
	if matched == nil {
		security.CheckPassword(req.Password, "")
		h.rejectLogin(c, req.Username)
		return
	}
	if !security.CheckPassword(req.Password, matched.PasswordHash) {
		h.rejectLogin(c, req.Username)
		return
	}

	token, err := jwt.GenerateToken(matched.Username, matched.Roles, h.JWT.Secret, h.JWT.Issuer, h.JWT.ExpireDuration)
	if err != nil {
		response.Error(c, xerrors.WrapInternal(err, "failed to issue token"))
		return
	}

	response.Success(c, loginResponse{
		Token:    token,
		Username: matched.Username,
		Roles:    matched.Roles,
	})
}

// rejectLogin 统一处理凭据错误: 用户名脱敏后记录, 响应不区分失败原因。
func (h *AuthHandler) rejectLogin(c *gin.Context, username string) {
	if h.Logger != nil {
		h.Logger.WarnContext(c.Request.Context(), "login rejected",
			"username", security.MaskString(username, 2, 0), "ip", c.ClientIP())
	}
	response.Error(c, xerrors.ErrBadCredentials)
}
