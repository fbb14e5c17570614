// Package contextx 用私有 Key 在 context.Context 中注入与提取请求级业务信息
// (请求 ID、用户、客户端 IP、报文来源等), 避免跨包 Key 冲突。
package contextx

import (
	"context"
)

type contextKey int

const (
	RequestIDKey contextKey = iota // 请求唯一标识。
	UserIDKey                      // 登录用户标识。
	RoleKey                        // 用户角色。
	IPKey                          // 客户端 IP。
	UAKey                          // 用户代理。
	SourceKey                      // 报文来源 (api / upload / repair)。
)

// KeyNames 映射 Key 到日志字段名。
var KeyNames = map[contextKey]string{
	RequestIDKey: "request_id",
	UserIDKey:    "user_id",
	RoleKey:      "user_role",
	IPKey:        "client_ip",
	UAKey:        "user_agent",
	SourceKey:    "message_source",
}

// WithRequestID 注入请求 ID。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 提取请求 ID, 不存在时返回空串。
func GetRequestID(ctx context.Context) string {
	if val, ok := ctx.Value(RequestIDKey).(string); ok {
		return val
	}
	return ""
}

// WithUserID 注入用户 ID。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID 提取用户 ID, 不存在时返回空串。
func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(UserIDKey).(string); ok {
		return val
	}
	return ""
}

// WithRole 注入用户角色。
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetRole 提取用户角色, 不存在时返回空串。
func GetRole(ctx context.Context) string {
	if val, ok := ctx.Value(RoleKey).(string); ok {
		return val
	}
	return ""
}

// WithIP 注入客户端 IP。
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, IPKey, ip)
}

// GetIP 提取客户端 IP, 不存在时返回回环占位。
func GetIP(ctx context.Context) string {
	if val, ok := ctx.Value(IPKey).(string); ok {
		return val
	}
	return "0.0.0.0"
}

// WithUserAgent 注入 User-Agent。
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, UAKey, ua)
}

// GetUserAgent 提取 User-Agent, 不存在时返回 "Unknown"。
func GetUserAgent(ctx context.Context) string {
	if val, ok := ctx.Value(UAKey).(string); ok {
		return val
	}
	return "Unknown"
}

// WithSource 注入报文来源, 摄取链路用于区分 API 提交、文件上传与修复回放。
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetSource 提取报文来源, 不存在时返回 "api"。
func GetSource(ctx context.Context) string {
	if val, ok := ctx.Value(SourceKey).(string); ok {
		return val
	}
	return "api"
}
