// Package server 提供 HTTP 服务器的启动与优雅关闭封装。
package server

import "context"

// Server 服务器生命周期契约。实现 Start/Stop 即可交由 app 统一管理。
type Server interface {
	// Start 启动服务器, 阻塞到发生错误或上下文取消。
	Start(ctx context.Context) error
	// Stop 优雅停止, 等待在途请求在超时内完成。
	Stop(ctx context.Context) error
}
