package app

import "github.com/wyfcoding/fixmonitor/server"

// Option 应用配置选项。
type Option func(*options)

type options struct {
	servers  []server.Server
	cleanups []func()
}

// WithServer 注册一个或多个服务器, 随应用启动与停止。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 注册关闭时执行的清理函数, 按注册逆序调用。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}
