// Package app 提供应用容器: 注册服务器与清理函数, 统一处理
// 启动、信号监听与优雅关闭。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/fixmonitor/server"
)

const shutdownTimeout = 10 * time.Second

// App 应用生命周期容器。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
	ctx    context.Context
	cancel func()
}

// New 创建应用实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		name:   name,
		logger: logger,
		opts:   o,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 启动全部服务器并阻塞至 SIGINT/SIGTERM 或任一服务器失败,
// 随后在超时内优雅停止并执行清理函数。
func (a *App) Run() error {
	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid())

	for _, srv := range a.opts.servers {
		go func(s server.Server) {
			if err := s.Start(a.ctx); err != nil {
				a.logger.Error("server failed", "error", err)
				a.cancel()
			}
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		a.logger.Info("shutdown signal received", "name", a.name, "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Warn("shutting down after server failure", "name", a.name)
	}

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("server failed to stop", "error", err)
			return err
		}
	}

	// 清理按注册逆序执行, 先建的依赖后释放。
	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	a.logger.Info("application shut down gracefully", "name", a.name)
	return nil
}
