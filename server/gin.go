package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wyfcoding/fixmonitor/config"

	"github.com/gin-gonic/gin"
)

const defaultShutdownTimeout = 5 * time.Second

// GinServer 封装 http.Server 运行 gin 引擎, 超时参数来自配置。
type GinServer struct {
	server *http.Server
	addr   string
	logger *slog.Logger
}

// NewGinServer 按 HTTP 配置创建服务器。
func NewGinServer(engine *gin.Engine, cfg config.ServerConfig, logger *slog.Logger) *GinServer {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Addr, cfg.HTTP.Port)
	return &GinServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			IdleTimeout:       cfg.HTTP.IdleTimeout,
			MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		},
		addr:   addr,
		logger: logger,
	}
}

// Start 启动监听, 阻塞直到上下文取消或监听失败。
// 取消时执行带超时的优雅关闭。
func (s *GinServer) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", "addr", s.addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server stopping on context cancellation")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Stop 优雅停止服务器。
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server gracefully", "addr", s.addr)
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
