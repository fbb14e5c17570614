// Package async 提供带 panic 恢复的 goroutine 启动器。
// 流水线的异步副作用统一经此启动, 避免单条报文的处理异常拖垮进程。
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ErrPanicRecovered 表示异步任务中恢复的 panic。
var ErrPanicRecovered = errors.New("async task panic recovered")

// Runner 安全并发执行器接口。
type Runner interface {
	// Go 启动一个 goroutine, 自动恢复 panic。
	Go(fn func())
	// GoWithContext 启动一个 goroutine 并注入 context。
	GoWithContext(ctx context.Context, fn func(ctx context.Context))
}

type defaultRunner struct {
	logger *slog.Logger
}

// DefaultRunner 进程级默认执行器。
var DefaultRunner = &defaultRunner{
	logger: slog.Default(),
}

func (r *defaultRunner) Go(fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logPanic(rec)
			}
		}()
		fn()
	}()
}

func (r *defaultRunner) GoWithContext(ctx context.Context, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logPanic(rec)
			}
		}()
		fn(ctx)
	}()
}

func (r *defaultRunner) logPanic(rec any) {
	err := fmt.Errorf("%w: %v", ErrPanicRecovered, rec)
	r.logger.Error("async task panic recovered", "error", err, "stack", string(debug.Stack()))
}

// SafeGo 是 DefaultRunner.Go 的快捷方式。
func SafeGo(fn func()) {
	DefaultRunner.Go(fn)
}

// RunGroup 类似 errgroup, 但任务内的 panic 会被恢复并记录。
type RunGroup struct {
	err     error
	wg      sync.WaitGroup
	errOnce sync.Once
}

// Go 在组中启动一个任务。
func (g *RunGroup) Go(fn func() error) {
	g.wg.Add(1)
	SafeGo(func() {
		defer g.wg.Done()
		if err := fn(); err != nil {
			g.errOnce.Do(func() {
				g.err = err
			})
		}
	})
}

// Wait 等待所有任务完成并返回首个错误。
func (g *RunGroup) Wait() error {
	g.wg.Wait()
	return g.err
}
