// 并发信号量限流: 批量摄取等重接口按在途请求数设上限, 支持阻塞获取与快速失败。
package limiter

import (
	"context"
	"errors"
	"log/slog"
)

// ErrConcurrencyLimit 表示并发上限已触发。
var ErrConcurrencyLimit = errors.New("concurrency limit exceeded")

// ConcurrencyLimiter 并发控制通用接口, Acquire 与 Release 成对使用。
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context) error
	TryAcquire() bool
	Release()
}

// SemaphoreLimiter 带缓冲信号量实现的并发控制。
type SemaphoreLimiter struct {
	sem      chan struct{}
	disabled bool
}

// NewSemaphoreLimiter 创建并发信号量限流器, max <= 0 表示禁用。
func NewSemaphoreLimiter(max int) *SemaphoreLimiter {
	if max <= 0 {
		return &SemaphoreLimiter{disabled: true}
	}
	return &SemaphoreLimiter{sem: make(chan struct{}, max)}
}

// Acquire 获取一个并发令牌, 支持随 Context 取消。
func (l *SemaphoreLimiter) Acquire(ctx context.Context) error {
	if l == nil || l.disabled {
		return nil
	}

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire 尝试获取一个并发令牌, 满时立即失败。
func (l *SemaphoreLimiter) TryAcquire() bool {
	if l == nil || l.disabled {
		return true
	}

	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release 释放一个并发令牌, 超额释放仅记录告警。
func (l *SemaphoreLimiter) Release() {
	if l == nil || l.disabled {
		return
	}

	select {
	case <-l.sem:
	default:
		slog.Warn("concurrency limiter release without acquire")
	}
}
