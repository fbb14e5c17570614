package limiter

import (
	"context"

	"golang.org/x/time/rate" // 导入基于令牌桶算法的限流库。
)

// Limiter 接口定义了限流器的通用行为。
// 任何实现了此接口的类型都可以用作限流器。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error) // 检查是否允许请求通过。
}

// LocalLimiter 是一个基于令牌桶算法的本地限流器。
// 它适用于单个应用程序实例内的限流。
type LocalLimiter struct {
	limiter *rate.Limiter // 底层的令牌桶限流器实例。
}

// NewLocalLimiter 创建并返回一个新的 LocalLimiter 实例。
// r: 每秒生成的令牌数，代表允许的平均请求速率。
// b: 令牌桶的容量，代表允许的瞬时突发请求数。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{
		limiter: rate.NewLimiter(r, b),
	}
}

// Allow 检查一个请求是否被 LocalLimiter 允许通过。
// key 参数在本地限流器中未被使用，因为它是实例级全局限流。
func (l *LocalLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.limiter.Allow(), nil
}
