// 动态限流封装: 配置热更新时原子替换底层限流器, 不中断在途请求。
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// DynamicLimiter 支持热更新的限流器封装, 未设置底层实现时放行。
type DynamicLimiter struct {
	value atomic.Value
}

// NewDynamicLimiter 创建动态限流器。
func NewDynamicLimiter(initial Limiter) *DynamicLimiter {
	d := &DynamicLimiter{}
	if initial != nil {
		d.value.Store(initial)
	}
	return d
}

// NewDynamicLocalLimiter 创建基于本地令牌桶的动态限流器。
func NewDynamicLocalLimiter(rateLimit, burst int) *DynamicLimiter {
	d := NewDynamicLimiter(nil)
	d.UpdateLocal(rateLimit, burst)
	return d
}

// Update 替换当前限流器实例。
func (d *DynamicLimiter) Update(l Limiter) {
	if d == nil {
		return
	}
	d.value.Store(l)
}

// UpdateLocal 更新为本地令牌桶限流器, rateLimit <= 0 视为关闭限流。
func (d *DynamicLimiter) UpdateLocal(rateLimit, burst int) {
	if d == nil {
		return
	}
	if rateLimit <= 0 {
		d.Update(nil)
		return
	}
	if burst <= 0 {
		burst = rateLimit
	}
	d.Update(NewLocalLimiter(rate.Limit(rateLimit), burst))
}

// Allow 实现 Limiter 接口。
func (d *DynamicLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if d == nil {
		return true, nil
	}
	limiter := d.load()
	if limiter == nil {
		return true, nil
	}
	return limiter.Allow(ctx, key)
}

func (d *DynamicLimiter) load() Limiter {
	if d == nil {
		return nil
	}
	v := d.value.Load()
	if v == nil {
		return nil
	}
	return v.(Limiter)
}
