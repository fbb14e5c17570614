// Package limiter 提供了限流器的实现。
// 基于 Redis ZSet 的滑动窗口限流算法相比令牌桶能更精确地控制窗口内的请求总量,
// 并支持多实例共享限流状态。
package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlidingWindowLimiter 分布式滑动窗口限流器。
type SlidingWindowLimiter struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string        // 限流键前缀, 隔离不同限流域
	window time.Duration // 窗口大小
	limit  int64         // 窗口内最大请求数
}

// slidingWindowLua 在单次往返内完成窗口清理、计数与写入, 保证原子性。
const slidingWindowLua = `
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])

	redis.call('ZREMRANGEBYSCORE', key, 0, start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, now .. '_' .. math.random())
		redis.call('PEXPIRE', key, (now - start) * 2)
		return 1
	else
		return 0
	end
`

// NewSlidingWindowLimiter 创建新的滑动窗口限流器。
func NewSlidingWindowLimiter(client redis.UniversalClient, prefix string, window time.Duration, limit int64) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		script: redis.NewScript(slidingWindowLua),
		prefix: prefix,
		window: window,
		limit:  limit,
	}
}

// Allow 检查指定的 key 是否允许通过。
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.prefix != "" {
		key = l.prefix + key
	}

	now := time.Now()
	nowMs := now.UnixNano() / 1e6
	windowStartMs := now.Add(-l.window).UnixNano() / 1e6

	result, err := l.script.Run(ctx, l.client, []string{key}, nowMs, windowStartMs, l.limit).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}
