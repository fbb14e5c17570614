package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/fixmonitor/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MultiLevelCache 实现多级缓存 (L1: 本地, L2: 分布式)。
// 报文按 ID 的读路径用它挡住热点查询。
type MultiLevelCache struct {
	l1     Cache
	l2     Cache
	tracer trace.Tracer
	logger *logging.Logger
}

func NewMultiLevelCache(l1, l2 Cache, logger *logging.Logger) *MultiLevelCache {
	return &MultiLevelCache{
		l1:     l1,
		l2:     l2,
		tracer: otel.Tracer("github.com/wyfcoding/fixmonitor/cache"),
		logger: logger,
	}
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, value any) error {
	ctx, span := c.tracer.Start(ctx, "MultiLevelCache.Get", trace.WithAttributes(
		attribute.String("cache.key", key),
	))
	defer span.End()

	// 1. 尝试 L1
	if err := c.l1.Get(ctx, key, value); err == nil {
		span.SetAttributes(attribute.String("cache.hit", "L1"))
		return nil
	}

	// 2. 尝试 L2
	if err := c.l2.Get(ctx, key, value); err == nil {
		span.SetAttributes(attribute.String("cache.hit", "L2"))
		// 回填 L1
		if err := c.l1.Set(ctx, key, value, 0); err != nil {
			c.logger.ErrorContext(ctx, "failed to backfill L1 cache", "key", key, "error", err)
		}
		return nil
	}

	span.SetAttributes(attribute.String("cache.hit", "miss"))
	return fmt.Errorf("%w: %s", ErrCacheMiss, key)
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "MultiLevelCache.Set", trace.WithAttributes(
		attribute.String("cache.key", key),
	))
	defer span.End()

	// 先写 L2 (分布式)
	if err := c.l2.Set(ctx, key, value, expiration); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set L2")
		return fmt.Errorf("failed to set L2: %w", err)
	}

	// 再写 L1 (本地)
	if err := c.l1.Set(ctx, key, value, expiration); err != nil {
		c.logger.ErrorContext(ctx, "failed to set L1 cache", "key", key, "error", err)
	}
	return nil
}

// GetOrSet 多级缓存下的防击穿逻辑。
// 回源由 L2 的 GetOrSet 归并并发请求, 命中后回填 L1。
func (c *MultiLevelCache) GetOrSet(ctx context.Context, key string, value any, expiration time.Duration, fn func() (any, error)) error {
	if err := c.l1.Get(ctx, key, value); err == nil {
		return nil
	}

	if err := c.l2.GetOrSet(ctx, key, value, expiration, fn); err != nil {
		return err
	}

	if err := c.l1.Set(ctx, key, value, expiration); err != nil {
		c.logger.ErrorContext(ctx, "failed to backfill L1 cache", "key", key, "error", err)
	}
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	if err := c.l1.Delete(ctx, keys...); err != nil {
		c.logger.ErrorContext(ctx, "failed to delete from L1 cache", "keys", keys, "error", err)
	}
	return c.l2.Delete(ctx, keys...)
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := c.l1.Exists(ctx, key)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to check L1 cache existence", "key", key, "error", err)
	}
	if exists {
		return true, nil
	}
	return c.l2.Exists(ctx, key)
}

func (c *MultiLevelCache) Close() error {
	var err error
	if l1Err := c.l1.Close(); l1Err != nil {
		c.logger.Error("failed to close L1 cache", "error", l1Err)
		err = l1Err
	}
	if l2Err := c.l2.Close(); l2Err != nil {
		c.logger.Error("failed to close L2 cache", "error", l2Err)
		err = l2Err
	}
	return err
}
