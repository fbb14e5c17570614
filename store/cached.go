package store

import (
	"context"
	"time"

	"github.com/wyfcoding/fixmonitor/cache"
	"github.com/wyfcoding/fixmonitor/logging"

	"golang.org/x/sync/singleflight"
)

// CachedStore 在任意 Store 之上叠加按 ID 的读穿缓存。
// singleflight 合并同一 ID 的并发回源, 防止缓存击穿打满后端。
// 列表与写路径直接透传, 只有 Get 走缓存。
type CachedStore struct {
	Store
	cache  cache.Cache
	group  singleflight.Group
	logger *logging.Logger
	ttl    time.Duration
}

// NewCachedStore 包装底层存储。ttl 为缓存项存活时间, <= 0 时使用缓存自身默认。
func NewCachedStore(backend Store, c cache.Cache, ttl time.Duration, logger *logging.Logger) *CachedStore {
	return &CachedStore{Store: backend, cache: c, ttl: ttl, logger: logger}
}

func (s *CachedStore) Get(ctx context.Context, id string) (*Message, error) {
	var cached Message
	if err := s.cache.Get(ctx, id, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := s.group.Do(id, func() (any, error) {
		msg, loadErr := s.Store.Get(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := s.cache.Set(ctx, id, msg, s.ttl); setErr != nil {
			s.logger.WarnContext(ctx, "failed to populate message cache", "id", id, "error", setErr)
		}
		return msg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Message), nil
}

func (s *CachedStore) Close() error {
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("failed to close message cache", "error", err)
	}
	return s.Store.Close()
}
