package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/wyfcoding/fixmonitor/breaker"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "fixmonitor"

// RedisStore Redis 后端: 报文按 ID 存储, 序号索引为 ZSET (score = Seq)。
// 所有命令经熔断器保护, 后端不可用时快速失败而非拖垮摄取链路。
type RedisStore struct {
	client redis.UniversalClient
	cb     *breaker.Breaker
	prefix string
	ttl    time.Duration
}

// NewRedisStore 创建 Redis 存储。ttl <= 0 表示报文键不过期, 仅靠留存任务清理。
func NewRedisStore(client redis.UniversalClient, cb *breaker.Breaker, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, cb: cb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) msgKey(id string) string { return s.prefix + ":msg:" + id }
func (s *RedisStore) seqKey() string          { return s.prefix + ":seq" }
func (s *RedisStore) indexKey() string        { return s.prefix + ":index" }

// Append 分配序号 (INCR) 后以流水线写入报文体与序号索引。
func (s *RedisStore) Append(ctx context.Context, msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	start := time.Now()
	_, err := breaker.ExecuteTyped(s.cb, func() (struct{}, error) {
		seq, incrErr := s.client.Incr(ctx, s.seqKey()).Result()
		if incrErr != nil {
			return struct{}{}, incrErr
		}
		msg.Seq = seq

		payload, marshalErr := json.Marshal(msg)
		if marshalErr != nil {
			return struct{}{}, marshalErr
		}

		pipe := s.client.Pipeline()
		pipe.Set(ctx, s.msgKey(msg.ID), payload, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(seq), Member: msg.ID})
		_, execErr := pipe.Exec(ctx)
		return struct{}{}, execErr
	})
	observe("redis", "append", start, err)
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Message, error) {
	start := time.Now()
	msg, err := breaker.ExecuteTyped(s.cb, func() (*Message, error) {
		payload, getErr := s.client.Get(ctx, s.msgKey(id)).Bytes()
		if getErr != nil {
			if errors.Is(getErr, redis.Nil) {
				return nil, ErrMessageNotFound
			}
			return nil, getErr
		}
		var m Message
		if unmarshalErr := json.Unmarshal(payload, &m); unmarshalErr != nil {
			return nil, unmarshalErr
		}
		return &m, nil
	})
	observe("redis", "get", start, err)
	return msg, err
}

// List 按序号倒序遍历索引, 批量 MGET 后在内存中过滤与分页。
// 过滤条件存在时分页游标按批推进, 直至凑满 Limit 或索引耗尽。
func (s *RedisStore) List(ctx context.Context, q Query) ([]*Message, error) {
	q = q.normalize()

	start := time.Now()
	result, err := breaker.ExecuteTyped(s.cb, func() ([]*Message, error) {
		const batchSize = 200
		matched := make([]*Message, 0, q.Limit)
		skipped := 0

		for cursor := int64(0); ; cursor += batchSize {
			ids, rangeErr := s.client.ZRevRange(ctx, s.indexKey(), cursor, cursor+batchSize-1).Result()
			if rangeErr != nil {
				return nil, rangeErr
			}
			if len(ids) == 0 {
				break
			}

			keys := make([]string, len(ids))
			for i, id := range ids {
				keys[i] = s.msgKey(id)
			}
			values, mgetErr := s.client.MGet(ctx, keys...).Result()
			if mgetErr != nil {
				return nil, mgetErr
			}

			for _, v := range values {
				payload, ok := v.(string)
				if !ok {
					// 报文键已过期但索引尚未清理, 跳过。
					continue
				}
				var m Message
				if unmarshalErr := json.Unmarshal([]byte(payload), &m); unmarshalErr != nil {
					continue
				}
				if !q.Match(&m) {
					continue
				}
				if skipped < q.Offset {
					skipped++
					continue
				}
				matched = append(matched, &m)
				if len(matched) >= q.Limit {
					return matched, nil
				}
			}
		}
		return matched, nil
	})
	observe("redis", "list", start, err)
	return result, err
}

// Prune 删除接收时间早于 olderThan 的报文及其索引项。
// 索引 score 是写入序号而非时间, 按批取出后逐条判断接收时间。
func (s *RedisStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	start := time.Now()
	pruned, err := breaker.ExecuteTyped(s.cb, func() (int, error) {
		const batchSize = 200
		removed := 0

		for cursor := int64(0); ; cursor += batchSize {
			ids, rangeErr := s.client.ZRange(ctx, s.indexKey(), cursor, cursor+batchSize-1).Result()
			if rangeErr != nil {
				return removed, rangeErr
			}
			if len(ids) == 0 {
				break
			}

			var staleIDs []string
			for _, id := range ids {
				payload, getErr := s.client.Get(ctx, s.msgKey(id)).Bytes()
				if getErr != nil {
					if errors.Is(getErr, redis.Nil) {
						staleIDs = append(staleIDs, id)
					}
					continue
				}
				var m Message
				if json.Unmarshal(payload, &m) == nil && m.ReceivedAt.Before(olderThan) {
					staleIDs = append(staleIDs, id)
				}
			}
			if len(staleIDs) == 0 {
				continue
			}

			pipe := s.client.Pipeline()
			members := make([]any, len(staleIDs))
			for i, id := range staleIDs {
				members[i] = id
				pipe.Del(ctx, s.msgKey(id))
			}
			pipe.ZRem(ctx, s.indexKey(), members...)
			if _, execErr := pipe.Exec(ctx); execErr != nil {
				return removed, execErr
			}
			removed += len(staleIDs)
			cursor -= int64(len(staleIDs))
		}
		return removed, nil
	})
	observe("redis", "prune", start, err)
	return pruned, err
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := breaker.ExecuteTyped(s.cb, func() (int64, error) {
		return s.client.ZCard(ctx, s.indexKey()).Result()
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisStore) Close() error {
	return nil
}

// String 便于日志输出后端标识。
func (s *RedisStore) String() string {
	return "redis(" + s.prefix + ", ttl=" + strconv.FormatInt(int64(s.ttl/time.Second), 10) + "s)"
}
