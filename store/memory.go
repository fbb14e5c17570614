package store

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryCapacity = 10000

// MemoryStore 容量固定的内存环形存储。
// 写满后覆盖最旧记录, 单机部署与测试环境的默认后端。
type MemoryStore struct {
	mu       sync.RWMutex
	ring     []*Message
	byID     map[string]*Message
	head     int   // 下一个写入位置
	size     int   // 当前存量
	seq      int64 // 最近分配的序号
	capacity int
}

// NewMemoryStore 创建内存存储, capacity <= 0 时使用默认容量。
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{
		ring:     make([]*Message, capacity),
		byID:     make(map[string]*Message, capacity),
		capacity: capacity,
	}
}

// Append 分配序号并写入, 覆盖位置上的旧记录同时从索引剔除。
func (s *MemoryStore) Append(ctx context.Context, msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	s.mu.Lock()
	s.seq++
	msg.Seq = s.seq

	if old := s.ring[s.head]; old != nil {
		delete(s.byID, old.ID)
	} else {
		s.size++
	}

	s.ring[s.head] = msg
	s.byID[msg.ID] = msg
	s.head = (s.head + 1) % s.capacity
	s.mu.Unlock()

	observe("memory", "append", start, nil)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	msg, ok := s.byID[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}

// List 从最新写入位置向旧端扫描, 过滤后应用 Offset/Limit。
func (s *MemoryStore) List(ctx context.Context, q Query) ([]*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q = q.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Message, 0, q.Limit)
	skipped := 0
	seen := 0
	for i := 0; i < s.capacity && seen < s.size; i++ {
		idx := (s.head - 1 - i + s.capacity*2) % s.capacity
		msg := s.ring[idx]
		if msg == nil {
			continue
		}
		seen++
		if !q.Match(msg) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		result = append(result, msg)
		if len(result) >= q.Limit {
			break
		}
	}
	return result, nil
}

// Prune 删除早于 olderThan 的记录。环形序保持不变, 被删位置置空。
func (s *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	pruned := 0

	s.mu.Lock()
	for i := range s.ring {
		msg := s.ring[i]
		if msg == nil || !msg.ReceivedAt.Before(olderThan) {
			continue
		}
		delete(s.byID, msg.ID)
		s.ring[i] = nil
		s.size--
		pruned++
	}
	s.mu.Unlock()

	observe("memory", "prune", start, nil)
	return pruned, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
