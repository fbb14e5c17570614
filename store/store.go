// Package store 提供已摄取 FIX 报文的存储层。
// 支持内存环形缓冲与 Redis 两种后端, 序号全局单调递增,
// 列表按序号倒序返回 (最新在前), 过滤与分页在序号索引之上完成。
package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/fixmonitor/fix"
)

var (
	// ErrMessageNotFound 指定 ID 的报文不存在或已被淘汰。
	ErrMessageNotFound = errors.New("message not found")
	// ErrNilMessage Append 收到 nil 报文。
	ErrNilMessage = errors.New("message is nil")
)

// Message 是存储层的报文记录。嵌入宽松解析结果, 对外序列化为扁平 JSON。
// Seq 由 Append 分配, 同一后端内全局唯一且单调递增。
type Message struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`

	fix.ParsedMessage
}

// Query 列表过滤条件。空字段表示不过滤, Offset 在过滤之后生效。
type Query struct {
	Limit    int
	Offset   int
	Symbol   string
	MsgType  string
	OrderKey string
	Source   string
}

// Match 判断报文是否满足过滤条件。
func (q Query) Match(msg *Message) bool {
	if msg == nil {
		return false
	}
	if q.Symbol != "" && msg.Summary.Symbol != q.Symbol {
		return false
	}
	if q.MsgType != "" && msg.Summary.MsgType != q.MsgType {
		return false
	}
	if q.OrderKey != "" && msg.OrderKey != q.OrderKey {
		return false
	}
	if q.Source != "" && msg.Source != q.Source {
		return false
	}
	return true
}

// normalize 约束分页参数, 防止单次拉取过大。
func (q Query) normalize() Query {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Store 报文存储接口。
type Store interface {
	// Append 分配序号并写入报文, 写入后 msg.Seq 可用。
	Append(ctx context.Context, msg *Message) error
	// Get 按 ID 查询单条报文, 不存在时返回 ErrMessageNotFound。
	Get(ctx context.Context, id string) (*Message, error)
	// List 按序号倒序返回满足条件的报文。
	List(ctx context.Context, q Query) ([]*Message, error)
	// Prune 删除接收时间早于 olderThan 的报文, 返回删除数量。
	Prune(ctx context.Context, olderThan time.Time) (int, error)
	// Len 当前存量。
	Len(ctx context.Context) (int, error)
	// Close 释放后端资源。
	Close() error
}

var (
	storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_ops_total", Help: "存储层操作总数"},
		[]string{"backend", "op", "status"},
	)
	storeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "存储层操作耗时",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

func init() {
	prometheus.MustRegister(storeOps, storeDuration)
}

func observe(backend, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	storeOps.WithLabelValues(backend, op, status).Inc()
	storeDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
