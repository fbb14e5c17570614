// Package redis 封装 go-redis 客户端的构建、指标采集与热更新。
package redis

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// UniversalClient 是 redis.UniversalClient 的别名，方便业务层直接使用而无需导入原生包。
type UniversalClient = redis.UniversalClient

var (
	redisOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_ops_total",
			Help: "The total number of redis operations",
		},
		[]string{"addr", "command", "status"},
	)
	redisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_duration_seconds",
			Help:    "The duration of redis operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"addr", "command"},
	)
)

func init() {
	prometheus.MustRegister(redisOps, redisDuration)
}

type metricsHook struct {
	addr string
}

func (h *metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil && err != redis.Nil {
			status = "error"
		}

		redisOps.WithLabelValues(h.addr, cmd.Name(), status).Inc()
		redisDuration.WithLabelValues(h.addr, cmd.Name()).Observe(duration)

		return err
	}
}

func (h *metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(start).Seconds()

		status := "success"
		if err != nil && err != redis.Nil {
			status = "error"
		}

		redisOps.WithLabelValues(h.addr, "pipeline", status).Inc()
		redisDuration.WithLabelValues(h.addr, "pipeline").Observe(duration)

		return err
	}
}

// NewClient 使用提供的配置创建一个新的 Redis 客户端。
// 单地址走普通客户端, 多地址自动切换集群模式, 配置了 MasterName 则走哨兵。
// 返回客户端实例、清理函数和连接失败时的错误。
func NewClient(cfg *config.RedisConfig, logger *logging.Logger) (redis.UniversalClient, func(), error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   cfg.MasterName,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	client.AddHook(&metricsHook{addr: strings.Join(cfg.Addrs, ",")})

	// 创建一个带超时机制的上下文，用于Ping操作。
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 尝试Ping Redis服务器以验证连接的可用性。
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", "addrs", cfg.Addrs)

	// 定义一个清理函数，用于在应用程序关闭时优雅地关闭Redis客户端。
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close Redis client", "error", err)
		}
	}

	return client, cleanup, nil
}
