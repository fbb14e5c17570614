// fixmonitor 是 FIX 报文检查与修复服务的入口。
// 按配置装配存储后端、摄取流水线、告警引擎、广播中心与 HTTP API,
// 然后交由 app 统一管理生命周期。
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/wyfcoding/fixmonitor/alert"
	"github.com/wyfcoding/fixmonitor/api"
	"github.com/wyfcoding/fixmonitor/app"
	"github.com/wyfcoding/fixmonitor/archive"
	"github.com/wyfcoding/fixmonitor/audit"
	"github.com/wyfcoding/fixmonitor/breaker"
	"github.com/wyfcoding/fixmonitor/broadcast"
	"github.com/wyfcoding/fixmonitor/cache"
	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/database"
	"github.com/wyfcoding/fixmonitor/events"
	"github.com/wyfcoding/fixmonitor/health"
	"github.com/wyfcoding/fixmonitor/idgen"
	"github.com/wyfcoding/fixmonitor/ingest"
	"github.com/wyfcoding/fixmonitor/logging"
	mqkafka "github.com/wyfcoding/fixmonitor/messagequeue/kafka"
	"github.com/wyfcoding/fixmonitor/metrics"
	"github.com/wyfcoding/fixmonitor/redis"
	"github.com/wyfcoding/fixmonitor/retention"
	"github.com/wyfcoding/fixmonitor/server"
	"github.com/wyfcoding/fixmonitor/storage"
	"github.com/wyfcoding/fixmonitor/store"
	"github.com/wyfcoding/fixmonitor/tracing"
	"github.com/wyfcoding/fixmonitor/worker"

	redisv9 "github.com/redis/go-redis/v9"
)

// version 构建时通过 -ldflags 注入。
var version = "dev"

func main() {
	confPath := flag.String("conf", "configs/config.toml", "配置文件路径")
	flag.Parse()

	if err := run(*confPath); err != nil {
		slog.Error("fixmonitor exited with error", "error", err)
		os.Exit(1)
	}
}

func run(confPath string) error {
	var cfg config.Config
	if err := config.Load(confPath, &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.InitFromConfig(logging.Config{
		Service:    cfg.Server.Name,
		Module:     "main",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	logger := logging.Default()

	if err := idgen.Init(cfg.Snowflake); err != nil {
		return fmt.Errorf("init idgen: %w", err)
	}

	m := metrics.NewMetrics(cfg.Server.Name)
	m.RegisterBuildInfo(cfg.Server.Name, version)
	m.RegisterPipelineMetrics()
	m.RegisterBreakerMetrics()
	m.RegisterRequestSizeMetrics()
	m.RegisterResponseSizeMetrics()

	var opts []app.Option

	if cfg.Metrics.Enabled {
		stopMetrics := m.ExposeHttp(cfg.Metrics.Port)
		opts = append(opts, app.WithCleanup(stopMetrics))
		logger.Info("metrics endpoint exposed", "port", cfg.Metrics.Port)
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		opts = append(opts, app.WithCleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}))
	}

	checkers := map[string]health.Checker{}

	// Redis 客户端按需建连: 存储后端、读穿缓存或限流任一用到 redis。
	var redisClient redisv9.UniversalClient
	if needsRedis(&cfg) {
		client, cleanup, err := redis.NewClient(&cfg.Data.Redis, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		checkers["redis"] = health.RedisChecker(client)
		opts = append(opts, app.WithCleanup(cleanup))
	}

	messageStore, err := buildStore(&cfg, redisClient, logger, m)
	if err != nil {
		return err
	}
	opts = append(opts, app.WithCleanup(func() {
		if err := messageStore.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}))

	orders := store.NewOrderProjection()

	hub := broadcast.NewHub(cfg.Broadcast.SubscriberBuffer, logger, m)

	var alertEngine *alert.Engine
	if cfg.Alerts.Enabled {
		alertEngine, err = alert.NewEngine(cfg.Alerts, logger, m)
		if err != nil {
			return fmt.Errorf("compile alert rules: %w", err)
		}
		logger.Info("alert engine ready", "rules", alertEngine.RuleCount())
	}

	var archiveStore *archive.Archive
	if cfg.Data.Database.Enabled {
		db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, m)
		if err != nil {
			return fmt.Errorf("connect archive database: %w", err)
		}
		archiveStore, err = archive.New(db, logger)
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
		checkers["database"] = health.DBChecker(db)
	}

	publisher := events.NewPublisher(nil, logger, m)
	var auditWriter audit.Writer
	if cfg.MessageQueue.Kafka.Enabled {
		producer := mqkafka.NewProducer(cfg.MessageQueue.Kafka, logger)
		bus := mqkafka.NewEventBus(producer, cfg.MessageQueue.Kafka.Topic)
		// 事件总线套动态熔断, 配置热更新时同步切换策略。
		eventsBreaker := breaker.NewDynamicBreaker("events-bus", m, 0.6, 5)
		eventsBreaker.Update(cfg.CircuitBreaker)
		config.RegisterReloadHook(func(updated *config.Config) {
			eventsBreaker.Update(updated.CircuitBreaker)
		})
		publisher = events.NewPublisher(bus, logger, m).WithBreaker(eventsBreaker)
		// 审计同时落日志与总线, 下游可统一消费审计流。
		auditWriter = audit.NewFanoutWriter(audit.NewLoggerWriter(logger), audit.NewEventBusWriter(bus))
		checkers["kafka"] = health.KafkaChecker(cfg.MessageQueue.Kafka.Brokers, 3*time.Second)
		opts = append(opts, app.WithCleanup(func() {
			if err := publisher.Close(); err != nil {
				logger.Error("event publisher close failed", "error", err)
			}
		}))
	}

	var objectStorage storage.Storage
	if cfg.Storage.Backend != "" {
		objectStorage, err = storage.NewFromConfig(cfg.Storage)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		if cfg.Storage.Backend == "minio" {
			mc := cfg.Storage.Minio
			checkers["minio"] = health.MinioChecker(mc.Endpoint, mc.AccessKeyID, mc.SecretAccessKey, mc.UseSSL, 3*time.Second)
		}
	}

	pool := worker.NewPool(
		worker.WithName("ingest-side-effects"),
		worker.WithSize(cfg.Ingest.Workers),
		worker.WithQueueSize(cfg.Ingest.QueueSize),
		worker.WithMetrics(m),
	)
	opts = append(opts, app.WithCleanup(pool.Stop))

	service := ingest.NewService(messageStore, orders, cfg.Ingest.MaxMessageBytes, ingest.Options{
		Alerts:    alertEngine,
		Archive:   archiveStore,
		Publisher: publisher,
		Hub:       hub,
		Metrics:   m,
		Pool:      pool,
	}, logger)

	if cfg.Retention.Enabled {
		sweeper := retention.NewSweeper(cfg.Retention, logger, m)
		sweeper.Register("store", messageStore)
		sweeper.Register("orders", orders)
		if alertEngine != nil {
			sweeper.Register("alerts", alertEngine)
		}
		if archiveStore != nil {
			sweeper.Register("archive", archiveStore)
		}
		if err := sweeper.Start(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("start retention sweeper: %w", err)
		}
		opts = append(opts, app.WithCleanup(sweeper.Stop))
	}

	handler := &api.Handler{
		Service:        service,
		Store:          messageStore,
		Orders:         orders,
		Alerts:         alertEngine,
		Archive:        archiveStore,
		ObjectStorage:  objectStorage,
		ArchiveUploads: cfg.Storage.ArchiveUploads,
		BulkLimits: ingest.BulkLimits{
			MaxLines:    cfg.Ingest.MaxBulkLines,
			Parallelism: cfg.Ingest.BulkParallelism,
		},
		Logger: logger,
	}

	engine := api.NewRouter(&cfg, api.RouterOptions{
		Handler: handler,
		Auth: &api.AuthHandler{
			Users:  cfg.Security.Auth.Users,
			JWT:    cfg.JWT,
			Logger: logger,
		},
		Hub:         hub,
		Checkers:    checkers,
		Metrics:     m,
		Logger:      logger,
		RedisClient: redisClient,
		AuditWriter: auditWriter,
	})

	opts = append(opts,
		app.WithServer(hubRunner{hub}),
		app.WithServer(server.NewGinServer(engine, cfg.Server, logger.Logger)),
	)

	if cfg.MessageQueue.Kafka.ConsumeEnabled {
		opts = append(opts, app.WithServer(ingest.NewKafkaSource(cfg.MessageQueue.Kafka, service, logger)))
	}

	return app.New(cfg.Server.Name, logger.Logger, opts...).Run()
}

// buildStore 按配置装配报文存储, 可叠加按 ID 的读穿缓存。
func buildStore(cfg *config.Config, client redisv9.UniversalClient, logger *logging.Logger, m *metrics.Metrics) (store.Store, error) {
	var backend store.Store
	switch cfg.Store.Backend {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("store backend redis requires a redis connection")
		}
		cb := breaker.NewBreaker(breaker.Settings{
			Name:   "store-redis",
			Config: cfg.CircuitBreaker,
		}, m)
		backend = store.NewRedisStore(client, cb, cfg.Store.Prefix, cfg.Store.TTL)
	default:
		backend = store.NewMemoryStore(cfg.Store.Capacity)
	}

	if !cfg.Store.CacheEnabled {
		return backend, nil
	}
	msgCache, err := buildMessageCache(cfg, client, logger)
	if err != nil {
		return nil, fmt.Errorf("init message cache: %w", err)
	}
	return store.NewCachedStore(backend, msgCache, cfg.Data.BigCache.LifeWindow, logger), nil
}

// buildMessageCache 按配置选择读穿缓存实现。
// local 为进程内 BigCache; redis 复用共享连接池;
// multilevel 本地挡热点, Redis 供多副本共享并回填本地。
func buildMessageCache(cfg *config.Config, client redisv9.UniversalClient, logger *logging.Logger) (cache.Cache, error) {
	newLocal := func() (cache.Cache, error) {
		return cache.NewBigCacheFromConfig(cfg.Data.BigCache)
	}
	newRedis := func() (cache.Cache, error) {
		if client == nil {
			return nil, fmt.Errorf("cache backend %q requires a redis connection", cfg.Store.CacheBackend)
		}
		return cache.NewRedisCacheWithClient(client, nil).WithPrefix(cfg.Store.Prefix + ":cache"), nil
	}

	switch cfg.Store.CacheBackend {
	case "redis":
		return newRedis()
	case "multilevel":
		local, err := newLocal()
		if err != nil {
			return nil, err
		}
		shared, err := newRedis()
		if err != nil {
			return nil, err
		}
		return cache.NewMultiLevelCache(local, shared, logger), nil
	default:
		return newLocal()
	}
}

// needsRedis 汇总所有需要 Redis 连接的配置项。
func needsRedis(cfg *config.Config) bool {
	if cfg.Store.Backend == "redis" {
		return true
	}
	if cfg.Store.CacheEnabled &&
		(cfg.Store.CacheBackend == "redis" || cfg.Store.CacheBackend == "multilevel") {
		return true
	}
	return cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis"
}

// hubRunner 把广播中心适配成受 app 管理的服务。
type hubRunner struct {
	hub *broadcast.Hub
}

func (r hubRunner) Start(ctx context.Context) error {
	r.hub.Run(ctx)
	return nil
}

func (r hubRunner) Stop(context.Context) error { return nil }
