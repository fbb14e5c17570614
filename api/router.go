package api

import (
	"net/http"
	"time"

	"github.com/wyfcoding/fixmonitor/audit"
	"github.com/wyfcoding/fixmonitor/broadcast"
	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/health"
	"github.com/wyfcoding/fixmonitor/idempotency"
	"github.com/wyfcoding/fixmonitor/limiter"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/metrics"
	"github.com/wyfcoding/fixmonitor/middleware"
	"github.com/wyfcoding/fixmonitor/security"
	"github.com/wyfcoding/fixmonitor/server"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// maxConcurrentBulk 批量摄取接口的全局在途请求上限。
const maxConcurrentBulk = 2

// RouterOptions 路由装配的依赖集合。
type RouterOptions struct {
	Handler *Handler
	Auth    *AuthHandler
	Hub     *broadcast.Hub
	// Checkers 就绪检查集合, key 为依赖名。
	Checkers map[string]health.Checker
	Metrics  *metrics.Metrics
	Logger   *logging.Logger
	// RedisClient 仅在 ratelimit.backend = "redis" 时需要。
	RedisClient redis.UniversalClient
	// AuditWriter 写接口的审计出口, 为 nil 时退化为日志写入器。
	AuditWriter audit.Writer
}

// NewRouter 组装带完整治理中间件链的 gin 引擎。
// 中间件顺序: 恢复 → 请求 ID → 上下文增强 → 日志 → 错误归一 →
// 跨域/安全头 → 体积限制 → 限流 → 超时 → 熔断 → 追踪 → 指标;
// 写接口按配置追加 JWT 鉴权、审计与幂等控制。
func NewRouter(cfg *config.Config, opts RouterOptions) *gin.Engine {
	middlewares := []gin.HandlerFunc{
		middleware.Recovery(opts.Logger.Logger),
		middleware.RequestID(),
		middleware.RequestContextEnricher(),
		middleware.Logger(opts.Logger.Logger),
		middleware.HTTPErrorHandler(),
	}
	if cfg.CORS.Enabled {
		middlewares = append(middlewares, middleware.CORSWithConfig(cfg.CORS))
	}
	if cfg.Security.Enabled {
		middlewares = append(middlewares, middleware.SecurityHeadersWithConfig(cfg.Security))
	}
	if cfg.Server.HTTP.MaxBodyBytes > 0 {
		middlewares = append(middlewares, middleware.MaxBodyBytes(cfg.Server.HTTP.MaxBodyBytes))
	}
	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares, rateLimitMiddleware(cfg, opts))
	}
	if cfg.Server.HTTP.WriteTimeout > 0 {
		middlewares = append(middlewares, middleware.TimeoutMiddleware(cfg.Server.HTTP.WriteTimeout))
	}
	if cfg.CircuitBreaker.Enabled {
		middlewares = append(middlewares, middleware.HttpCircuitBreaker(cfg.CircuitBreaker, opts.Metrics))
	}
	if cfg.Tracing.Enabled {
		middlewares = append(middlewares,
			middleware.TracingMiddleware(cfg.Tracing.ServiceName),
			middleware.TraceIDHeader())
	}
	if opts.Metrics != nil {
		middlewares = append(middlewares,
			middleware.HTTPMetricsMiddleware(opts.Metrics),
			middleware.HTTPRequestSizeMiddleware(opts.Metrics),
			middleware.HTTPResponseSizeMiddleware(opts.Metrics))
	}
	if cfg.Maintenance.Enabled {
		middlewares = append(middlewares, middleware.MaintenanceMiddleware(cfg.Maintenance))
	}

	engine := server.NewDefaultGinEngine(middlewares...)
	registerRoutes(engine, cfg, opts)
	return engine
}

func rateLimitMiddleware(cfg *config.Config, opts RouterOptions) gin.HandlerFunc {
	if cfg.RateLimit.Backend == "redis" && opts.RedisClient != nil {
		return middleware.NewRedisRateLimitMiddleware(
			opts.RedisClient, cfg.RateLimit.Prefix,
			int64(cfg.RateLimit.Rate), cfg.RateLimit.Window)
	}
	// 本地令牌桶挂在动态封装后, 配置热更新时直接替换参数。
	dyn := limiter.NewDynamicLocalLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
	config.RegisterReloadHook(func(updated *config.Config) {
		dyn.UpdateLocal(updated.RateLimit.Rate, updated.RateLimit.Burst)
	})
	return middleware.RateLimitMiddleware(dyn)
}

func registerRoutes(engine *gin.Engine, cfg *config.Config, opts RouterOptions) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", readiness(opts.Checkers))

	h := opts.Handler
	v1 := engine.Group("/api/v1")

	// 只读接口。
	v1.GET("/messages", h.ListMessages)
	v1.GET("/messages/:id", h.GetMessage)
	v1.GET("/orders", h.ListOrders)
	v1.GET("/orders/:key", h.GetOrder)
	v1.GET("/alerts", h.ListAlerts)
	v1.GET("/dictionary", h.Dictionary)
	v1.GET("/archive", h.ListArchive)
	v1.GET("/archive/:id", h.GetArchived)

	// 实时流。
	if opts.Hub != nil {
		v1.GET("/stream", broadcast.SSEHandler(opts.Hub))
		v1.GET("/ws", broadcast.WSHandler(opts.Hub, cfg.Broadcast.AllowedOrigins))
	}

	if opts.Auth != nil {
		v1.POST("/auth/login", opts.Auth.Login)
	}

	// 写接口, 按配置启用来源限制、鉴权、审计与幂等控制。
	mutating := v1.Group("")
	if len(cfg.Security.AdminAllowlist) > 0 {
		mutating.Use(security.IPAllowlistMiddleware(cfg.Security.AdminAllowlist))
	}
	if cfg.Security.Auth.Enabled {
		mutating.Use(middleware.JWTAuth(cfg.JWT.Secret))
		if len(cfg.Security.Auth.WriteRoles) > 0 {
			mutating.Use(security.RequireRoles(cfg.Security.Auth.WriteRoles...))
		}
	}
	if writer := auditWriter(opts); writer != nil {
		mutating.Use(middleware.AuditMiddleware(writer, middleware.AuditOptions{
			Resource: "fix-message",
		}))
	}
	if opts.RedisClient != nil {
		manager := idempotency.NewRedisManager(opts.RedisClient, cfg.Store.Prefix+":idem")
		mutating.Use(middleware.IdempotencyMiddleware(manager, 10*time.Minute))
	}
	mutating.POST("/messages", h.IngestMessage)
	// 批量摄取本身按行并发解析, 再叠一层全局在途上限防止上传洪峰。
	mutating.POST("/messages/bulk",
		middleware.NewConcurrencyLimitMiddleware(maxConcurrentBulk, 2*time.Second),
		h.IngestBulk)
	mutating.POST("/parse", h.Parse)
	mutating.POST("/validate", h.Validate)
	mutating.POST("/repair/suggestions", h.Suggestions)
	mutating.POST("/repair/auto", h.AutoRepair)
}

// auditWriter 选择审计出口: 显式注入优先, 否则落到结构化日志。
func auditWriter(opts RouterOptions) audit.Writer {
	if opts.AuditWriter != nil {
		return opts.AuditWriter
	}
	if opts.Logger != nil {
		return audit.NewLoggerWriter(opts.Logger)
	}
	return nil
}

// readiness 逐个执行就绪检查, 任一失败返回 503 并列出失败项。
func readiness(checkers map[string]health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		failures := gin.H{}
		for name, check := range checkers {
			if err := check(); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failures": failures})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
