// Package logging 基于标准库 slog 封装结构化日志: JSON 输出、lumberjack 切割、
// OpenTelemetry 追踪上下文注入, 以及供归档层使用的 GORM 日志桥接。
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm/logger"

	"go.opentelemetry.io/otel/trace"
)

var (
	defaultLogger *Logger
	once          sync.Once
	// levelVar 支撑配置热更新时的动态调级。
	levelVar = new(slog.LevelVar)
)

// Config 日志配置。File 为空时仅输出到 stdout,
// 配置了 File 则同时写 stdout 与切割文件。
type Config struct {
	Service    string
	Module     string
	Level      string
	File       string
	MaxSize    int // 单文件上限 (MB)
	MaxBackups int
	MaxAge     int // 保留天数
	Compress   bool
}

// Logger 包装 *slog.Logger 并携带服务与模块名。
type Logger struct {
	*slog.Logger
	Service string
	Module  string
}

// TraceHandler 装饰底层 Handler, 从 ctx 提取有效的 SpanContext
// 并把 trace_id / span_id 注入日志属性。
type TraceHandler struct {
	slog.Handler
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

// parseLevel 解析级别字符串, 未知值落回 info。
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel 动态调整全局日志级别, 配置热更新时调用。
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

// NewFromConfig 构造 Logger。级别挂在共享的 LevelVar 上,
// 之后 SetLevel 对所有由此创建的实例生效。
func NewFromConfig(cfg Config) *Logger {
	levelVar.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}

	handler := slog.Handler(slog.NewJSONHandler(os.Stdout, opts))
	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		handler = newMultiHandler(handler, slog.NewJSONHandler(fileWriter, opts))
	}

	l := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)

	return &Logger{Logger: l, Service: cfg.Service, Module: cfg.Module}
}

// InitFromConfig 初始化全局默认 Logger, 仅首次调用生效。
func InitFromConfig(cfg Config) {
	once.Do(func() {
		defaultLogger = NewFromConfig(cfg)
		slog.SetDefault(defaultLogger.Logger)
	})
}

// ensureDefault 在未初始化时兜底一个 stdout Logger。
func ensureDefault() {
	if defaultLogger == nil {
		InitFromConfig(Config{Service: "fixmonitor", Module: "default", Level: "info"})
	}
}

// Default 返回全局默认 Logger。
func Default() *Logger {
	ensureDefault()
	return defaultLogger
}

// Info 以默认 Logger 记录 Info 日志。
func Info(ctx context.Context, msg string, args ...any) {
	ensureDefault()
	defaultLogger.InfoContext(ctx, msg, args...)
}

// Warn 以默认 Logger 记录 Warn 日志。
func Warn(ctx context.Context, msg string, args ...any) {
	ensureDefault()
	defaultLogger.WarnContext(ctx, msg, args...)
}

// Error 以默认 Logger 记录 Error 日志。
func Error(ctx context.Context, msg string, args ...any) {
	ensureDefault()
	defaultLogger.ErrorContext(ctx, msg, args...)
}

// Debug 以默认 Logger 记录 Debug 日志。
func Debug(ctx context.Context, msg string, args ...any) {
	ensureDefault()
	defaultLogger.DebugContext(ctx, msg, args...)
}

// LogDuration 返回一个记录操作耗时的收尾函数。
func LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		Info(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}

// GormLogger 把 GORM 的日志接到 slog, 归档层使用。
type GormLogger struct {
	logger        *slog.Logger
	SlowThreshold time.Duration
}

// NewGormLogger 创建 GormLogger, slowThreshold 为慢查询阈值。
func NewGormLogger(l *Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{logger: l.Logger, SlowThreshold: slowThreshold}
}

// LogMode 沿用当前 slog 级别, 不做 GORM 侧的级别切换。
func (l *GormLogger) LogMode(logger.LogLevel) logger.Interface {
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
}

// Trace 记录 SQL 明细: 错误走 Error, 慢查询走 Warn, 其余走 Debug。
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []any{
		slog.String("sql", sql),
		slog.Duration("elapsed", elapsed),
	}
	if rows != -1 {
		fields = append(fields, slog.Int64("rows", rows))
	}

	switch {
	case err != nil && err != logger.ErrRecordNotFound:
		fields = append(fields, slog.Any("error", err))
		l.logger.ErrorContext(ctx, "gorm trace error", fields...)
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold:
		fields = append(fields, slog.String("type", "slow_query"))
		l.logger.WarnContext(ctx, "gorm trace slow query", fields...)
	default:
		l.logger.DebugContext(ctx, "gorm trace", fields...)
	}
}
