// Package config 提供 TOML 配置加载、APP_ 环境变量覆盖、结构校验与热更新。
// 配置树按 fixmonitor 的组件切分: 存储、摄取流水线、告警规则、广播、留存清理等。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wyfcoding/fixmonitor/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 顶级配置。
type Config struct {
	Version        string               `mapstructure:"version"        toml:"version"`
	Server         ServerConfig         `mapstructure:"server"         toml:"server"`
	Log            LogConfig            `mapstructure:"log"            toml:"log"`
	Data           DataConfig           `mapstructure:"data"           toml:"data"`
	Store          StoreConfig          `mapstructure:"store"          toml:"store"`
	Ingest         IngestConfig         `mapstructure:"ingest"         toml:"ingest"`
	Alerts         AlertsConfig         `mapstructure:"alerts"         toml:"alerts"`
	Broadcast      BroadcastConfig      `mapstructure:"broadcast"      toml:"broadcast"`
	Retention      RetentionConfig      `mapstructure:"retention"      toml:"retention"`
	RateLimit      RateLimitConfig      `mapstructure:"ratelimit"      toml:"ratelimit"`
	CORS           CORSConfig           `mapstructure:"cors"           toml:"cors"`
	Security       SecurityConfig       `mapstructure:"security"       toml:"security"`
	JWT            JWTConfig            `mapstructure:"jwt"            toml:"jwt"`
	MessageQueue   MessageQueueConfig   `mapstructure:"messagequeue"   toml:"messagequeue"`
	Storage        StorageConfig        `mapstructure:"storage"        toml:"storage"`
	Tracing        TracingConfig        `mapstructure:"tracing"        toml:"tracing"`
	Metrics        MetricsConfig        `mapstructure:"metrics"        toml:"metrics"`
	Snowflake      SnowflakeConfig      `mapstructure:"snowflake"      toml:"snowflake"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitbreaker" toml:"circuitbreaker"`
	Maintenance    MaintenanceConfig    `mapstructure:"maintenance"    toml:"maintenance"`
}

// ServerConfig HTTP 服务的网络与环境参数。
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr              string        `mapstructure:"addr"                toml:"addr"`
		Port              int           `mapstructure:"port"                toml:"port" validate:"required,min=1,max=65535"`
		ReadTimeout       time.Duration `mapstructure:"read_timeout"        toml:"read_timeout"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"       toml:"write_timeout"`
		IdleTimeout       time.Duration `mapstructure:"idle_timeout"        toml:"idle_timeout"`
		MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    toml:"max_header_bytes"`
		MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"`
		TrustedProxies    []string      `mapstructure:"trusted_proxies"     toml:"trusted_proxies"`
	} `mapstructure:"http" toml:"http"`
}

// LogConfig 日志级别、文件与切割策略。SlowThreshold 供慢请求判定使用。
type LogConfig struct {
	Level         string        `mapstructure:"level"          toml:"level"`
	File          string        `mapstructure:"file"           toml:"file"`
	MaxSize       int           `mapstructure:"max_size"       toml:"max_size"`
	MaxBackups    int           `mapstructure:"max_backups"    toml:"max_backups"`
	MaxAge        int           `mapstructure:"max_age"        toml:"max_age"`
	Compress      bool          `mapstructure:"compress"       toml:"compress"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" toml:"slow_threshold"`
}

// DataConfig 数据面依赖: Redis 存储、本地缓存与可选的归档数据库。
type DataConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"    toml:"redis"`
	BigCache BigCacheConfig `mapstructure:"bigcache" toml:"bigcache"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
}

// RedisConfig Redis 连接与池化参数。
type RedisConfig struct {
	MasterName   string        `mapstructure:"master_name"    toml:"master_name"`
	Password     string        `mapstructure:"password"       toml:"password"`
	Addrs        []string      `mapstructure:"addrs"          toml:"addrs"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"   toml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"  toml:"write_timeout"`
	DB           int           `mapstructure:"db"             toml:"db"`
	PoolSize     int           `mapstructure:"pool_size"      toml:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns" toml:"min_idle_conns"`
}

// BigCacheConfig 本地内存缓存参数 (报文按 ID 的读穿缓存)。
type BigCacheConfig struct {
	LifeWindow       time.Duration `mapstructure:"life_window"         toml:"life_window"`
	CleanWindow      time.Duration `mapstructure:"clean_window"        toml:"clean_window"`
	Shards           int           `mapstructure:"shards"              toml:"shards"`
	MaxEntrySize     int           `mapstructure:"max_entry_size"      toml:"max_entry_size"`
	HardMaxCacheSize int           `mapstructure:"hard_max_cache_size" toml:"hard_max_cache_size"`
}

// DatabaseConfig 归档数据库连接与连接池参数, Enabled=false 时整层关闭。
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"           toml:"enabled"`
	Driver          string        `mapstructure:"driver"            toml:"driver"`
	DSN             string        `mapstructure:"dsn"               toml:"dsn"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" toml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"    toml:"slow_threshold"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    toml:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    toml:"max_open_conns"`
}

// StoreConfig 报文存储: 内存环形缓冲或 Redis, 以及按 ID 的读穿缓存开关。
type StoreConfig struct {
	Backend      string        `mapstructure:"backend"       toml:"backend" validate:"oneof=memory redis"`
	Capacity     int           `mapstructure:"capacity"      toml:"capacity"`
	TTL          time.Duration `mapstructure:"ttl"           toml:"ttl"`
	Prefix       string        `mapstructure:"prefix"        toml:"prefix"`
	CacheEnabled bool          `mapstructure:"cache_enabled" toml:"cache_enabled"`
	// CacheBackend 读穿缓存实现: local 为进程内, redis 为共享,
	// multilevel 先查本地再回源 Redis 并回填。
	CacheBackend string `mapstructure:"cache_backend" toml:"cache_backend" validate:"omitempty,oneof=local redis multilevel"`
}

// IngestConfig 摄取流水线: 异步副作用队列与批量解析并发度。
type IngestConfig struct {
	QueueSize       int `mapstructure:"queue_size"       toml:"queue_size"`
	Workers         int `mapstructure:"workers"          toml:"workers"`
	MaxBulkLines    int `mapstructure:"max_bulk_lines"   toml:"max_bulk_lines"`
	BulkParallelism int `mapstructure:"bulk_parallelism" toml:"bulk_parallelism"`
	MaxMessageBytes int `mapstructure:"max_message_bytes" toml:"max_message_bytes"`
}

// AlertsConfig 告警引擎: 表达式规则清单与告警环形缓冲大小。
type AlertsConfig struct {
	Enabled bool        `mapstructure:"enabled" toml:"enabled"`
	Buffer  int         `mapstructure:"buffer"  toml:"buffer"`
	Rules   []AlertRule `mapstructure:"rules"   toml:"rules"`
}

// AlertRule 单条告警规则, Expression 为 expr 表达式, 对报文摘要环境求值。
type AlertRule struct {
	ID         string `mapstructure:"id"         toml:"id"         validate:"required_with=Expression"`
	Name       string `mapstructure:"name"       toml:"name"`
	Expression string `mapstructure:"expression" toml:"expression"`
	Severity   string `mapstructure:"severity"   toml:"severity"`
	Priority   int    `mapstructure:"priority"   toml:"priority"`
}

// BroadcastConfig 实时推送: 订阅者缓冲与 WebSocket 允许来源。
type BroadcastConfig struct {
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer"  toml:"subscriber_buffer"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" toml:"heartbeat_interval"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"    toml:"allowed_origins"`
}

// RetentionConfig 留存清理任务。Schedule 为 cron 表达式 (支持 @every 语法)。
type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"  toml:"enabled"`
	Schedule string        `mapstructure:"schedule" toml:"schedule"`
	MaxAge   time.Duration `mapstructure:"max_age"  toml:"max_age"`
}

// RateLimitConfig 限流: local 为进程内令牌桶, redis 为滑动窗口。
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled" toml:"enabled"`
	Backend string        `mapstructure:"backend" toml:"backend"`
	Rate    int           `mapstructure:"rate"    toml:"rate"`
	Burst   int           `mapstructure:"burst"   toml:"burst"`
	Window  time.Duration `mapstructure:"window"  toml:"window"`
	Prefix  string        `mapstructure:"prefix"  toml:"prefix"`
}

// CORSConfig 跨域配置。
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"           toml:"enabled"`
	AllowOrigins     []string      `mapstructure:"allow_origins"     toml:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"     toml:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"     toml:"allow_headers"`
	ExposeHeaders    []string      `mapstructure:"expose_headers"    toml:"expose_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials" toml:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"           toml:"max_age"`
}

// SecurityConfig 安全响应头与接口鉴权。
type SecurityConfig struct {
	Enabled                   bool       `mapstructure:"enabled"                     toml:"enabled"`
	FrameOptions              string     `mapstructure:"frame_options"               toml:"frame_options"`
	ContentTypeOptions        string     `mapstructure:"content_type_options"        toml:"content_type_options"`
	XSSProtection             string     `mapstructure:"xss_protection"              toml:"xss_protection"`
	ReferrerPolicy            string     `mapstructure:"referrer_policy"             toml:"referrer_policy"`
	ContentSecurityPolicy     string     `mapstructure:"content_security_policy"     toml:"content_security_policy"`
	PermissionsPolicy         string     `mapstructure:"permissions_policy"          toml:"permissions_policy"`
	HSTSMaxAge                int        `mapstructure:"hsts_max_age"                toml:"hsts_max_age"`
	HSTSIncludeSubdomains     bool       `mapstructure:"hsts_include_subdomains"     toml:"hsts_include_subdomains"`
	HSTSPreload               bool       `mapstructure:"hsts_preload"                toml:"hsts_preload"`
	AdditionalHeaders         []string   `mapstructure:"additional_headers"          toml:"additional_headers"`
	AdditionalHeaderSeparator string     `mapstructure:"additional_header_separator" toml:"additional_header_separator"`
	AdminAllowlist            []string   `mapstructure:"admin_allowlist"             toml:"admin_allowlist"`
	Auth                      AuthConfig `mapstructure:"auth"                        toml:"auth"`
}

// AuthConfig 登录鉴权: 开启后写接口要求 JWT, 用户表配置在 TOML 内。
type AuthConfig struct {
	Enabled bool             `mapstructure:"enabled" toml:"enabled"`
	Users   []UserCredential `mapstructure:"users"   toml:"users"`
	// WriteRoles 非空时, 写接口额外要求令牌携带其中任一角色。
	WriteRoles []string `mapstructure:"write_roles" toml:"write_roles"`
}

// UserCredential 单个用户凭据, PasswordHash 为 bcrypt 哈希。
type UserCredential struct {
	Username     string   `mapstructure:"username"      toml:"username"`
	PasswordHash string   `mapstructure:"password_hash" toml:"password_hash"`
	Roles        []string `mapstructure:"roles"         toml:"roles"`
}

// JWTConfig 令牌签发参数。
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"          toml:"secret"`
	Issuer         string        `mapstructure:"issuer"          toml:"issuer"`
	ExpireDuration time.Duration `mapstructure:"expire_duration" toml:"expire_duration"`
}

// MessageQueueConfig 消息中间件。
type MessageQueueConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka" toml:"kafka"`
}

// KafkaConfig 事件发布的生产者参数。
type KafkaConfig struct {
	Enabled        bool          `mapstructure:"enabled"         toml:"enabled"`
	Brokers        []string      `mapstructure:"brokers"         toml:"brokers"`
	Topic          string        `mapstructure:"topic"           toml:"topic"`
	DLQEnabled     bool          `mapstructure:"dlq_enabled"     toml:"dlq_enabled"`
	DLQTopic       string        `mapstructure:"dlq_topic"       toml:"dlq_topic"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"   toml:"write_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"    toml:"read_timeout"`
	RequiredAcks   int           `mapstructure:"required_acks"   toml:"required_acks"`
	MaxAttempts    int           `mapstructure:"max_attempts"    toml:"max_attempts"`
	Async          bool          `mapstructure:"async"           toml:"async"`
	GroupID        string        `mapstructure:"group_id"        toml:"group_id"`
	ConsumeEnabled bool          `mapstructure:"consume_enabled" toml:"consume_enabled"`
	ConsumeTopic   string        `mapstructure:"consume_topic"   toml:"consume_topic"`
}

// StorageConfig 上传原始文件的对象存储: local 目录或 MinIO, backend 为空则关闭。
type StorageConfig struct {
	Backend        string      `mapstructure:"backend"         toml:"backend"`
	LocalDir       string      `mapstructure:"local_dir"       toml:"local_dir"`
	ArchiveUploads bool        `mapstructure:"archive_uploads" toml:"archive_uploads"`
	Minio          MinioConfig `mapstructure:"minio"           toml:"minio"`
}

// MinioConfig S3 兼容对象存储连接参数。
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"          toml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"     toml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"       toml:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"           toml:"use_ssl"`
}

// TracingConfig OpenTelemetry 链路追踪配置。
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// MetricsConfig Prometheus 指标暴露配置。
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// SnowflakeConfig 分布式 ID 生成器参数。
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

// CircuitBreakerConfig 熔断保护策略 (Redis / 归档 / Kafka 出口共用)。
type CircuitBreakerConfig struct {
	Interval    time.Duration `mapstructure:"interval"     toml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"      toml:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests" toml:"max_requests"`
	Enabled     bool          `mapstructure:"enabled"      toml:"enabled"`
}

// MaintenanceConfig 维护模式: 开启后除放行路径外一律返回 503。
type MaintenanceConfig struct {
	Enabled    bool     `mapstructure:"enabled"     toml:"enabled"`
	Message    string   `mapstructure:"message"     toml:"message"`
	AllowPaths []string `mapstructure:"allow_paths" toml:"allow_paths"`
}

var (
	vInstance = viper.New()
	onReload  []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	onReload = append(onReload, hook)
}

// Load 读取 TOML 配置并开启热更新监听。
// 环境变量以 APP_ 为前缀覆盖同名配置 (层级点号换下划线)。
func Load(path string, conf *Config) error {
	vInstance.SetConfigFile(path)
	vInstance.SetConfigType("toml")

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if err := vInstance.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		// 编辑器多次落盘时等抖动结束再读。
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		if unmarshalErr := vInstance.Unmarshal(conf); unmarshalErr != nil {
			slog.Error("reload config unmarshal failed", "error", unmarshalErr)
			return
		}

		logging.SetLevel(conf.Log.Level)

		if validateErr := validate.Struct(conf); validateErr != nil {
			slog.Error("reload config validation failed", "error", validateErr)
			return
		}
		slog.Info("config hot-reloaded and validated successfully")

		for _, hook := range onReload {
			hook(conf)
		}
	})

	return nil
}

// PrintWithMask 脱敏打印当前生效配置。
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.MarshalIndent(configMap, "  ", "  ")
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		if slice, ok := val.([]any); ok {
			for _, item := range slice {
				if itemMap, ok := item.(map[string]any); ok {
					mask(itemMap)
				}
			}
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}

// GetViper 返回底层 Viper 实例。
func GetViper() *viper.Viper {
	return vInstance
}
