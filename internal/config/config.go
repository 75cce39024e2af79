// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Locking       LockingConfig       `yaml:"locking" mapstructure:"locking"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// StorageConfig 工作区存储配置
type StorageConfig struct {
	// DataDir 数据根目录，书籍位于 <DataDir>/books/<bookID>
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// GenerationConfig 章节生成配置
type GenerationConfig struct {
	// Timeout 单次生成调用的超时上限
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// ReconcileTimeout 章节对账三次调用共用的时间预算，为 0 时取 Timeout
	ReconcileTimeout time.Duration `yaml:"reconcile_timeout" mapstructure:"reconcile_timeout"`
	// PreviousTailRunes 上一章结尾截取的字符数
	PreviousTailRunes int `yaml:"previous_tail_runes" mapstructure:"previous_tail_runes"`
	// NextPreviewRunes 下一章梗概预览的字符数
	NextPreviewRunes int `yaml:"next_preview_runes" mapstructure:"next_preview_runes"`
}

// EffectiveReconcileTimeout 对账预算，未配置时与单次生成超时相同
func (g GenerationConfig) EffectiveReconcileTimeout() time.Duration {
	if g.ReconcileTimeout > 0 {
		return g.ReconcileTimeout
	}
	return g.Timeout
}

// LockHoldBudget 一次章节生成持锁的最长时间：正文生成加对账
func (g GenerationConfig) LockHoldBudget() time.Duration {
	return g.Timeout + g.EffectiveReconcileTimeout()
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
// APIKey 仅作为设置文档未配置密钥时的兜底
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// 生成锁后端
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// DefaultLockTTL 未配置 locking.ttl 时 Redis 锁使用的租约
const DefaultLockTTL = 5 * time.Minute

// LockingConfig 生成锁配置
type LockingConfig struct {
	// Backend local|redis
	Backend string `yaml:"backend" mapstructure:"backend"`
	// TTL Redis 租约时长，不得小于 generation 的持锁预算
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置（需要 Redis）
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// Provider 返回指定提供商配置，不存在时返回零值
func (c LLMConfig) Provider(name string) ProviderConfig {
	if c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[name]
}
