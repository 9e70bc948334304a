package config

import (
	"fmt"
	"strings"

	"github.com/herdbook/paycore/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig          `mapstructure:"server"`
	Log      LogConfig             `mapstructure:"log"`
	Database DatabaseConfig        `mapstructure:"database"`
	Redis    RedisConfig           `mapstructure:"redis"`
	Queue    QueueConfig           `mapstructure:"queue"`
	JWT      JWTConfig             `mapstructure:"jwt"`
	Admin    AdminConfig           `mapstructure:"admin"`
	CORS     CORSConfig            `mapstructure:"cors"`
	Security SecurityConfig        `mapstructure:"security"`
	Payment  PaymentConfig         `mapstructure:"payment"`
	Plans    map[string]PlanConfig `mapstructure:"plans"`
	Gateways GatewaysConfig        `mapstructure:"gateways"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          string `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`            // debug / release
	PublicBaseURL string `mapstructure:"public_base_url"` // 网关回调可达的公网地址
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// JWTConfig 管理端 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AdminConfig 管理端账号配置
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt 哈希
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CheckoutRateLimit RateLimitConfig `mapstructure:"checkout_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// PaymentConfig 支付流程配置
type PaymentConfig struct {
	ResultURL       string `mapstructure:"result_url"`        // 回调处理后跳转的前端结果页
	DefaultCurrency string `mapstructure:"default_currency"`  // 计划未指定币种时的默认币种
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`   // 出站网关请求超时
}

// PlanConfig 订阅计划配置
type PlanConfig struct {
	Price    string `mapstructure:"price"`    // 计划价格（十进制字符串）
	Currency string `mapstructure:"currency"` // 币种，缺省用 payment.default_currency
}

// GatewaysConfig 网关配置集合
type GatewaysConfig struct {
	PayU     PayUConfig     `mapstructure:"payu"`
	Payfast  PayfastConfig  `mapstructure:"payfast"`
	Paystack PaystackConfig `mapstructure:"paystack"`
}

// PayUConfig PayU 网关配置
type PayUConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MerchantKey string `mapstructure:"merchant_key"`
	Salt        string `mapstructure:"salt"`
	Sandbox     bool   `mapstructure:"sandbox"`
}

// PayfastConfig Payfast 网关配置
type PayfastConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	MerchantID string `mapstructure:"merchant_id"`
	MerchantKey string `mapstructure:"merchant_key"`
	Passphrase string `mapstructure:"passphrase"`
	Sandbox    bool   `mapstructure:"sandbox"`
}

// PaystackConfig Paystack 网关配置
type PaystackConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SecretKey string `mapstructure:"secret_key"`
	BaseURL   string `mapstructure:"base_url"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.public_base_url", "http://127.0.0.1:8080")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "paycore.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/paycore.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "hb")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.password_hash", "")
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.checkout_rate_limit.window_seconds", 60)
	viper.SetDefault("security.checkout_rate_limit.max_requests", 10)
	viper.SetDefault("payment.result_url", "http://127.0.0.1:3000/billing/result")
	viper.SetDefault("payment.default_currency", "KES")
	viper.SetDefault("payment.timeout_seconds", 10)
	viper.SetDefault("plans", map[string]interface{}{
		"starter":    map[string]interface{}{"price": "1500.00"},
		"growth":     map[string]interface{}{"price": "3000.00"},
		"enterprise": map[string]interface{}{"price": "7500.00"},
	})
	viper.SetDefault("gateways.payu.enabled", false)
	viper.SetDefault("gateways.payu.merchant_key", "")
	viper.SetDefault("gateways.payu.salt", "")
	viper.SetDefault("gateways.payu.sandbox", true)
	viper.SetDefault("gateways.payfast.enabled", false)
	viper.SetDefault("gateways.payfast.merchant_id", "")
	viper.SetDefault("gateways.payfast.merchant_key", "")
	viper.SetDefault("gateways.payfast.passphrase", "")
	viper.SetDefault("gateways.payfast.sandbox", true)
	viper.SetDefault("gateways.paystack.enabled", false)
	viper.SetDefault("gateways.paystack.secret_key", "")
	viper.SetDefault("gateways.paystack.base_url", "https://api.paystack.co")

	// 环境变量支持（server.port -> SERVER_PORT）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
