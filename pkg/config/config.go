package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Token     TokenConfig     `mapstructure:"token"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`
	WriteTimeout int    `mapstructure:"writeTimeout"`
}

// Addr 监听地址
func (c *HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
	AutoMigrate  bool   `mapstructure:"autoMigrate"`
}

// DSN 生成数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	case "sqlite":
		// 为空时使用内存数据库
		if c.Database == "" {
			return ":memory:"
		}
		return c.Database
	default:
		return ""
	}
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
	Mode     string `mapstructure:"mode"` // "standalone" 外部 Redis, "memory" 内存模式
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TokenConfig 令牌配置
type TokenConfig struct {
	Secret string `mapstructure:"secret"`
	// Lifetime 秒数或乘法表达式, 如 "24 * 60 * 60"
	Lifetime string `mapstructure:"lifetime"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	RootAdminID    int64  `mapstructure:"rootAdminId"`
	AdminUsername  string `mapstructure:"adminUsername"`
	HashIterations int    `mapstructure:"hashIterations"`
	KeyLength      int    `mapstructure:"keyLength"`
}

// CacheConfig 权限缓存配置
type CacheConfig struct {
	Backend string `mapstructure:"backend"` // "redis" 或 "memory"
	TTL     int    `mapstructure:"ttl"`     // 秒
	Size    int    `mapstructure:"size"`    // 仅 memory 后端使用
}

// TTLDuration 缓存有效期
func (c *CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// OAuthConfig OAuth配置
type OAuthConfig struct {
	DefaultLifetime int64 `mapstructure:"defaultLifetime"` // 秒
}

// RateLimitConfig 登录与发令牌接口的限流配置
type RateLimitConfig struct {
	Max    int `mapstructure:"max"`
	Window int `mapstructure:"window"` // 秒
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "authcore", Env: "dev", Version: "1.0.0"},
		Server: ServerConfig{HTTP: HTTPConfig{
			Host: "0.0.0.0", Port: 8080, ReadTimeout: 10, WriteTimeout: 10,
		}},
		Database: DatabaseConfig{
			Driver: "sqlite", Charset: "utf8mb4", MaxIdleConns: 10, MaxOpenConns: 100, LogLevel: "warn",
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379, PoolSize: 10, Mode: "memory"},
		Token: TokenConfig{Lifetime: "24 * 60 * 60"},
		Auth: AuthConfig{
			RootAdminID: 1, AdminUsername: "admin", HashIterations: 1000, KeyLength: 32,
		},
		Cache:     CacheConfig{Backend: "redis", TTL: 3600, Size: 4096},
		OAuth:     OAuthConfig{DefaultLifetime: 3600},
		RateLimit: RateLimitConfig{Max: 20, Window: 60},
		Log:       LogConfig{Level: "info", Format: "console", Output: "console"},
	}
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = v.GetString("app.env")
	}
	if env != "" && env != "default" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge env config: %w", err)
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Token.Secret == "" {
		return errors.New("config: token.secret is required")
	}
	if strings.TrimSpace(c.Token.Lifetime) == "" {
		return errors.New("config: token.lifetime is required")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("config: cache.ttl must be positive")
	}
	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("config: unsupported cache backend: %s", c.Cache.Backend)
	}
	if c.Database.DSN() == "" {
		return fmt.Errorf("config: unsupported database driver: %s", c.Database.Driver)
	}
	if c.Auth.HashIterations <= 0 || c.Auth.KeyLength <= 0 {
		return errors.New("config: auth.hashIterations and auth.keyLength must be positive")
	}
	return nil
}

// IsDev 是否为开发环境
func (c *Config) IsDev() bool {
	return c.App.Env == "dev" || c.App.Env == "development"
}

// resolveEnvVars 解析环境变量占位符
func resolveEnvVars(cfg *Config) {
	cfg.Database.Host = resolveEnvVar(cfg.Database.Host)
	cfg.Database.Username = resolveEnvVar(cfg.Database.Username)
	cfg.Database.Password = resolveEnvVar(cfg.Database.Password)
	cfg.Database.Database = resolveEnvVar(cfg.Database.Database)
	cfg.Redis.Host = resolveEnvVar(cfg.Redis.Host)
	cfg.Redis.Password = resolveEnvVar(cfg.Redis.Password)
	cfg.Token.Secret = resolveEnvVar(cfg.Token.Secret)
}

// resolveEnvVar 解析单个环境变量
func resolveEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envKey := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return value
}
