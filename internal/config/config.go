package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 默认的 JWT 密钥，只允许出现在示例配置中
const defaultJWTSecret = "change-me-in-production"

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host            string        // 监听地址，默认 "0.0.0.0"
	Port            int           // 监听端口，默认 8080
	ReadTimeout     time.Duration // 默认 15s
	WriteTimeout    time.Duration // 默认 30s，需覆盖一次 SMTP 发送
	ShutdownTimeout time.Duration // 优雅退出等待时间，默认 10s
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到标准输出
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// DatabaseConfig 定义数据库连接配置
type DatabaseConfig struct {
	Type            string // "memory"、"postgres"、"mysql" 或 "sqlite"
	DSN             string // sqlite 时为文件路径
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig 定义 Redis 配置，Address 为空时令牌黑名单和限流计数保存在内存中
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret       string        // JWT 签名密钥，必须至少 32 字符
	Issuer       string        // 默认 "corpsite"
	AccessExpiry time.Duration // 访问令牌有效期，默认 12 小时
}

// AdminConfig 唯一管理员账号
type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt 哈希，可用 cmd/hash-password 生成
}

// SMTPConfig 出站邮件与开发用捕获服务器配置
type SMTPConfig struct {
	Host          string // 留空时只记录日志不发信，除非配置了 SinkAddr
	Port          int
	Username      string
	Password      string
	From          string
	FromName      string
	TLSMode       string // "starttls"、"tls"、"none"，留空按端口决定
	Timeout       time.Duration
	RatePerSecond float64

	SinkAddr     string // 捕获服务器监听地址，例如 "127.0.0.1:2525"
	SinkDomain   string
	SinkCapacity int
}

// MailConfig 邮件模板相关配置
type MailConfig struct {
	SiteName string
	ReplyTo  string
}

// RateLimitConfig 公开接口的限流配置
type RateLimitConfig struct {
	LoginAttempts int
	LoginWindow   time.Duration
	ContactPerIP  int
	ContactWindow time.Duration
}

// Config 是系统配置的根结构体
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	SMTP      SMTPConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: CORPSITE_，例如 CORPSITE_SERVER_PORT, CORPSITE_JWT_SECRET
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("corpsite")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(v.GetString("cors.allowed_origins")),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
			MaxSizeMB:   v.GetInt("log.max_size_mb"),
			MaxBackups:  v.GetInt("log.max_backups"),
			MaxAgeDays:  v.GetInt("log.max_age_days"),
		},
		Database: DatabaseConfig{
			Type:            strings.ToLower(v.GetString("database.type")),
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("jwt.secret"),
			Issuer:       v.GetString("jwt.issuer"),
			AccessExpiry: v.GetDuration("jwt.access_expiry"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("admin.username"),
			PasswordHash: v.GetString("admin.password_hash"),
		},
		SMTP: SMTPConfig{
			Host:          v.GetString("smtp.host"),
			Port:          v.GetInt("smtp.port"),
			Username:      v.GetString("smtp.username"),
			Password:      v.GetString("smtp.password"),
			From:          v.GetString("smtp.from"),
			FromName:      v.GetString("smtp.from_name"),
			TLSMode:       v.GetString("smtp.tls_mode"),
			Timeout:       v.GetDuration("smtp.timeout"),
			RatePerSecond: v.GetFloat64("smtp.rate_per_second"),
			SinkAddr:      v.GetString("smtp.sink_addr"),
			SinkDomain:    v.GetString("smtp.sink_domain"),
			SinkCapacity:  v.GetInt("smtp.sink_capacity"),
		},
		Mail: MailConfig{
			SiteName: v.GetString("mail.site_name"),
			ReplyTo:  v.GetString("mail.reply_to"),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts: v.GetInt("ratelimit.login_attempts"),
			LoginWindow:   v.GetDuration("ratelimit.login_window"),
			ContactPerIP:  v.GetInt("ratelimit.contact_per_ip"),
			ContactWindow: v.GetDuration("ratelimit.contact_window"),
		},
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("database.type", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.issuer", "corpsite")
	v.SetDefault("jwt.access_expiry", "12h")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "noreply@localhost.localdomain")
	v.SetDefault("smtp.from_name", "")
	v.SetDefault("smtp.tls_mode", "")
	v.SetDefault("smtp.timeout", "10s")
	v.SetDefault("smtp.rate_per_second", 2)
	v.SetDefault("smtp.sink_addr", "")
	v.SetDefault("smtp.sink_domain", "localhost")
	v.SetDefault("smtp.sink_capacity", 100)
	v.SetDefault("mail.site_name", "Our team")
	v.SetDefault("mail.reply_to", "")
	v.SetDefault("ratelimit.login_attempts", 5)
	v.SetDefault("ratelimit.login_window", "15m")
	v.SetDefault("ratelimit.contact_per_ip", 10)
	v.SetDefault("ratelimit.contact_window", "1h")
}

// Validate 检查配置的一致性
func (c *Config) Validate() error {
	// 安全检查：禁止使用默认的 JWT secret
	if c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set CORPSITE_JWT_SECRET environment variable")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}
	if c.JWT.AccessExpiry <= 0 {
		return fmt.Errorf("jwt.access_expiry must be positive")
	}

	if c.Admin.Username == "" {
		return fmt.Errorf("admin.username must not be empty")
	}
	if !strings.HasPrefix(c.Admin.PasswordHash, "$2") {
		return fmt.Errorf("admin.password_hash must be a bcrypt hash (generate one with cmd/hash-password)")
	}

	switch c.Database.Type {
	case "memory":
	case "postgres", "mysql", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for database type %q", c.Database.Type)
		}
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.SMTP.TLSMode {
	case "", "starttls", "tls", "none":
	default:
		return fmt.Errorf("smtp.tls_mode must be one of starttls, tls, none")
	}
	if c.SMTP.RatePerSecond < 0 {
		return fmt.Errorf("smtp.rate_per_second must not be negative")
	}
	if c.RateLimit.LoginAttempts <= 0 || c.RateLimit.LoginWindow <= 0 {
		return fmt.Errorf("ratelimit.login_attempts and ratelimit.login_window must be positive")
	}
	if c.RateLimit.ContactPerIP <= 0 || c.RateLimit.ContactWindow <= 0 {
		return fmt.Errorf("ratelimit.contact_per_ip and ratelimit.contact_window must be positive")
	}

	return nil
}

// Addr 返回 HTTP 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载当前目录或父目录的 .env，文件不存在时静默跳过。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
