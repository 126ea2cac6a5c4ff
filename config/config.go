package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath 默认配置文件路径
const DefaultConfigPath = "config/config.yaml"

// Config 应用配置结构体
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port"`         // 服务器监听端口
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // 读取超时时间
	WriteTimeout time.Duration `yaml:"writeTimeout"` // 写入超时时间
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // 空闲超时时间
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`   // 数据库驱动类型
	Host     string `yaml:"host"`     // 数据库主机地址
	Port     int    `yaml:"port"`     // 数据库端口
	Username string `yaml:"username"` // 数据库用户名
	Password string `yaml:"password"` // 数据库密码
	Database string `yaml:"database"` // 数据库名称
	Charset  string `yaml:"charset"`  // 字符集
	MaxIdle  int    `yaml:"maxIdle"`  // 最大空闲连接数
	MaxOpen  int    `yaml:"maxOpen"`  // 最大打开连接数
	LogSQL   bool   `yaml:"logSQL"`   // 是否打印SQL
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret            string        `yaml:"secret"`            // JWT密钥
	ExpireTime        time.Duration `yaml:"expireTime"`        // access token 过期时间
	RefreshExpireTime time.Duration `yaml:"refreshExpireTime"` // refresh token 过期时间
	Issuer            string        `yaml:"issuer"`            // JWT签发者
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`      // 日志级别
	Filename   string `yaml:"filename"`   // 日志文件名
	MaxSize    int    `yaml:"maxSize"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"maxBackups"` // 最大备份文件数
	MaxAge     int    `yaml:"maxAge"`     // 最大保存天数
	Compress   bool   `yaml:"compress"`   // 是否压缩
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`  // 是否启用（关闭时在线状态仅写数据库）
	Host     string `yaml:"host"`     // Redis主机地址
	Port     int    `yaml:"port"`     // Redis端口
	Password string `yaml:"password"` // Redis密码
	DB       int    `yaml:"db"`       // Redis数据库编号
}

// WebSocketConfig WebSocket / STOMP 端点配置
type WebSocketConfig struct {
	Endpoint       string        `yaml:"endpoint"`       // STOMP 连接端点
	AllowedOrigins []string      `yaml:"allowedOrigins"` // 允许的来源，"*" 表示全部
	PingInterval   time.Duration `yaml:"pingInterval"`   // 发送ping的间隔
	ReadTimeout    time.Duration `yaml:"readTimeout"`    // 读超时时间（未收到任何数据则断开）
	SendBuffer     int           `yaml:"sendBuffer"`     // 每个会话的发送缓冲大小
}

// LoadConfig 加载配置（混合方式：YAML文件 + 环境变量）
func LoadConfig() *Config {
	path := getEnv("CONFIG_PATH", DefaultConfigPath)

	// 1. 首先从YAML文件加载默认配置
	config := loadFromYAML(path)

	// 2. 用环境变量覆盖配置（环境变量优先级更高）
	overrideWithEnvVars(config)

	return config
}

// loadFromYAML 从YAML文件加载配置
// 文件中缺失的字段保留默认值
func loadFromYAML(filePath string) *Config {
	config := getDefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return getDefaultConfig()
	}

	return config
}

// overrideWithEnvVars 用环境变量覆盖配置
func overrideWithEnvVars(config *Config) {
	// 服务器配置
	if port := getEnv("SERVER_PORT", ""); port != "" {
		config.Server.Port = port
	}
	if timeout := getEnvDuration("SERVER_READ_TIMEOUT", 0); timeout > 0 {
		config.Server.ReadTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_WRITE_TIMEOUT", 0); timeout > 0 {
		config.Server.WriteTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_IDLE_TIMEOUT", 0); timeout > 0 {
		config.Server.IdleTimeout = timeout
	}

	// 数据库配置
	if host := getEnv("DB_HOST", ""); host != "" {
		config.Database.Host = host
	}
	if port := getEnvInt("DB_PORT", 0); port > 0 {
		config.Database.Port = port
	}
	if username := getEnv("DB_USERNAME", ""); username != "" {
		config.Database.Username = username
	}
	if password := getEnv("DB_PASSWORD", ""); password != "" {
		config.Database.Password = password
	}
	if database := getEnv("DB_DATABASE", ""); database != "" {
		config.Database.Database = database
	}
	if charset := getEnv("DB_CHARSET", ""); charset != "" {
		config.Database.Charset = charset
	}
	if maxIdle := getEnvInt("DB_MAX_IDLE", 0); maxIdle > 0 {
		config.Database.MaxIdle = maxIdle
	}
	if maxOpen := getEnvInt("DB_MAX_OPEN", 0); maxOpen > 0 {
		config.Database.MaxOpen = maxOpen
	}
	config.Database.LogSQL = getEnvBool("DB_LOG_SQL", config.Database.LogSQL)

	// JWT配置
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		config.JWT.Secret = secret
	}
	if expireTime := getEnvDuration("JWT_EXPIRE_TIME", 0); expireTime > 0 {
		config.JWT.ExpireTime = expireTime
	}
	if expireTime := getEnvDuration("JWT_REFRESH_EXPIRE_TIME", 0); expireTime > 0 {
		config.JWT.RefreshExpireTime = expireTime
	}
	if issuer := getEnv("JWT_ISSUER", ""); issuer != "" {
		config.JWT.Issuer = issuer
	}

	// 日志配置
	if level := getEnv("LOG_LEVEL", ""); level != "" {
		config.Log.Level = level
	}
	if filename := getEnv("LOG_FILENAME", ""); filename != "" {
		config.Log.Filename = filename
	}
	if maxSize := getEnvInt("LOG_MAX_SIZE", 0); maxSize > 0 {
		config.Log.MaxSize = maxSize
	}
	if maxBackups := getEnvInt("LOG_MAX_BACKUPS", 0); maxBackups > 0 {
		config.Log.MaxBackups = maxBackups
	}
	if maxAge := getEnvInt("LOG_MAX_AGE", 0); maxAge > 0 {
		config.Log.MaxAge = maxAge
	}

	// Redis配置
	config.Redis.Enabled = getEnvBool("REDIS_ENABLED", config.Redis.Enabled)
	if host := getEnv("REDIS_HOST", ""); host != "" {
		config.Redis.Host = host
	}
	if port := getEnvInt("REDIS_PORT", 0); port > 0 {
		config.Redis.Port = port
	}
	if password := getEnv("REDIS_PASSWORD", ""); password != "" {
		config.Redis.Password = password
	}
	if db := getEnvInt("REDIS_DB", -1); db >= 0 {
		config.Redis.DB = db
	}

	// WebSocket配置
	if endpoint := getEnv("WS_ENDPOINT", ""); endpoint != "" {
		config.WebSocket.Endpoint = endpoint
	}
	if origins := getEnv("WS_ALLOWED_ORIGINS", ""); origins != "" {
		config.WebSocket.AllowedOrigins = splitAndTrim(origins)
	}
	if d := getEnvDuration("WS_PING_INTERVAL", 0); d > 0 {
		config.WebSocket.PingInterval = d
	}
	if d := getEnvDuration("WS_READ_TIMEOUT", 0); d > 0 {
		config.WebSocket.ReadTimeout = d
	}
	if n := getEnvInt("WS_SEND_BUFFER", 0); n > 0 {
		config.WebSocket.SendBuffer = n
	}
}

// getDefaultConfig 获取默认配置
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Username: "chat_user",
			Password: "chat_password",
			Database: "chat_system",
			Charset:  "utf8mb4",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		JWT: JWTConfig{
			Secret:            "change-me-in-production",
			ExpireTime:        time.Hour,
			RefreshExpireTime: 7 * 24 * time.Hour,
			Issuer:            "chat-system",
		},
		Log: LogConfig{
			Level:      "info",
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
		},
		WebSocket: WebSocketConfig{
			Endpoint:       "/ws/chat",
			AllowedOrigins: []string{"*"},
			PingInterval:   30 * time.Second,
			ReadTimeout:    90 * time.Second,
			SendBuffer:     256,
		},
	}
}

// 辅助函数：获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 辅助函数：获取整数环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 辅助函数：获取布尔环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// 辅助函数：获取时间环境变量
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
