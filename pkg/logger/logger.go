package logger

import (
	"os"
	"path/filepath"
	"strings"

	"chat-system/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 未初始化时使用空日志，避免测试或工具代码中调用时panic
var log = zap.NewNop()

// InitLogger 初始化日志系统
func InitLogger(cfg config.LogConfig) *zap.Logger {
	// 创建日志目录
	if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0755); err != nil {
		panic("无法创建日志目录: " + err.Error())
	}

	// 配置日志级别
	level := getLogLevel(cfg.Level)

	// 配置日志轮转
	writer := &lumberjack.Logger{
		Filename:   cfg.Filename,   // 日志文件路径
		MaxSize:    cfg.MaxSize,    // 单个文件最大大小(MB)
		MaxBackups: cfg.MaxBackups, // 最大备份文件数
		MaxAge:     cfg.MaxAge,     // 最大保存天数
		Compress:   cfg.Compress,   // 是否压缩
	}

	// 创建编码器配置
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level),
	}

	// debug 级别同时输出到控制台
	if level == zapcore.DebugLevel {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level))
	}

	// 创建日志记录器
	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	// 替换zap包中的全局logger
	zap.ReplaceGlobals(log)

	return log
}

// SetLogger 直接替换日志记录器（测试中注入 zaptest / observer）
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}

// getLogLevel 获取日志级别，无法识别时使用 info
func getLogLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Debug 调试日志
func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

// Fatal 致命错误日志
func Fatal(msg string, fields ...zap.Field) {
	log.Fatal(msg, fields...)
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zap.Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		zapFields = append(zapFields, zap.Any(key, value))
	}
	return log.With(zapFields...)
}

// Sync 同步日志到磁盘
func Sync() error {
	return log.Sync()
}
