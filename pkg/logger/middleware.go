package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerMiddleware 请求日志中间件，按状态码选择日志级别
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		l := WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"status":     status,
			"latency":    time.Since(start).String(),
			"user_agent": c.Request.UserAgent(),
		})
		if errs := c.Errors.ByType(gin.ErrorTypeAny).String(); errs != "" {
			l = l.With(zap.String("error", errs))
		}

		switch {
		case status >= 500:
			l.Error("HTTP请求错误")
		case status >= 400:
			l.Warn("HTTP请求警告")
		default:
			l.Info("HTTP请求")
		}
	}
}

// ErrorLoggerMiddleware 错误日志中间件（panic 恢复）
func ErrorLoggerMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		Error("HTTP请求发生panic",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.String("error", fmt.Sprint(recovered)),
		)
		c.AbortWithStatus(500)
	})
}
