package jwt

import (
	"strings"

	"chat-system/pkg/logger"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextUserIDKey 用户ID在gin.Context中的键名
	ContextUserIDKey = "user_id"
	// ContextUsernameKey 用户名在gin.Context中的键名
	ContextUsernameKey = "username"
	// ContextRoleKey 角色在gin.Context中的键名
	ContextRoleKey = "role"
)

const bearerPrefix = "Bearer "

// BearerToken 从 "Bearer <token>" 中取出令牌，格式不符返回空串
func BearerToken(header string) string {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// AuthMiddleware JWT认证中间件
// 从请求头中提取Authorization: Bearer <token>
// 验证访问令牌并将用户信息存入gin.Context
func (s *JWTService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少Authorization请求头")
			c.Abort()
			return
		}

		tokenString := BearerToken(authHeader)
		if tokenString == "" {
			response.Unauthorized(c, "Authorization格式错误，应为Bearer <token>")
			c.Abort()
			return
		}

		claims, err := s.ValidateAccessToken(tokenString)
		if err != nil {
			logger.Warn("JWT验证失败",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			response.Unauthorized(c, "token无效或已过期")
			c.Abort()
			return
		}

		userID, _ := claims.UserID()
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextRoleKey, claims.Role)
	
		logger.Debug("用户访问接口",
			zap.Uint("user_id", userID),
			zap.String("username", claims.Username),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		c.Next()
	}
}

// RequireRole 要求当前用户具有指定角色之一，需放在 AuthMiddleware 之后
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "权限不足")
		c.Abort()
	}
}

// GetUserID 从gin.Context中获取用户ID，未认证时为0
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

// GetUsername 从gin.Context中获取用户名
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsernameKey)
}

// GetRole 从gin.Context中获取角色
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRoleKey)
}
