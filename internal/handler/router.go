package handler

import (
	"chat-system/internal/model"
	"chat-system/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Handlers 汇总 REST 处理器
type Handlers struct {
	Auth     *AuthHandler
	User     *UserHandler
	Activity *ActivityHandler
}

// RegisterRoutes 绑定 /api/v1 下的业务路由
func RegisterRoutes(v1 *gin.RouterGroup, h Handlers, jwtSvc *jwt.JWTService) {
	// 公开接口（无需认证）
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	users := v1.Group("/users")
	users.Use(jwtSvc.AuthMiddleware())
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me", h.User.UpdateMe)
		users.GET("/online", h.User.ListOnline)
		users.GET("/:user_id", h.User.GetUser)
		users.GET("", h.User.ListUsers)
	}

	activities := v1.Group("/activities")
	activities.Use(jwtSvc.AuthMiddleware())
	{
		activities.GET("/me", h.Activity.Mine)

		// 查看他人记录需要管理权限
		admin := activities.Group("")
		admin.Use(jwt.RequireRole(string(model.RoleAdmin), string(model.RoleModerator)))
		admin.GET("/users/:user_id", h.Activity.ByUser)
		admin.GET("/entities/:entity_type/:entity_id", h.Activity.ByEntity)
	}
}
