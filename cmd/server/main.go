package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-system/config"
	"chat-system/internal/chat"
	"chat-system/internal/handler"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/internal/service"
	dbPkg "chat-system/pkg/db"
	"chat-system/pkg/jwt"
	"chat-system/pkg/logger"
	"chat-system/pkg/redis"
	"chat-system/pkg/response"
	"chat-system/pkg/stomp"
	"chat-system/pkg/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== 聊天系统启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.Duration("jwt_refresh_expire_time", cfg.JWT.RefreshExpireTime),
		zap.String("ws_endpoint", cfg.WebSocket.Endpoint),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	db, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(&model.User{}, &model.ActivityLog{}); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 Redis（可选）：在线状态集合与离线消息
	if cfg.Redis.Enabled {
		if err := redis.InitRedis(cfg.Redis); err != nil {
			log.Warn("Redis不可用，在线状态仅写数据库", zap.Error(err))
		} else {
			defer redis.Close()
			log.Info("Redis连接成功")
		}
	}

	// 4. 初始化业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	activitySvc := service.NewActivityService(repository.NewActivityLogRepository(db))
	userSvc := service.NewUserService(repository.NewUserRepository(db), jwtSvc, activitySvc)

	// 5. STOMP 消息代理
	broker, err := stomp.NewServer(chat.NewBrokerConfig(jwtSvc.StompInterceptor(), cfg.WebSocket))
	if err != nil {
		log.Fatal("STOMP配置无效", zap.Error(err))
	}
	if redis.Enabled() {
		broker.SetOfflineStore(redis.OfflineQueue{})
	}
	chatHandler := chat.NewHandler(broker, activitySvc)
	presence := chat.RegisterPresence(broker, chatHandler, userSvc, activitySvc)

	manager := websocket.NewManager()
	wsHandler := websocket.NewHandler(broker, manager, cfg.WebSocket)

	// 6. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 7. 创建Gin路由
	router := gin.New()
	router.Use(logger.LoggerMiddleware())      // 自定义日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // 错误日志中间件
	router.Use(cors.New(corsConfig(cfg.WebSocket.AllowedOrigins)))

	setupBasicRoutes(router, broker, manager)

	handler.RegisterRoutes(router.Group("/api/v1"), handler.Handlers{
		Auth:     handler.NewAuthHandler(userSvc),
		User:     handler.NewUserHandler(userSvc),
		Activity: handler.NewActivityHandler(activitySvc),
	}, jwtSvc)

	// WebSocket / SockJS 端点
	wsHandler.Register(router)

	// 8. 后台任务：刷新在线用户的Redis状态并清理过期记录
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if redis.Enabled() {
		go presence.Maintain(bgCtx, redis.PresenceCache{}, redis.PresenceTTL/2)
	}

	// 9. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 10. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// WebSocket 连接被 Hijack，Shutdown 不会等待它们，需要单独关闭
	manager.CloseAll()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, broker *stomp.Server, manager *websocket.Manager) {
	// 健康检查
	// 完整url为：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		redisStatus := "disabled"
		if redis.Enabled() {
			redisStatus = "ok"
			if err := redis.HealthCheck(); err != nil {
				redisStatus = "down"
			}
		}
		response.Success(c, gin.H{
			"status": status,
			"redis":  redisStatus,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "欢迎使用聊天系统",
			"version": version,
		})
	})

	// 完整url为：http://localhost:8080/api/v1/status
	router.GET("/api/v1/status", func(c *gin.Context) {
		data := gin.H{
			"connections":   manager.Count(),
			"sessions":      broker.SessionCount(),
			"subscriptions": broker.Broker().SubscriptionCount(),
			"onlineUsers":   manager.OnlineUsers(),
		}
		if redis.Enabled() {
			if n, err := (redis.OfflineQueue{}).PendingTotal(); err == nil {
				data["pendingOffline"] = n
			}
		}
		response.Success(c, data)
	})
}
