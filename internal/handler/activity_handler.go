package handler

import (
	"strconv"

	"chat-system/internal/service"
	"chat-system/pkg/jwt"
	"chat-system/pkg/logger"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActivityHandler 审计记录查询
type ActivityHandler struct {
	service *service.ActivityService
}

func NewActivityHandler(s *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: s}
}

// Mine 当前用户最近的审计记录，?limit= 可选
func (h *ActivityHandler) Mine(c *gin.Context) {
	h.byUser(c, jwt.GetUserID(c))
}

// ByUser 指定用户的审计记录
func (h *ActivityHandler) ByUser(c *gin.Context) {
	id, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	h.byUser(c, id)
}

// ByEntity 指定资源的审计记录，?limit= 可选，缺省返回全部
func (h *ActivityHandler) ByEntity(c *gin.Context) {
	entityType := c.Param("entity_type")
	id, ok := parseID(c, "entity_id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.service.RecentByEntity(entityType, id, limit)
	if err != nil {
		logger.Error("查询审计记录失败", zap.String("entity_type", entityType), zap.Error(err))
		response.InternalError(c, "查询审计记录失败")
		return
	}
	response.Success(c, logs)
}

func (h *ActivityHandler) byUser(c *gin.Context, userID uint) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.service.RecentByUser(userID, limit)
	if err != nil {
		logger.Error("查询审计记录失败", zap.Uint("user_id", userID), zap.Error(err))
		response.InternalError(c, "查询审计记录失败")
		return
	}
	response.Success(c, logs)
}
