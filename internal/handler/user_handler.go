package handler

import (
	"errors"
	"strconv"

	"chat-system/internal/dto"
	"chat-system/internal/service"
	"chat-system/pkg/jwt"
	"chat-system/pkg/logger"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// GetMe 当前登录用户的资料
func (h *UserHandler) GetMe(c *gin.Context) {
	h.respondUser(c, jwt.GetUserID(c))
}

// UpdateMe 修改当前用户的手机号或头像
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	u, err := h.service.UpdateProfile(jwt.GetUserID(c), &req, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "资料已更新", u)
}

// GetUser 按ID查询用户
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	h.respondUser(c, id)
}

// ListUsers 所有启用的用户
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListActive()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, users)
}

// ListOnline 当前在线用户
func (h *UserHandler) ListOnline(c *gin.Context) {
	users, err := h.service.ListOnline()
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithMessage(c, "获取在线用户成功", gin.H{
		"onlineCount": len(users),
		"users":       users,
	})
}

func (h *UserHandler) respondUser(c *gin.Context, id uint) {
	u, err := h.service.GetByID(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, u)
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		response.NotFound(c, "用户不存在")
		return
	}
	logger.Error("用户接口出错", zap.String("path", c.FullPath()), zap.Error(err))
	response.ErrorWithDetails(c, response.CodeInternal, "服务器内部错误", err)
}

// parseID 解析路径中的正整数ID，失败时已写回 400
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
