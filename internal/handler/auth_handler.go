package handler

import (
	"errors"

	"chat-system/internal/dto"
	"chat-system/internal/service"
	"chat-system/pkg/logger"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 注册、登录、刷新令牌
type AuthHandler struct {
	service *service.UserService
}

func NewAuthHandler(s *service.UserService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Register(&req, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			response.Conflict(c, "用户名或邮箱已被注册")
			return
		}
		logger.Error("注册失败", zap.String("username", req.Username), zap.Error(err))
		response.ErrorWithDetails(c, response.CodeInternal, "注册失败", err)
		return
	}
	response.SuccessWithMessage(c, "注册成功", resp)
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Login(&req, c.ClientIP())
	switch {
	case err == nil:
		response.SuccessWithMessage(c, "登录成功", resp)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, "用户名或密码错误")
	case errors.Is(err, service.ErrUserInactive):
		response.Forbidden(c, "账号已被禁用")
	default:
		logger.Error("登录失败", zap.Error(err))
		response.ErrorWithDetails(c, response.CodeInternal, "登录失败", err)
	}
}

// Refresh 刷新令牌
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Refresh(req.RefreshToken, c.ClientIP())
	switch {
	case err == nil:
		response.SuccessWithMessage(c, "刷新成功", resp)
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, "refresh token无效或已过期")
	case errors.Is(err, service.ErrUserInactive):
		response.Forbidden(c, "账号已被禁用")
	default:
		logger.Error("刷新令牌失败", zap.Error(err))
		response.ErrorWithDetails(c, response.CodeInternal, "刷新令牌失败", err)
	}
}
