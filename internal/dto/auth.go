package dto

import (
	"time"

	"chat-system/internal/model"
)

// TokenTypeBearer 令牌类型固定为 Bearer
const TokenTypeBearer = "Bearer"

// AuthResponse 登录/刷新成功后的响应
type AuthResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int64     `json:"expiresIn"` // access token 有效期（毫秒）
	User         *UserInfo `json:"user"`
}

// UserInfo 登录响应中的精简用户信息
type UserInfo struct {
	UserID   uint       `json:"userId"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	IsActive bool       `json:"isActive"`
}

// NewAuthResponse 组装登录响应，不做任何校验
func NewAuthResponse(accessToken, refreshToken string, expiresIn time.Duration, user *model.User) *AuthResponse {
	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    expiresIn.Milliseconds(),
		User:         NewUserInfo(user),
	}
}

// NewUserInfo 从用户实体提取公开字段
func NewUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username    string  `json:"username" binding:"required,min=3,max=64"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=6,max=72"`
	PhoneNumber *string `json:"phoneNumber"`
}

// LoginRequest 登录请求，identifier 可以是用户名或邮箱
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
