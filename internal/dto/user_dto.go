package dto

import (
	"time"

	"chat-system/internal/model"
)

// UserDTO 对外公开的用户信息，不包含密码哈希等敏感字段
// 可空字段按存储值原样输出（nil 输出为 null）
type UserDTO struct {
	UserID      uint       `json:"userId"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	PhoneNumber *string    `json:"phoneNumber"`
	AvatarURL   *string    `json:"avatarUrl"`
	Role        model.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	IsOnline    bool       `json:"isOnline"`
	LastSeen    *time.Time `json:"lastSeen"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin"`
}

// UpdateProfileRequest 更新个人资料请求，字段为 nil 表示不修改
type UpdateProfileRequest struct {
	PhoneNumber *string `json:"phoneNumber"`
	AvatarURL   *string `json:"avatarUrl"`
}
