package mapper

import (
	"chat-system/internal/dto"
	"chat-system/internal/model"
)

// UserMapper 用户实体与DTO之间的转换
type UserMapper struct{}

// NewUserMapper 创建UserMapper
func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

// ToDTO 逐字段复制，入参为 nil 时返回 nil
func (m *UserMapper) ToDTO(u *model.User) *dto.UserDTO {
	if u == nil {
		return nil
	}
	return &dto.UserDTO{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsOnline:    u.IsOnline,
		LastSeen:    u.LastSeen,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}

// ToDTOList 按原顺序转换列表，入参为 nil 时返回 nil
func (m *UserMapper) ToDTOList(users []*model.User) []*dto.UserDTO {
	if users == nil {
		return nil
	}
	out := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, m.ToDTO(u))
	}
	return out
}
