package model

import (
	"time"
)

// Role 用户角色
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid 判断角色是否为已知取值
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User 用户模型
// 索引与唯一约束：用户名唯一、邮箱唯一
// 说明：密码仅存储哈希（PasswordHash），不存储明文
// 可空字段（手机号、头像、登录/在线时间）使用指针，nil 表示未设置
type User struct {
	ID           uint       `gorm:"primaryKey"`
	Username     string     `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Email        string     `gorm:"type:varchar(128);not null;uniqueIndex;comment:邮箱"`
	PhoneNumber  *string    `gorm:"type:varchar(32);comment:手机号"`
	AvatarURL    *string    `gorm:"type:varchar(255);comment:头像URL"`
	PasswordHash string     `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Role         Role       `gorm:"type:varchar(16);not null;default:'USER';comment:角色"`
	IsActive     bool       `gorm:"not null;index;comment:是否启用"`
	IsOnline     bool       `gorm:"not null;default:false;index;comment:是否在线"`
	CreatedAt    time.Time  `gorm:"comment:创建时间"`
	UpdatedAt    time.Time  `gorm:"comment:更新时间"`
	LastLogin    *time.Time `gorm:"comment:最近登录时间"`
	LastSeen     *time.Time `gorm:"comment:最近在线时间"`
}

// TableName 指定表名（全局配置使用单数表名）
func (User) TableName() string { return "user" }
