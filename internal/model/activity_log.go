package model

import "time"

// 常用的审计动作
const (
	ActionRegister      = "REGISTER"
	ActionLogin         = "LOGIN"
	ActionRefreshToken  = "REFRESH_TOKEN"
	ActionUpdateProfile = "UPDATE_PROFILE"
	ActionConnect       = "CONNECT"
	ActionDisconnect    = "DISCONNECT"
	ActionSendMessage   = "SEND_MESSAGE"
)

// 被操作资源类型
const (
	EntityUser    = "USER"
	EntitySession = "SESSION"
	EntityChannel = "CHANNEL"
)

// ActivityLog 用户操作审计记录
// 写入后不再修改或删除；(EntityType, EntityID) 标识被操作的资源
type ActivityLog struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"not null;index:idx_activity_user_created,priority:1;comment:用户ID"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Action      string    `gorm:"type:varchar(32);not null;comment:动作"`
	EntityType  string    `gorm:"type:varchar(32);not null;index:idx_activity_entity_created,priority:1;comment:资源类型"`
	EntityID    uint      `gorm:"not null;index:idx_activity_entity_created,priority:2;comment:资源ID"`
	Description string    `gorm:"type:varchar(255);comment:描述"`
	IPAddress   string    `gorm:"type:varchar(64);comment:来源IP"`
	CreatedAt   time.Time `gorm:"index:idx_activity_user_created,priority:2;index:idx_activity_entity_created,priority:3;comment:创建时间"`
}

func (ActivityLog) TableName() string { return "activity_log" }
