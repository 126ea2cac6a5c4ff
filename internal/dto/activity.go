package dto

import (
	"time"

	"chat-system/internal/model"
)

// ActivityLogDTO 审计记录输出
type ActivityLogDTO struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"userId"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entityType"`
	EntityID    uint      `json:"entityId"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewActivityLogDTOs 转换审计记录列表，保持顺序
func NewActivityLogDTOs(logs []*model.ActivityLog) []*ActivityLogDTO {
	out := make([]*ActivityLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, &ActivityLogDTO{
			ID:          l.ID,
			UserID:      l.UserID,
			Action:      l.Action,
			EntityType:  l.EntityType,
			EntityID:    l.EntityID,
			Description: l.Description,
			CreatedAt:   l.CreatedAt,
		})
	}
	return out
}
