package service

import (
	"chat-system/internal/dto"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/pkg/logger"

	"go.uber.org/zap"
)

// DefaultActivityLimit 个人审计记录默认返回条数
const DefaultActivityLimit = 50

// ActivityService 操作审计
type ActivityService struct {
	repo *repository.ActivityLogRepository
}

func NewActivityService(repo *repository.ActivityLogRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// Record 写入一条审计记录，用户不存在时返回 ErrUserNotFound
// 审计失败不影响主流程，调用方通常只需记录日志
func (s *ActivityService) Record(userID uint, action, entityType string, entityID uint, description, ip string) error {
	err := s.repo.Create(&model.ActivityLog{
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		IPAddress:   ip,
	})
	if err != nil {
		logger.Warn("写入审计记录失败",
			zap.Uint("user_id", userID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
	return err
}

// RecentByUser 用户最近的审计记录，limit<=0 时使用默认值
func (s *ActivityService) RecentByUser(userID uint, limit int) ([]*dto.ActivityLogDTO, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	logs, err := s.repo.FindRecentByUserLimit(userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewActivityLogDTOs(logs), nil
}

// RecentByEntity 某个资源的审计记录，limit<=0 时返回全部
func (s *ActivityService) RecentByEntity(entityType string, entityID uint, limit int) ([]*dto.ActivityLogDTO, error) {
	logs, err := s.repo.FindRecentByEntityLimit(entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewActivityLogDTOs(logs), nil
}
