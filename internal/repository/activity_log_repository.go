package repository

import (
	"fmt"

	"chat-system/internal/model"

	"gorm.io/gorm"
)

// ActivityLogRepository 操作审计仓储
type ActivityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository 创建ActivityLogRepository实例
func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Create 写入一条审计记录，用户不存在时返回 ErrUserNotFound
func (r *ActivityLogRepository) Create(log *model.ActivityLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).Where("id = ?", log.UserID).Count(&n).Error; err != nil {
			return fmt.Errorf("check activity user: %w", err)
		}
		if n == 0 {
			return ErrUserNotFound
		}
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("create activity log: %w", err)
		}
		return nil
	})
}

// FindRecentByUser 按创建时间倒序返回用户的全部审计记录
func (r *ActivityLogRepository) FindRecentByUser(userID uint) ([]*model.ActivityLog, error) {
	return r.FindRecentByUserLimit(userID, 0)
}

// FindRecentByUserLimit 同 FindRecentByUser，limit<=0 表示不限制
func (r *ActivityLogRepository) FindRecentByUserLimit(userID uint, limit int) ([]*model.ActivityLog, error) {
	logs := make([]*model.ActivityLog, 0)

	q := r.recent().Where("user_id = ?", userID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("find activity by user: %w", err)
	}
	return logs, nil
}

// FindRecentByEntity 按创建时间倒序返回某个资源的审计记录
func (r *ActivityLogRepository) FindRecentByEntity(entityType string, entityID uint) ([]*model.ActivityLog, error) {
	return r.FindRecentByEntityLimit(entityType, entityID, 0)
}

// FindRecentByEntityLimit 同 FindRecentByEntity，limit<=0 表示不限制
func (r *ActivityLogRepository) FindRecentByEntityLimit(entityType string, entityID uint, limit int) ([]*model.ActivityLog, error) {
	logs := make([]*model.ActivityLog, 0)

	q := r.recent().Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("find activity by entity: %w", err)
	}
	return logs, nil
}

// recent 统一排序：created_at 倒序，同一时间按ID倒序保证稳定
func (r *ActivityLogRepository) recent() *gorm.DB {
	return r.db.Model(&model.ActivityLog{}).
		Order("created_at DESC").
		Order("id DESC")
}
