package repository

import (
	"errors"
	"fmt"
	"time"

	"chat-system/internal/model"

	"gorm.io/gorm"
)

// ErrUserNotFound 用户不存在
var ErrUserNotFound = errors.New("user not found")

// UserRepository 用户数据仓储
type UserRepository struct {
	orm *gorm.DB
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{orm: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.orm.Create(user).Error
}

// Update 保存用户的全部字段
func (r *UserRepository) Update(user *model.User) error {
	return r.orm.Save(user).Error
}

func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var u model.User
	if err := r.orm.First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	return r.findOne("username = ?", username)
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	return r.findOne("email = ?", email)
}

// FindByUsernameOrEmail 登录时按用户名或邮箱查找
func (r *UserRepository) FindByUsernameOrEmail(identifier string) (*model.User, error) {
	return r.findOne("username = ? OR email = ?", identifier, identifier)
}

func (r *UserRepository) ExistsByUsername(username string) (bool, error) {
	return r.exists("username = ?", username)
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	return r.exists("email = ?", email)
}

// FindByIsActive 按启用状态查询用户，按ID升序
func (r *UserRepository) FindByIsActive(active bool) ([]*model.User, error) {
	users := make([]*model.User, 0)
	err := r.orm.Where("is_active = ?", active).Order("id ASC").Find(&users).Error
	return users, err
}

// FindOnline 查询当前在线的启用用户，最近活跃的在前
func (r *UserRepository) FindOnline() ([]*model.User, error) {
	users := make([]*model.User, 0)
	err := r.orm.Where("is_online = ? AND is_active = ?", true, true).
		Order("last_seen DESC").
		Order("id ASC").
		Find(&users).Error
	return users, err
}

// UpdateOnlineStatus 更新在线状态与最近在线时间
func (r *UserRepository) UpdateOnlineStatus(id uint, online bool, at time.Time) error {
	res := r.orm.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_online": online,
		"last_seen": at,
	})
	if res.Error != nil {
		return fmt.Errorf("update online status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin 记录最近登录时间
func (r *UserRepository) UpdateLastLogin(id uint, at time.Time) error {
	res := r.orm.Model(&model.User{}).Where("id = ?", id).Update("last_login", at)
	if res.Error != nil {
		return fmt.Errorf("update last login: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash 替换密码哈希
func (r *UserRepository) UpdatePasswordHash(id uint, hash string) error {
	res := r.orm.Model(&model.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("update password hash: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(query string, args ...interface{}) (*model.User, error) {
	var u model.User
	if err := r.orm.Where(query, args...).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) exists(query string, args ...interface{}) (bool, error) {
	var count int64
	if err := r.orm.Model(&model.User{}).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
