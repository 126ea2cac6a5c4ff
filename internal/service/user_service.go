package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-system/internal/dto"
	"chat-system/internal/mapper"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/pkg/jwt"
	"chat-system/pkg/logger"
	"chat-system/pkg/password"
	"chat-system/pkg/redis"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already registered")
	ErrUserInactive       = errors.New("user is disabled")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrUserNotFound       = repository.ErrUserNotFound
)

type UserService struct {
	repo       *repository.UserRepository
	jwtService *jwt.JWTService
	activity   *ActivityService
	mapper     *mapper.UserMapper
	now        func() time.Time
}

func NewUserService(repo *repository.UserRepository, jwtService *jwt.JWTService, activity *ActivityService) *UserService {
	return &UserService{
		repo:       repo,
		jwtService: jwtService,
		activity:   activity,
		mapper:     mapper.NewUserMapper(),
		now:        time.Now,
	}
}

// Register 注册并直接签发令牌
func (s *UserService) Register(req *dto.RegisterRequest, ip string) (*dto.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return nil, errors.New("username, email and password are required")
	}

	if exists, err := s.repo.ExistsByUsername(username); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrUserExists
	}
	if exists, err := s.repo.ExistsByEmail(email); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrUserExists
	}

	// 密码哈希
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PhoneNumber:  optional(req.PhoneNumber),
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := s.repo.Create(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	_ = s.activity.Record(user.ID, model.ActionRegister, model.EntityUser, user.ID, "注册", ip)
	logger.Info("用户注册成功", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

// Login 登录：支持用户名或邮箱，禁用账号拒绝登录
func (s *UserService) Login(req *dto.LoginRequest, ip string) (*dto.AuthResponse, error) {
	identifier := strings.TrimSpace(req.UsernameOrEmail)
	if identifier == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}
	// 邮箱注册时已转小写
	if strings.Contains(identifier, "@") {
		identifier = strings.ToLower(identifier)
	}

	u, err := s.repo.FindByUsernameOrEmail(identifier)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}
	if password.NeedsRehash(u.PasswordHash) {
		s.rehash(u, req.Password)
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	_ = s.activity.Record(u.ID, model.ActionLogin, model.EntityUser, u.ID, "登录", ip)
	return s.issue(u)
}

// rehash 哈希强度提升后登录时顺带升级，失败不影响登录
func (s *UserService) rehash(u *model.User, plain string) {
	hash, err := password.Hash(plain)
	if err == nil {
		err = s.repo.UpdatePasswordHash(u.ID, hash)
	}
	if err != nil {
		logger.Warn("升级密码哈希失败", zap.Uint("user_id", u.ID), zap.Error(err))
		return
	}
	u.PasswordHash = hash
}

// Refresh 用刷新令牌换取新的令牌对
func (s *UserService) Refresh(refreshToken, ip string) (*dto.AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	u, err := s.repo.GetByID(userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserInactive
	}

	_ = s.activity.Record(u.ID, model.ActionRefreshToken, model.EntityUser, u.ID, "刷新令牌", ip)
	return s.issue(u)
}

func (s *UserService) issue(u *model.User) (*dto.AuthResponse, error) {
	// 未知角色按普通用户签发
	role := u.Role
	if !role.Valid() {
		role = model.RoleUser
	}
	access, err := s.jwtService.GenerateAccessToken(u.ID, u.Username, string(role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwtService.GenerateRefreshToken(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return dto.NewAuthResponse(access, refresh, s.jwtService.AccessTTL(), u), nil
}

// GetByID 查询单个用户
func (s *UserService) GetByID(id uint) (*dto.UserDTO, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDTO(u), nil
}

// ListActive 所有启用的用户
func (s *UserService) ListActive() ([]*dto.UserDTO, error) {
	users, err := s.repo.FindByIsActive(true)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDTOList(users), nil
}

// ListOnline 当前在线用户
func (s *UserService) ListOnline() ([]*dto.UserDTO, error) {
	users, err := s.repo.FindOnline()
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDTOList(users), nil
}

// UpdateProfile 修改手机号与头像，空串表示清除
func (s *UserService) UpdateProfile(id uint, req *dto.UpdateProfileRequest, ip string) (*dto.UserDTO, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if req.PhoneNumber != nil {
		u.PhoneNumber = optional(req.PhoneNumber)
		changed = append(changed, "phoneNumber")
	}
	if req.AvatarURL != nil {
		u.AvatarURL = optional(req.AvatarURL)
		changed = append(changed, "avatarUrl")
	}
	if len(changed) == 0 {
		return s.mapper.ToDTO(u), nil
	}

	if err := s.repo.Update(u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.activity.Record(u.ID, model.ActionUpdateProfile, model.EntityUser, u.ID, "修改 "+strings.Join(changed, ","), ip)
	return s.mapper.ToDTO(u), nil
}

// SetOnline 更新在线状态：数据库为准，Redis 可用时同步在线集合
func (s *UserService) SetOnline(id uint, username string, online bool) error {
	if err := s.repo.UpdateOnlineStatus(id, online, s.now()); err != nil {
		return err
	}
	if redis.Enabled() {
		if err := redis.SetUserPresence(id, username, online); err != nil {
			logger.Warn("更新Redis在线状态失败", zap.Uint("user_id", id), zap.Error(err))
		}
	}
	return nil
}

// optional 去除首尾空白，空串视为未设置
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
