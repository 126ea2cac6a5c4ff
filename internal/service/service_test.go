package service

import (
	"testing"
	"time"

	"chat-system/config"
	"chat-system/internal/dto"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	dbPkg "chat-system/pkg/db"
	"chat-system/pkg/jwt"
	"chat-system/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	users    *UserService
	activity *ActivityService
	jwt      *jwt.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	password.Cost = bcrypt.MinCost
	t.Cleanup(func() { password.Cost = bcrypt.DefaultCost })

	db, err := gorm.Open(sqlite.Open("file::memory:"), dbPkg.GormConfig(false))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ActivityLog{}))

	jwtSvc := jwt.NewJWTService(config.JWTConfig{
		Secret:            "svc-test",
		ExpireTime:        time.Hour,
		RefreshExpireTime: 24 * time.Hour,
		Issuer:            "chat-system",
	})
	activity := NewActivityService(repository.NewActivityLogRepository(db))
	return &fixture{
		db:       db,
		users:    NewUserService(repository.NewUserRepository(db), jwtSvc, activity),
		activity: activity,
		jwt:      jwtSvc,
	}
}

func register(t *testing.T, f *fixture, username string) *dto.AuthResponse {
	t.Helper()
	resp, err := f.users.Register(&dto.RegisterRequest{
		Username: username,
		Email:    username + "@x.com",
		Password: "secret123",
	}, "127.0.0.1")
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	resp := register(t, f, "alice")
	assert.Equal(t, dto.TokenTypeBearer, resp.TokenType)
	assert.Equal(t, int64(3600000), resp.ExpiresIn)
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.True(t, resp.User.IsActive)

	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	_, err = f.users.Register(&dto.RegisterRequest{Username: "alice", Email: "other@x.com", Password: "secret123"}, "")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = f.users.Register(&dto.RegisterRequest{Username: "alice2", Email: "ALICE@x.com", Password: "secret123"}, "")
	assert.ErrorIs(t, err, ErrUserExists)

	logs, err := f.activity.RecentByUser(resp.User.UserID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionRegister, logs[0].Action)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "bob")

	resp, err := f.users.Login(&dto.LoginRequest{UsernameOrEmail: "bob@x.com", Password: "secret123"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, reg.User.UserID, resp.User.UserID)

	u, err := f.users.GetByID(reg.User.UserID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	_, err = f.users.Login(&dto.LoginRequest{UsernameOrEmail: "bob", Password: "wrong"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Login(&dto.LoginRequest{UsernameOrEmail: "nobody", Password: "secret123"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logs, err := f.activity.RecentByUser(reg.User.UserID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionLogin, logs[0].Action)
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "carol")
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", reg.User.UserID).Update("is_active", false).Error)

	_, err := f.users.Login(&dto.LoginRequest{UsernameOrEmail: "carol", Password: "secret123"}, "")
	assert.ErrorIs(t, err, ErrUserInactive)

	_, err = f.users.Refresh(reg.RefreshToken, "")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "dave")

	resp, err := f.users.Refresh(reg.RefreshToken, "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, reg.RefreshToken, resp.RefreshToken)

	_, err = f.users.Refresh(reg.AccessToken, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.users.Refresh("garbage", "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "erin")

	phone := " +1-555-0100 "
	avatar := "https://cdn.example/erin.png"
	u, err := f.users.UpdateProfile(reg.User.UserID, &dto.UpdateProfileRequest{PhoneNumber: &phone, AvatarURL: &avatar}, "")
	require.NoError(t, err)
	require.NotNil(t, u.PhoneNumber)
	assert.Equal(t, "+1-555-0100", *u.PhoneNumber)
	assert.Equal(t, avatar, *u.AvatarURL)

	empty := ""
	u, err = f.users.UpdateProfile(reg.User.UserID, &dto.UpdateProfileRequest{PhoneNumber: &empty}, "")
	require.NoError(t, err)
	assert.Nil(t, u.PhoneNumber)
	assert.NotNil(t, u.AvatarURL)

	_, err = f.users.UpdateProfile(9999, &dto.UpdateProfileRequest{}, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetOnlineAndLists(t *testing.T) {
	f := newFixture(t)
	a := register(t, f, "alice")
	b := register(t, f, "bob")

	require.NoError(t, f.users.SetOnline(b.User.UserID, "bob", true))

	online, err := f.users.ListOnline()
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "bob", online[0].Username)
	assert.True(t, online[0].IsOnline)
	assert.NotNil(t, online[0].LastSeen)

	active, err := f.users.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, a.User.UserID, active[0].UserID)

	require.NoError(t, f.users.SetOnline(b.User.UserID, "bob", false))
	online, err = f.users.ListOnline()
	require.NoError(t, err)
	assert.Empty(t, online)

	assert.ErrorIs(t, f.users.SetOnline(9999, "ghost", true), ErrUserNotFound)
}

func TestActivityRecentByEntity(t *testing.T) {
	f := newFixture(t)
	a := register(t, f, "alice")

	require.NoError(t, f.activity.Record(a.User.UserID, model.ActionSendMessage, model.EntityChannel, 1, "public", ""))
	require.NoError(t, f.activity.Record(a.User.UserID, model.ActionSendMessage, model.EntityChannel, 1, "public", ""))
	require.NoError(t, f.activity.Record(a.User.UserID, model.ActionSendMessage, model.EntityChannel, 2, "other", ""))

	logs, err := f.activity.RecentByEntity(model.EntityChannel, 1, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].ID > logs[1].ID)

	logs, err = f.activity.RecentByEntity(model.EntityChannel, 1, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "public", logs[0].Description)

	err = f.activity.Record(9999, model.ActionSendMessage, model.EntityChannel, 1, "ghost", "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	logs, err = f.activity.RecentByUser(a.User.UserID, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	f := newFixture(t)
	resp := register(t, f, "alice")

	password.Cost = bcrypt.MinCost + 1
	_, err := f.users.Login(&dto.LoginRequest{UsernameOrEmail: "alice", Password: "secret123"}, "127.0.0.1")
	require.NoError(t, err)

	var u model.User
	require.NoError(t, f.db.First(&u, resp.User.UserID).Error)
	cost, err := bcrypt.Cost([]byte(u.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
	assert.True(t, password.Verify("secret123", u.PasswordHash))
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "alice")

	resp, err := f.users.Login(&dto.LoginRequest{UsernameOrEmail: " Alice@X.com ", Password: "secret123"}, "")
	require.NoError(t, err)
	assert.Equal(t, reg.User.UserID, resp.User.UserID)

	_, err = f.users.Login(&dto.LoginRequest{UsernameOrEmail: "ALICE", Password: "secret123"}, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssue_UnknownRoleFallsBackToUser(t *testing.T) {
	f := newFixture(t)
	reg := register(t, f, "alice")
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", reg.User.UserID).Update("role", "ROOT").Error)

	resp, err := f.users.Login(&dto.LoginRequest{UsernameOrEmail: "alice", Password: "secret123"}, "")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleUser), claims.Role)

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", reg.User.UserID).Update("role", model.RoleAdmin).Error)
	resp, err = f.users.Login(&dto.LoginRequest{UsernameOrEmail: "alice", Password: "secret123"}, "")
	require.NoError(t, err)
	claims, err = f.jwt.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleAdmin), claims.Role)
}
