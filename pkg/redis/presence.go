package redis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// PresenceData 在线状态数据
type PresenceData struct {
	UserID   uint      `json:"userId"`
	Username string    `json:"username"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

// 在线状态相关常量
const (
	PresenceKeyPrefix = "chat:presence:user:" // 用户在线状态key前缀
	OnlineUsersKey    = "chat:online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute       // 在线状态TTL（需大于心跳周期）
)

func presenceKey(userID uint) string {
	return PresenceKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// SetUserPresence 设置用户在线状态
// 上线写入带TTL的状态并加入在线集合，下线则移出集合并保留最后在线时间
func SetUserPresence(userID uint, username string, online bool) error {
	if client == nil {
		return errNotInitialized
	}

	presence := PresenceData{
		UserID:   userID,
		Username: username,
		Online:   online,
		LastSeen: time.Now(),
	}
	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("序列化在线状态失败: %w", err)
	}

	pipe := client.TxPipeline()
	if online {
		pipe.Set(ctx, presenceKey(userID), data, PresenceTTL)
		pipe.SAdd(ctx, OnlineUsersKey, userID)
	} else {
		pipe.Set(ctx, presenceKey(userID), data, 0)
		pipe.SRem(ctx, OnlineUsersKey, userID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}
	return nil
}

// GetUserPresence 获取用户在线状态
func GetUserPresence(userID uint) (*PresenceData, error) {
	if client == nil {
		return nil, errNotInitialized
	}

	data, err := client.Get(ctx, presenceKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("获取用户在线状态失败: %w", err)
	}

	var presence PresenceData
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("反序列化在线状态失败: %w", err)
	}
	return &presence, nil
}

// IsUserOnline 检查用户是否在线
func IsUserOnline(userID uint) (bool, error) {
	if client == nil {
		return false, errNotInitialized
	}

	ok, err := client.SIsMember(ctx, OnlineUsersKey, userID).Result()
	if err != nil {
		return false, fmt.Errorf("检查用户在线状态失败: %w", err)
	}
	return ok, nil
}

// GetOnlineUsers 获取所有在线用户ID列表，升序
func GetOnlineUsers() ([]uint, error) {
	if client == nil {
		return nil, errNotInitialized
	}

	members, err := client.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取在线用户列表失败: %w", err)
	}

	userIDs := make([]uint, 0, len(members))
	for _, member := range members {
		if id, err := strconv.ParseUint(member, 10, 64); err == nil {
			userIDs = append(userIDs, uint(id))
		}
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	return userIDs, nil
}

// RefreshUserPresence 刷新用户在线状态（延长TTL）
func RefreshUserPresence(userID uint) error {
	if client == nil {
		return errNotInitialized
	}

	ok, err := client.Expire(ctx, presenceKey(userID), PresenceTTL).Result()
	if err != nil {
		return fmt.Errorf("刷新用户在线状态失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("用户不在线")
	}
	return nil
}

// CleanExpiredPresence 清理状态已过期但仍在在线集合中的用户（定期任务）
// 返回被清理的用户数
func CleanExpiredPresence() (int, error) {
	userIDs, err := GetOnlineUsers()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, userID := range userIDs {
		n, err := Exists(presenceKey(userID))
		if err != nil {
			continue
		}
		if n == 0 {
			if err := client.SRem(ctx, OnlineUsersKey, userID).Err(); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// PresenceCache 以方法形式暴露在线状态续期与清理
type PresenceCache struct{}

func (PresenceCache) RefreshUserPresence(userID uint) error { return RefreshUserPresence(userID) }

func (PresenceCache) CleanExpiredPresence() (int, error) { return CleanExpiredPresence() }
