package redis

import (
	"fmt"
	"strings"
	"time"

	"chat-system/pkg/stomp"

	"github.com/redis/go-redis/v9"
)

// 离线消息相关常量
const (
	OfflineMessagesKeyPrefix = "chat:offline:"    // 离线消息key前缀
	OfflineMessagesTTL       = 7 * 24 * time.Hour // 7天过期
	OfflineMessagesMax       = 100                // 每个用户目的地最多保存条数
)

// OfflineQueue 基于Redis列表的用户目的地离线暂存
// 每个 用户+目的地 一个列表，先进先出，只保留最新的 OfflineMessagesMax 条
type OfflineQueue struct{}

var _ stomp.OfflineStore = OfflineQueue{}

func offlineKey(username, destination string) string {
	return OfflineMessagesKeyPrefix + username + ":" + strings.TrimPrefix(destination, "/")
}

// Push 暂存一条消息
func (OfflineQueue) Push(username, destination string, body []byte) error {
	if client == nil {
		return errNotInitialized
	}

	key := offlineKey(username, destination)
	pipe := client.TxPipeline()
	pipe.RPush(ctx, key, body)
	pipe.LTrim(ctx, key, -OfflineMessagesMax, -1)
	pipe.Expire(ctx, key, OfflineMessagesTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("添加离线消息失败: %w", err)
	}
	return nil
}

// Drain 取出并删除全部暂存消息，按写入顺序返回
func (OfflineQueue) Drain(username, destination string) ([]stomp.PendingMessage, error) {
	if client == nil {
		return nil, errNotInitialized
	}

	key := offlineKey(username, destination)
	var rangeCmd *redis.StringSliceCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("获取离线消息失败: %w", err)
	}

	out := make([]stomp.PendingMessage, 0, len(rangeCmd.Val()))
	for _, v := range rangeCmd.Val() {
		out = append(out, stomp.PendingMessage{Destination: destination, Body: []byte(v)})
	}
	return out, nil
}

// PendingTotal 所有用户暂存消息总数（用于状态接口）
func (OfflineQueue) PendingTotal() (int64, error) {
	if client == nil {
		return 0, errNotInitialized
	}

	// 使用 SCAN 非阻塞地遍历所有离线消息 key
	var keys []string
	var cursor uint64
	for {
		ks, c, err := client.Scan(ctx, cursor, OfflineMessagesKeyPrefix+"*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("获取离线消息key失败: %w", err)
		}
		keys = append(keys, ks...)
		cursor = c
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := client.Pipeline()
	cmds := make([]*redis.IntCmd, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, pipe.LLen(ctx, key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("批量获取离线消息统计失败: %w", err)
	}

	var total int64
	for _, cmd := range cmds {
		total += cmd.Val()
	}
	return total, nil
}
