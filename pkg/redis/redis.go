package redis

import (
	"context"
	"fmt"
	"time"

	"chat-system/config"

	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// InitRedis 初始化Redis连接
func InitRedis(cfg config.RedisConfig) error {
	c := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		// 连接池配置
		PoolSize:     10,              // 连接池大小
		MinIdleConns: 5,               // 最小空闲连接
		MaxRetries:   3,               // 最大重试次数
		DialTimeout:  5 * time.Second, // 连接超时
		ReadTimeout:  3 * time.Second, // 读超时
		WriteTimeout: 3 * time.Second, // 写超时
	})

	// 测试连接
	if _, err := c.Ping(ctx).Result(); err != nil {
		_ = c.Close()
		return fmt.Errorf("redis连接失败: %w", err)
	}

	client = c
	return nil
}

// SetClient 直接注入客户端（测试中配合 miniredis 使用）
func SetClient(c *redis.Client) {
	client = c
}

// GetClient 获取Redis客户端，未初始化时为 nil
func GetClient() *redis.Client {
	return client
}

// Enabled Redis是否可用
func Enabled() bool {
	return client != nil
}

// Close 关闭Redis连接
func Close() error {
	if client != nil {
		err := client.Close()
		client = nil
		return err
	}
	return nil
}

// HealthCheck 检查Redis健康状态
func HealthCheck() error {
	if client == nil {
		return errNotInitialized
	}

	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis连接异常: %w", err)
	}

	return nil
}

var errNotInitialized = fmt.Errorf("redis客户端未初始化")

// Del 删除键
func Del(keys ...string) error {
	return client.Del(ctx, keys...).Err()
}

// Exists 检查键是否存在
func Exists(keys ...string) (int64, error) {
	return client.Exists(ctx, keys...).Result()
}
