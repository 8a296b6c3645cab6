package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// ErrNotConnected Redis 未配置或未连接
var ErrNotConnected = errors.New("redis not connected")

// SetClient 设置 Redis 客户端（由 internal/initial 调用）
func SetClient(c *redis.Client) {
	client = c
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// IsConnected 检查 Redis 是否已连接
func IsConnected() bool {
	return client != nil
}

func checkClient() error {
	if client == nil {
		return ErrNotConnected
	}
	return nil
}

// SetNX 仅在 key 不存在时设置值
func SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if err := checkClient(); err != nil {
		return false, err
	}
	return client.SetNX(ctx, key, value, expiration).Result()
}

// TryLock 分布式锁，到期自动释放
func TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return SetNX(ctx, key, token, ttl)
}

// Locker 以全局客户端实现的锁，未连接时 TryLock 返回 ErrNotConnected
type Locker struct{}

func (Locker) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return TryLock(ctx, key, token, ttl)
}
