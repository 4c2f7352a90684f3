package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"corpsite/backend/internal/storage"
)

const keyPrefix = "corpsite:"

// Cache Redis 临时状态存储（JWT 黑名单与限流计数）
type Cache struct {
	client *redis.Client
}

var _ storage.EphemeralStore = (*Cache)(nil)

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewCacheWithClient(client), nil
}

// NewCacheWithClient 使用已有客户端创建缓存实例
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// ========== JWT 黑名单 ==========

// AddToBlacklist 将 JWT 添加到黑名单
func (c *Cache) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return c.client.Set(ctx, blacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted 检查 JWT 是否在黑名单中
func (c *Cache) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, err := c.client.Get(ctx, blacklistKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ========== 限流缓存 ==========

// IncrementRateLimit 增加限流计数，窗口从第一次计数开始
func (c *Cache) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := rateLimitKey(key)

	count, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}

	// 只在新键上设置过期时间，避免每次请求都延长窗口
	if count == 1 {
		if err := c.client.Expire(ctx, k, window).Err(); err != nil {
			return 0, err
		}
	}

	return count, nil
}

// GetRateLimit 获取限流计数
func (c *Cache) GetRateLimit(ctx context.Context, key string) (int64, error) {
	count, err := c.client.Get(ctx, rateLimitKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ========== 工具方法 ==========

// Health 测试 Redis 连接
func (c *Cache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}

func blacklistKey(jti string) string {
	return keyPrefix + "blacklist:" + jti
}

func rateLimitKey(key string) string {
	return keyPrefix + "ratelimit:" + key
}
