package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"corpsite/backend/internal/storage"
	"corpsite/backend/internal/storage/memory"
	"corpsite/backend/internal/storage/postgres"
	"corpsite/backend/internal/storage/redis"
	"corpsite/backend/internal/storage/sqlite"
)

// Store 混合存储实现：业务数据落数据库，临时状态放 Redis（或内存）
type Store struct {
	storage.RecordStore
	ephemeral storage.EphemeralStore
}

var _ storage.Store = (*Store)(nil)

// NewStore 组合数据库存储与临时状态存储
func NewStore(records storage.RecordStore, ephemeral storage.EphemeralStore) *Store {
	return &Store{
		RecordStore: records,
		ephemeral:   ephemeral,
	}
}

// Options 混合存储的连接参数
type Options struct {
	DBType string // "postgres"、"mysql" 或 "sqlite"
	DSN    string // sqlite 时为数据库文件路径
	Pool   postgres.PoolConfig

	RedisAddress  string // 为空时临时状态保存在进程内存
	RedisPassword string
	RedisDB       int
}

// NewStoreWithType 根据数据库类型创建混合存储实例
func NewStoreWithType(opts Options) (*Store, error) {
	var records storage.RecordStore
	var err error

	switch opts.DBType {
	case "mysql":
		records, err = postgres.NewMySQLStore(opts.DSN, opts.Pool)
	case "postgres", "postgresql":
		records, err = postgres.NewStore(opts.DSN, opts.Pool)
	case "sqlite", "sqlite3":
		records, err = sqlite.NewStore(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres, sqlite)", opts.DBType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var ephemeral storage.EphemeralStore
	if opts.RedisAddress != "" {
		cache, err := redis.NewCache(opts.RedisAddress, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			records.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		ephemeral = cache
	} else {
		ephemeral = memory.NewStore()
	}

	return NewStore(records, ephemeral), nil
}

// ========== 临时状态委托 ==========

// AddToBlacklist 委托给临时状态存储
func (s *Store) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	return s.ephemeral.AddToBlacklist(ctx, jti, ttl)
}

// IsBlacklisted 委托给临时状态存储
func (s *Store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.ephemeral.IsBlacklisted(ctx, jti)
}

// IncrementRateLimit 委托给临时状态存储
func (s *Store) IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	return s.ephemeral.IncrementRateLimit(ctx, key, window)
}

// GetRateLimit 委托给临时状态存储
func (s *Store) GetRateLimit(ctx context.Context, key string) (int64, error) {
	return s.ephemeral.GetRateLimit(ctx, key)
}

// ========== 工具方法 ==========

// Close 依次关闭数据库与临时状态存储
func (s *Store) Close() error {
	return errors.Join(s.RecordStore.Close(), s.ephemeral.Close())
}

// Health 数据库与临时状态存储都可用才算健康
func (s *Store) Health() error {
	if err := s.RecordStore.Health(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.ephemeral.Health(); err != nil {
		return fmt.Errorf("ephemeral store: %w", err)
	}
	return nil
}
