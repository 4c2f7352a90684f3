package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/storage"
)

// Store 基于 GORM 的关系型存储实现（PostgreSQL / MySQL）
type Store struct {
	db *gorm.DB
}

var _ storage.RecordStore = (*Store)(nil)

// PoolConfig 连接池参数
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig 默认连接池参数
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string, pool PoolConfig) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn), pool)
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string, pool PoolConfig) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn), pool)
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, pool PoolConfig) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	store := &Store{db: db}

	// 自动迁移数据库表
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Message{},
		&domain.ReplyRecord{},
	)
}

// ========== Contact Repository ==========

// CreateContact 保存来信
func (s *Store) CreateContact(ctx context.Context, msg *domain.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

// GetContact 根据 ID 获取来信
func (s *Store) GetContact(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrContactNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ListContacts 返回全部来信，最新的在前
func (s *Store) ListContacts(ctx context.Context) ([]domain.Message, error) {
	var list []domain.Message
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

// UpdateContactFlags 部分更新已读/星标
func (s *Store) UpdateContactFlags(ctx context.Context, id string, update domain.FlagsUpdate) (*domain.Message, error) {
	var msg domain.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&msg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrContactNotFound
			}
			return err
		}

		// 使用 map 以便显式写入 false
		fields := map[string]interface{}{}
		if update.Read != nil {
			fields["is_read"] = *update.Read
		}
		if update.Starred != nil {
			fields["is_starred"] = *update.Starred
		}
		if len(fields) == 0 {
			return nil
		}

		if err := tx.Model(&domain.Message{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		update.Apply(&msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteContact 在同一事务中删除来信及其出站记录
func (s *Store) DeleteContact(ctx context.Context, id string) (int, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&domain.Message{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrContactNotFound
		}

		result = tx.Where("contact_id = ?", id).Delete(&domain.ReplyRecord{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// ========== Reply Repository ==========

// SaveReply 追加一条出站记录
func (s *Store) SaveReply(ctx context.Context, reply *domain.ReplyRecord) error {
	return s.db.WithContext(ctx).Create(reply).Error
}

// ListReplies 按发送时间升序返回某封来信的出站记录
func (s *Store) ListReplies(ctx context.Context, contactID string) ([]domain.ReplyRecord, error) {
	var list []domain.ReplyRecord
	err := s.db.WithContext(ctx).
		Where("contact_id = ?", contactID).
		Order("sent_at ASC").
		Find(&list).Error
	return list, err
}

// CountReplies 统计某封来信的出站记录数量
func (s *Store) CountReplies(ctx context.Context, contactID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.ReplyRecord{}).Where("contact_id = ?", contactID).Count(&count).Error
	return int(count), err
}

// ========== 工具方法 ==========

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
