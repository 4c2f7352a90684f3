package storage

import (
	"context"
	"errors"
	"time"

	"corpsite/backend/internal/domain"
)

var (
	// ErrContactNotFound 来信不存在
	ErrContactNotFound = errors.New("contact message not found")
)

// ContactRepository 定义来信数据存取操作。
type ContactRepository interface {
	CreateContact(ctx context.Context, msg *domain.Message) error
	GetContact(ctx context.Context, id string) (*domain.Message, error)
	ListContacts(ctx context.Context) ([]domain.Message, error) // 按创建时间倒序
	UpdateContactFlags(ctx context.Context, id string, update domain.FlagsUpdate) (*domain.Message, error)
	// DeleteContact 删除来信并级联删除其出站记录，返回删除的出站记录数量
	DeleteContact(ctx context.Context, id string) (int, error)
}

// ReplyRepository 定义出站记录存取操作（只追加）。
type ReplyRepository interface {
	SaveReply(ctx context.Context, reply *domain.ReplyRecord) error
	ListReplies(ctx context.Context, contactID string) ([]domain.ReplyRecord, error) // 按发送时间升序
	CountReplies(ctx context.Context, contactID string) (int, error)
}

// JWTRepository 定义 JWT 黑名单操作。
type JWTRepository interface {
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RateLimitRepository 定义限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
	GetRateLimit(ctx context.Context, key string) (int64, error)
}

// RecordStore 持久化业务数据的存储（数据库）。
type RecordStore interface {
	ContactRepository
	ReplyRepository

	Close() error
	Health() error
}

// EphemeralStore 保存带过期时间的临时状态（Redis 或内存）。
type EphemeralStore interface {
	JWTRepository
	RateLimitRepository

	Close() error
	Health() error
}

// Store 定义完整的存储接口。
type Store interface {
	ContactRepository
	ReplyRepository
	JWTRepository
	RateLimitRepository

	Close() error
	Health() error
}
